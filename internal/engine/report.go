package engine

import (
	"fmt"

	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
)

// Report summarizes one plan application. Applied counts operations that
// completed; Attempted counts every dispatch, including failed and skipped
// ones.
type Report struct {
	Applied   int      `json:"applied"`
	Attempted int      `json:"attempted"`
	Skipped   int      `json:"skipped"`
	Warnings  []string `json:"warnings"`
	Errors    []string `json:"errors"`
}

func newReport() Report {
	return Report{Warnings: []string{}, Errors: []string{}}
}

// OK reports whether no operation failed.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

func (r *Report) warn(index int, op modplan.Kind, format string, args ...any) {
	r.Warnings = append(r.Warnings, opPrefix(index, op)+fmt.Sprintf(format, args...))
}

func (r *Report) fail(index int, op modplan.Kind, err error) {
	r.Errors = append(r.Errors, opPrefix(index, op)+err.Error())
}

func opPrefix(index int, op modplan.Kind) string {
	return fmt.Sprintf("op %d (%s): ", index, op)
}

// Result is the output of Apply: the mutated copy plus its report.
type Result struct {
	Schema *metadata.Schema `json:"schema"`
	Report Report           `json:"report"`
}
