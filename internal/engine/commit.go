package engine

import (
	"fmt"

	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
)

// Stage names the pipeline step a commit stopped at.
type Stage string

const (
	StageStructural  Stage = "structural"
	StageReferential Stage = "referential"
	StageCommitted   Stage = "committed"
)

// Options tune the commit pipeline.
type Options struct {
	HealSections  bool
	MaxOperations int // 0 means unlimited
}

// DefaultOptions heal dangling page sections and cap plans at 500 operations.
func DefaultOptions() Options {
	return Options{HealSections: true, MaxOperations: 500}
}

// Outcome is the result of a commit. Schema is nil unless Success is set; on
// failure the caller keeps its current document.
type Outcome struct {
	Success bool             `json:"success"`
	Stage   Stage            `json:"stage"`
	Schema  *metadata.Schema `json:"-"`
	Report  Report           `json:"report"`
	Healed  []string         `json:"healed"`
	Plan    *modplan.Plan    `json:"-"`
}

// Commit validates a raw plan document, applies it to a copy of base, heals
// dangling page sections and checks referential integrity. Structural errors
// stop the pipeline before any operation runs.
func Commit(v *Validator, base *metadata.Schema, data []byte, opts Options) *Outcome {
	if res := v.Validate(data); !res.Valid {
		return rejected(StageStructural, res.Errors)
	}
	plan, err := modplan.Decode(data)
	if err != nil {
		return rejected(StageStructural, []string{"(root) " + err.Error()})
	}
	return commitDecoded(base, plan, opts)
}

// CommitPlan runs the same pipeline for an in-memory plan.
func CommitPlan(v *Validator, base *metadata.Schema, plan *modplan.Plan, opts Options) *Outcome {
	data, err := plan.Encode()
	if err != nil {
		return rejected(StageStructural, []string{"(root) " + err.Error()})
	}
	return Commit(v, base, data, opts)
}

// DryRun runs the commit pipeline and reports the outcome without handing
// back a document to install.
func DryRun(v *Validator, base *metadata.Schema, data []byte, opts Options) *Outcome {
	out := Commit(v, base, data, opts)
	out.Schema = nil
	return out
}

func commitDecoded(base *metadata.Schema, plan *modplan.Plan, opts Options) *Outcome {
	if opts.MaxOperations > 0 && len(plan.Operations) > opts.MaxOperations {
		return rejected(StageStructural, []string{
			fmt.Sprintf("operations has %d items, more than the limit of %d", len(plan.Operations), opts.MaxOperations),
		})
	}

	res := Apply(base, plan)
	out := &Outcome{Report: res.Report, Healed: []string{}, Plan: plan}

	if opts.HealSections {
		before := len(res.Schema.Sections)
		out.Report.Warnings = append(out.Report.Warnings, Heal(res.Schema)...)
		for _, sec := range res.Schema.Sections[before:] {
			out.Healed = append(out.Healed, sec.ID)
		}
	}

	integrity := CheckIntegrity(res.Schema)
	out.Report.Warnings = append(out.Report.Warnings, integrity.Warnings...)
	if !integrity.Valid {
		out.Stage = StageReferential
		out.Report.Errors = append(out.Report.Errors, integrity.Errors...)
		return out
	}

	out.Success = true
	out.Stage = StageCommitted
	out.Schema = res.Schema
	return out
}

func rejected(stage Stage, errs []string) *Outcome {
	report := newReport()
	report.Errors = append(report.Errors, errs...)
	return &Outcome{Stage: stage, Report: report, Healed: []string{}}
}
