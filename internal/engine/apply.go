// Package engine validates and applies Mod Plans to schema documents. It is
// pure: no I/O, no logging, no shared state. Every call works on a copy of its
// input.
package engine

import (
	"fmt"

	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
)

// Apply runs the plan's operations in order against a deep copy of base. A
// failing operation is recorded in the report and the remaining operations
// still run. base is never mutated.
func Apply(base *metadata.Schema, plan *modplan.Plan) Result {
	s := base.Clone()
	if s == nil {
		s = metadata.NewSchema()
	}
	s.Normalize()
	report := newReport()
	if plan == nil {
		return Result{Schema: s, Report: report}
	}

	for i := range plan.Operations {
		op := &plan.Operations[i]
		report.Attempted++

		verdict, err := checkGuards(s, op)
		if err != nil {
			report.fail(i, op.Op, err)
			continue
		}
		if verdict.skip {
			report.Skipped++
			report.warn(i, op.Op, "%s", verdict.reason)
			continue
		}

		warnings, err := dispatch(s, op)
		for _, w := range warnings {
			report.warn(i, op.Op, "%s", w)
		}
		if err != nil {
			report.fail(i, op.Op, err)
			continue
		}
		report.Applied++
	}

	s.Normalize()
	return Result{Schema: s, Report: report}
}

func dispatch(s *metadata.Schema, op *modplan.Operation) ([]string, error) {
	switch op.Op {
	case modplan.OpUpsertEntity:
		return upsert(s, op)
	case modplan.OpUpdateFields:
		return nil, updateFields(s, op)
	case modplan.OpRemoveEntity:
		return nil, removeEntity(s, op)
	case modplan.OpRenameEntity:
		return nil, renameEntity(s, op)
	case modplan.OpLinkRef:
		return nil, linkRef(s, op)
	case modplan.OpUnlinkRef:
		return nil, unlinkRef(s, op)
	case modplan.OpReorderRefs:
		return nil, reorderRefs(s, op)
	default:
		return nil, fmt.Errorf("unknown operation %q", op.Op)
	}
}
