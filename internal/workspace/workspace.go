// Package workspace hosts the live schema document. It serializes commits,
// installs successful outcomes and records each revision as a snapshot.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"corisa-backend/internal/engine"
	"corisa-backend/internal/instrument"
	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
	"corisa-backend/internal/store"
)

// Snapshot sources.
const (
	SourcePlan          = "plan"
	SourceModifications = "modifications"
	SourceImport        = "import"
	SourceSeed          = "seed"
	SourceRollback      = "rollback"
)

const memoryHistory = 100

// Workspace owns the current document. Reads never block on a commit in
// progress; commits run one at a time.
type Workspace struct {
	mu        sync.Mutex
	registry  *metadata.Registry
	validator *engine.Validator
	snapshots SnapshotStore
	opts      engine.Options
	notifier  Notifier
}

// RevisionEvent describes a newly installed revision.
type RevisionEvent struct {
	Event    string
	Revision int
	Source   string
	Report   *engine.Report
	Healed   []string
}

// Notifier is told about every installed revision after it is current.
type Notifier interface {
	Notify(ctx context.Context, ev RevisionEvent)
}

// New creates a Workspace. A nil snapshot store keeps history in memory.
func New(validator *engine.Validator, snapshots SnapshotStore, opts engine.Options) *Workspace {
	if snapshots == nil {
		snapshots = newMemorySnapshots(memoryHistory)
	}
	return &Workspace{
		registry:  metadata.NewRegistry(),
		validator: validator,
		snapshots: snapshots,
		opts:      opts,
	}
}

// SetNotifier registers n to hear about installed revisions. It must be called
// before the workspace is shared.
func (w *Workspace) SetNotifier(n Notifier) {
	w.notifier = n
}

func (w *Workspace) notify(ctx context.Context, ev RevisionEvent) {
	if w.notifier != nil {
		w.notifier.Notify(ctx, ev)
	}
}

// Schema returns a copy of the current document.
func (w *Workspace) Schema() *metadata.Schema {
	return w.registry.Current()
}

func (w *Workspace) Revision() int {
	return w.registry.Revision()
}

// Options returns the commit options in effect.
func (w *Workspace) Options() engine.Options {
	return w.opts
}

// ValidatePlan runs the full pipeline against the current document without
// installing the result.
func (w *Workspace) ValidatePlan(ctx context.Context, data []byte) *engine.Outcome {
	_, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "workspace", "plan", "plan.validate")
	defer span.End()

	out := engine.DryRun(w.validator, w.registry.Current(), data, w.opts)
	finishSpan(span, out)
	return out
}

// ValidateStructure checks a raw plan document against the plan grammar only.
func (w *Workspace) ValidateStructure(data []byte) engine.ValidationResult {
	return w.validator.Validate(data)
}

// ApplyPlan commits a raw plan document. A rejected plan is not an error: the
// outcome carries the report and the document is left unchanged. The error
// return is reserved for persistence failures.
func (w *Workspace) ApplyPlan(ctx context.Context, data []byte) (*engine.Outcome, error) {
	return w.commit(ctx, SourcePlan, data)
}

// ApplyModifications builds a plan from a modifications object and commits it.
func (w *Workspace) ApplyModifications(ctx context.Context, mods *modplan.Modifications) (*engine.Outcome, error) {
	plan, err := modplan.Build(mods)
	if err != nil {
		return nil, err
	}
	data, err := plan.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return w.commit(ctx, SourceModifications, data)
}

func (w *Workspace) commit(ctx context.Context, source string, data []byte) (*engine.Outcome, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "workspace", "plan", "plan.apply")
	defer span.End()
	span.SetMetadata("source", source)

	w.mu.Lock()
	defer w.mu.Unlock()

	out := engine.Commit(w.validator, w.registry.Current(), data, w.opts)
	finishSpan(span, out)
	if !out.Success {
		return out, nil
	}

	report, err := json.Marshal(out.Report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := w.install(ctx, source, out.Schema, data, report); err != nil {
		span.SetStatus("error")
		return nil, err
	}

	instrument.GetInstrumenter(ctx).EmitBusinessEvent(ctx, "plan.committed", "schema", fmt.Sprint(w.registry.Revision()), map[string]any{
		"source":  source,
		"applied": out.Report.Applied,
		"healed":  len(out.Healed),
	})
	w.notify(ctx, RevisionEvent{
		Event:    "plan.committed",
		Revision: w.registry.Revision(),
		Source:   source,
		Report:   &out.Report,
		Healed:   out.Healed,
	})
	return out, nil
}

// Import replaces the document wholesale. A document that fails the integrity
// check is returned as an invalid result and not installed.
func (w *Workspace) Import(ctx context.Context, s *metadata.Schema) (engine.ValidationResult, error) {
	return w.replace(ctx, SourceImport, s)
}

// Seed installs an initial document, typically from schema.seed_path.
func (w *Workspace) Seed(ctx context.Context, s *metadata.Schema) (engine.ValidationResult, error) {
	return w.replace(ctx, SourceSeed, s)
}

func (w *Workspace) replace(ctx context.Context, source string, s *metadata.Schema) (engine.ValidationResult, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "workspace", "schema", "schema."+source)
	defer span.End()

	s = s.Clone()
	s.Normalize()
	res := engine.CheckIntegrity(s)
	if !res.Valid {
		span.SetStatus("error")
		span.SetMetadata("errors", len(res.Errors))
		return res, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.install(ctx, source, s, nil, nil); err != nil {
		span.SetStatus("error")
		return res, err
	}
	span.SetStatus("ok")
	w.notify(ctx, RevisionEvent{Event: "schema.replaced", Revision: w.registry.Revision(), Source: source})
	return res, nil
}

// install persists the document as the next revision and then makes it current.
// Callers hold w.mu.
func (w *Workspace) install(ctx context.Context, source string, s *metadata.Schema, plan, report []byte) error {
	doc, err := metadata.Encode(s, metadata.FormatJSON)
	if err != nil {
		return err
	}
	snap := &store.Snapshot{
		Revision: w.registry.Revision() + 1,
		Source:   source,
		Document: doc,
		Plan:     plan,
		Report:   report,
	}
	if err := w.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("persist revision %d: %w", snap.Revision, err)
	}
	w.registry.Load(s)
	return nil
}

// Restore loads the latest persisted revision. It reports false when there is
// nothing to restore.
func (w *Workspace) Restore(ctx context.Context) (bool, error) {
	snap, err := w.snapshots.LatestSnapshot(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load latest snapshot: %w", err)
	}
	s, err := metadata.DecodeJSON(snap.Document)
	if err != nil {
		return false, fmt.Errorf("snapshot %d: %w", snap.Revision, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.registry.Restore(s, snap.Revision)
	return true, nil
}

// Rollback reinstalls the document of an earlier revision as a new revision.
func (w *Workspace) Rollback(ctx context.Context, revision int) (engine.ValidationResult, error) {
	snap, err := w.snapshots.GetSnapshot(ctx, revision)
	if err != nil {
		return engine.ValidationResult{}, err
	}
	s, err := metadata.DecodeJSON(snap.Document)
	if err != nil {
		return engine.ValidationResult{}, fmt.Errorf("snapshot %d: %w", revision, err)
	}
	return w.replace(ctx, SourceRollback, s)
}

// History lists recent revisions, newest first, without their documents.
func (w *Workspace) History(ctx context.Context, limit int) ([]store.Snapshot, error) {
	return w.snapshots.ListSnapshots(ctx, limit)
}

// Snapshot returns one revision including its document.
func (w *Workspace) Snapshot(ctx context.Context, revision int) (*store.Snapshot, error) {
	return w.snapshots.GetSnapshot(ctx, revision)
}

func finishSpan(span instrument.Span, out *engine.Outcome) {
	span.SetMetadata("applied", out.Report.Applied)
	span.SetMetadata("errors", len(out.Report.Errors))
	span.SetMetadata("success", out.Success)
	span.SetMetadata("stage", string(out.Stage))
	if out.Success {
		span.SetStatus("ok")
	} else {
		span.SetStatus("error")
	}
}
