package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
)

func TestCommit_HealsMissingSection(t *testing.T) {
	v := newTestValidator(t)
	base := metadata.NewSchema()
	plan := modplan.New(modplan.Upsert(modplan.Pages, map[string]any{
		"id": "dash", "title": "Dashboard", "sections": []any{"missing", "recentOrders"},
	}))

	out := CommitPlan(v, base, plan, DefaultOptions())
	require.True(t, out.Success, out.Report.Errors)
	assert.Equal(t, StageCommitted, out.Stage)
	assert.Equal(t, []string{"missing", "recentOrders"}, out.Healed)

	sec := out.Schema.GetSection("missing")
	require.NotNil(t, sec)
	assert.Equal(t, "Missing", sec.Title)
	assert.Equal(t, "card", sec.Type)
	assert.Empty(t, sec.Components)
	assert.Equal(t, "Recent Orders", out.Schema.GetSection("recentOrders").Title)
	assert.Contains(t, out.Report.Warnings, "Created placeholder section missing referenced by page dash")
	assert.True(t, CheckIntegrity(out.Schema).Valid)
	assert.Empty(t, base.Sections)
}

func TestCommit_EmptySectionReferenceRejected(t *testing.T) {
	v := newTestValidator(t)
	plan := modplan.New(modplan.Upsert(modplan.Pages, map[string]any{
		"id": "dash", "title": "Dashboard", "sections": []any{"", "stats"},
	}))

	out := CommitPlan(v, metadata.NewSchema(), plan, DefaultOptions())
	assert.False(t, out.Success)
	assert.Equal(t, StageReferential, out.Stage)
	assert.Contains(t, out.Report.Errors, "Page dash has an empty section reference")
}

func TestCommit_MissingModelFailsWholeCommit(t *testing.T) {
	v := newTestValidator(t)
	base := testSchema()
	before := base.Clone()
	plan := modplan.New(
		modplan.Upsert(modplan.Buttons, map[string]any{"id": "save", "label": "Save"}),
		modplan.Upsert(modplan.Repositories, map[string]any{"id": "orderRepo", "model": "order"}),
	)

	out := CommitPlan(v, base, plan, DefaultOptions())
	assert.False(t, out.Success)
	assert.Equal(t, StageReferential, out.Stage)
	assert.Nil(t, out.Schema)
	assert.Equal(t, 2, out.Report.Applied)
	assert.Contains(t, out.Report.Errors, "Repository orderRepo references missing model order")
	assert.Equal(t, before, base)
}

func TestCommit_StructuralFailureSkipsApply(t *testing.T) {
	v := newTestValidator(t)
	out := Commit(v, testSchema(), []byte(`{"version":"1.0","operations":[{"op":"remove_entity","collection":"pages"}]}`), DefaultOptions())
	assert.False(t, out.Success)
	assert.Equal(t, StageStructural, out.Stage)
	assert.Equal(t, 0, out.Report.Attempted)
	assert.NotEmpty(t, out.Report.Errors)
	assert.Nil(t, out.Schema)
}

func TestCommit_HealingDisabled(t *testing.T) {
	v := newTestValidator(t)
	plan := modplan.New(modplan.LinkRef(modplan.Pages, "home", "sections", "ghost"))

	out := CommitPlan(v, testSchema(), plan, Options{HealSections: false})
	assert.False(t, out.Success)
	assert.Contains(t, out.Report.Errors, "Page home references missing section ghost")
}

func TestCommit_PartialSuccess(t *testing.T) {
	v := newTestValidator(t)
	plan := modplan.New(
		modplan.Remove(modplan.Models, "user"),
		modplan.UpdateFields(modplan.Pages, "home", map[string]any{"title": "Start"}),
	)
	out := CommitPlan(v, testSchema(), plan, DefaultOptions())
	require.True(t, out.Success)
	assert.Equal(t, 1, out.Report.Applied)
	assert.Len(t, out.Report.Errors, 1)
	assert.Equal(t, "Start", out.Schema.GetPage("home").Title)
}

func TestCommit_MaxOperations(t *testing.T) {
	v := newTestValidator(t)
	plan := modplan.New(
		modplan.Remove(modplan.Sections, "orphan"),
		modplan.Remove(modplan.Models, "audit"),
	)
	out := CommitPlan(v, testSchema(), plan, Options{MaxOperations: 1})
	assert.False(t, out.Success)
	assert.Equal(t, StageStructural, out.Stage)
	assert.Equal(t, []string{"operations has 2 items, more than the limit of 1"}, out.Report.Errors)
}

func TestDryRun_ReturnsNoSchema(t *testing.T) {
	v := newTestValidator(t)
	data, err := modplan.New(modplan.Remove(modplan.Sections, "orphan")).Encode()
	require.NoError(t, err)
	out := DryRun(v, testSchema(), data, DefaultOptions())
	assert.True(t, out.Success)
	assert.Nil(t, out.Schema)
	assert.Equal(t, 1, out.Report.Applied)
}

func TestPlanRejectedError(t *testing.T) {
	out := rejected(StageStructural, []string{"operations.0.id incomplete"})
	appErr := PlanRejectedError(out)
	assert.Equal(t, "PLAN_REJECTED", appErr.Code)
	assert.Equal(t, 422, appErr.Status)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "structural", appErr.Details[0].Rule)
	assert.Same(t, &out.Report, appErr.Report)
}
