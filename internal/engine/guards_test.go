package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corisa-backend/internal/modplan"
)

func TestGuards_IfExistsSkipsMissingTarget(t *testing.T) {
	res := apply(t, testSchema(),
		modplan.Remove(modplan.Buttons, "ghost").WithGuards(modplan.Guards{IfExists: true}),
		modplan.UpdateFields(modplan.Pages, "home", map[string]any{"title": "Start"}).WithGuards(modplan.Guards{IfExists: true}),
	)
	assert.Empty(t, res.Report.Errors)
	assert.Equal(t, 1, res.Report.Applied)
	assert.Equal(t, 1, res.Report.Skipped)
	assert.Equal(t, 2, res.Report.Attempted)
	assert.Equal(t, []string{"op 0 (remove_entity): skipped, ifExists guard not met: buttons ghost does not exist"}, res.Report.Warnings)
	assert.Equal(t, "Start", res.Schema.GetPage("home").Title)
}

func TestGuards_IfMissingMakesUpsertCreateOnly(t *testing.T) {
	guard := modplan.Guards{IfMissing: true}
	res := apply(t, testSchema(),
		modplan.Upsert(modplan.Sections, map[string]any{"id": "hero", "title": "Replaced"}).WithGuards(guard),
		modplan.Upsert(modplan.Sections, map[string]any{"id": "faq", "title": "FAQ"}).WithGuards(guard),
	)
	assert.Empty(t, res.Report.Errors)
	assert.Equal(t, 1, res.Report.Skipped)
	assert.Equal(t, "Hero", res.Schema.GetSection("hero").Title)
	assert.NotNil(t, res.Schema.GetSection("faq"))
}

func TestGuards_Assert(t *testing.T) {
	res := apply(t, testSchema(),
		modplan.LinkRef(modplan.Pages, "home", "sections", "orphan").
			WithGuards(modplan.Guards{Assert: []string{`"orphan" in ids.sections`, `len(target.sections) < 5`}}),
		modplan.Upsert(modplan.Pages, map[string]any{"id": "extra"}).
			WithGuards(modplan.Guards{Assert: []string{"counts.pages < 2"}}),
		modplan.UpdateFields(modplan.Sections, "orphan", map[string]any{"title": "Linked"}).
			WithGuards(modplan.Guards{Assert: []string{"exists && collection == 'sections' && id == 'orphan'"}}),
	)
	assert.Equal(t, 2, res.Report.Applied)
	assert.Equal(t, []string{"op 1 (upsert_entity): Assertion failed: counts.pages < 2"}, res.Report.Errors)
	assert.Nil(t, res.Schema.GetPage("extra"))
}

func TestGuards_AssertCompileError(t *testing.T) {
	res := apply(t, testSchema(),
		modplan.Remove(modplan.Sections, "orphan").WithGuards(modplan.Guards{Assert: []string{"exists &&"}}),
	)
	require.Len(t, res.Report.Errors, 1)
	assert.Contains(t, res.Report.Errors[0], `op 0 (remove_entity): assert "exists &&": compile assertion`)
	assert.NotNil(t, res.Schema.GetSection("orphan"))
}

func TestCompileAssertion_RequiresBool(t *testing.T) {
	_, err := CompileAssertion("1 + 2")
	assert.Error(t, err)
	_, err = CompileAssertion("exists")
	assert.NoError(t, err)
}
