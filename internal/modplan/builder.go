package modplan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gosimple/slug"
)

// Modifications is a partial schema document as produced by heuristics or a
// planner: the records to add or change, per collection.
type Modifications struct {
	Models       map[string]map[string]any `json:"models,omitempty"`
	Repositories []map[string]any          `json:"repositories,omitempty"`
	Services     []map[string]any          `json:"services,omitempty"`
	Sections     []map[string]any          `json:"sections,omitempty"`
	Pages        []map[string]any          `json:"pages,omitempty"`
	Components   []map[string]any          `json:"components,omitempty"`
	Buttons      []map[string]any          `json:"buttons,omitempty"`
}

// Empty reports whether no collection carries any record.
func (m *Modifications) Empty() bool {
	return len(m.Models) == 0 && len(m.Repositories) == 0 && len(m.Services) == 0 &&
		len(m.Sections) == 0 && len(m.Pages) == 0 && len(m.Components) == 0 && len(m.Buttons) == 0
}

// BuildError lists the records the builder could not turn into operations.
type BuildError struct {
	Problems []string
}

func (e *BuildError) Error() string {
	return "build plan: " + strings.Join(e.Problems, "; ")
}

// idSources are the fields an id is derived from when a record has none.
var idSources = []string{"name", "title", "label"}

// Build converts modifications into a plan of upsert_entity operations. Records
// are emitted collection by collection so that referenced records come before
// their referrers: models, repositories, services, sections, pages, components,
// buttons. Order inside each collection is preserved; model keys are sorted.
func Build(mods *Modifications) (*Plan, error) {
	plan := New()
	if mods == nil {
		return plan, nil
	}
	var problems []string

	keys := make([]string, 0, len(mods.Models))
	for k := range mods.Models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		item := copyItem(mods.Models[k])
		item["id"] = k
		plan.Add(Upsert(Models, item))
	}

	lists := []struct {
		collection Collection
		records    []map[string]any
	}{
		{Repositories, mods.Repositories},
		{Services, mods.Services},
		{Sections, mods.Sections},
		{Pages, mods.Pages},
		{Components, mods.Components},
		{Buttons, mods.Buttons},
	}
	for _, l := range lists {
		for i, rec := range l.records {
			item := copyItem(rec)
			if id, ok := item["id"].(string); !ok || id == "" {
				derived := deriveID(item)
				if derived == "" {
					problems = append(problems, fmt.Sprintf("%s[%d] has no id and no name, title or label to derive one from", l.collection, i))
					continue
				}
				item["id"] = derived
			}
			plan.Add(Upsert(l.collection, item))
		}
	}

	if len(problems) > 0 {
		return nil, &BuildError{Problems: problems}
	}
	return plan, nil
}

func deriveID(item map[string]any) string {
	for _, field := range idSources {
		if v, ok := item[field].(string); ok {
			if id := slug.Make(v); id != "" {
				return id
			}
		}
	}
	return ""
}

func copyItem(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	return out
}
