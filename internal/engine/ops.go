package engine

import (
	"fmt"

	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
)

// upsert inserts item or shallow-merges it over the existing record with the
// same id. Unknown fields are dropped with a warning.
func upsert(s *metadata.Schema, op *modplan.Operation) ([]string, error) {
	a, err := accessorFor(op.Collection)
	if err != nil {
		return nil, err
	}
	id := op.ItemID()
	if id == "" {
		return nil, fmt.Errorf("Upsert requires item.id for %s", op.Collection)
	}

	obj := map[string]any{}
	if a.has(s, id) {
		if obj, err = a.object(s, id); err != nil {
			return nil, err
		}
	}
	shallowMerge(obj, op.Item)

	warnings, err := a.store(s, obj, false)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op.Collection, id, err)
	}
	for i, w := range warnings {
		warnings[i] = fmt.Sprintf("%s %s: %s", op.Collection, id, w)
	}
	return warnings, nil
}

// updateFields deep-merges changes into an existing record.
func updateFields(s *metadata.Schema, op *modplan.Operation) error {
	a, err := accessorFor(op.Collection)
	if err != nil {
		return err
	}
	obj, err := a.object(s, op.ID)
	if err != nil {
		return err
	}
	if v, ok := op.Changes["id"]; ok && v != op.ID {
		return fmt.Errorf("Cannot change id of %s %s with update_fields; use rename_entity", op.Collection, op.ID)
	}
	deepMerge(obj, op.Changes)
	if _, err := a.store(s, obj, true); err != nil {
		return fmt.Errorf("%s %s: %w", op.Collection, op.ID, err)
	}
	return nil
}

// removeEntity deletes a record unless something still depends on it.
func removeEntity(s *metadata.Schema, op *modplan.Operation) error {
	a, err := accessorFor(op.Collection)
	if err != nil {
		return err
	}
	if !a.has(s, op.ID) {
		return a.notFound(op.ID)
	}
	switch op.Collection {
	case modplan.Models:
		if s.ReferencesModel(op.ID) {
			return fmt.Errorf("Cannot remove model %s; still referenced by repositories", op.ID)
		}
	case modplan.Sections:
		if s.ReferencesSection(op.ID) {
			return fmt.Errorf("Cannot remove section %s; referenced by a page", op.ID)
		}
	}
	a.remove(s, op.ID)
	return nil
}

// renameEntity changes a record id and rewrites the references that point at
// it.
func renameEntity(s *metadata.Schema, op *modplan.Operation) error {
	a, err := accessorFor(op.Collection)
	if err != nil {
		return err
	}
	if !a.has(s, op.OldID) {
		return a.notFound(op.OldID)
	}
	if op.OldID == op.NewID {
		return nil
	}
	if a.has(s, op.NewID) {
		return fmt.Errorf("Cannot rename %s %s to %s; id already exists", op.Collection, op.OldID, op.NewID)
	}
	a.rename(s, op.OldID, op.NewID)
	rewriteRefs(s, op.Collection, op.OldID, op.NewID)
	return nil
}

func rewriteRefs(s *metadata.Schema, c modplan.Collection, oldID, newID string) {
	switch c {
	case modplan.Models:
		for i := range s.Repositories {
			if s.Repositories[i].Model == oldID {
				s.Repositories[i].Model = newID
			}
		}
	case modplan.Sections:
		for i := range s.Pages {
			replaceAll(s.Pages[i].Sections, oldID, newID)
		}
	case modplan.Components:
		for i := range s.Sections {
			replaceAll(s.Sections[i].Components, oldID, newID)
		}
	case modplan.Services:
		for i := range s.Services {
			replaceAll(s.Services[i].Dependencies, oldID, newID)
		}
	case modplan.Pages:
		for i := range s.Menus {
			for j := range s.Menus[i].Items {
				if s.Menus[i].Items[j].PageID == oldID {
					s.Menus[i].Items[j].PageID = newID
				}
			}
		}
		for i := range s.Buttons {
			act := &s.Buttons[i].Action
			if act.Type == "navigate" && act.Target == oldID {
				act.Target = newID
			}
		}
	}
}

func replaceAll(ids []string, oldID, newID string) {
	for i, id := range ids {
		if id == oldID {
			ids[i] = newID
		}
	}
}
