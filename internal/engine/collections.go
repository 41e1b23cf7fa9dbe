package engine

import (
	"fmt"

	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
)

// accessor addresses one collection of the schema document by record id.
type accessor interface {
	has(s *metadata.Schema, id string) bool
	ids(s *metadata.Schema) []string
	object(s *metadata.Schema, id string) (map[string]any, error)
	store(s *metadata.Schema, obj map[string]any, strict bool) ([]string, error)
	remove(s *metadata.Schema, id string)
	rename(s *metadata.Schema, oldID, newID string)
	notFound(id string) error
}

// record is the pointer side of an id'd record type.
type record[T any] interface {
	*T
	EntityID() string
	SetEntityID(string)
}

type sliceAccessor[T any, P record[T]] struct {
	name  modplan.Collection
	slice func(*metadata.Schema) *[]T
}

func (a sliceAccessor[T, P]) index(s *metadata.Schema, id string) int {
	items := *a.slice(s)
	for i := range items {
		if P(&items[i]).EntityID() == id {
			return i
		}
	}
	return -1
}

func (a sliceAccessor[T, P]) has(s *metadata.Schema, id string) bool {
	return a.index(s, id) >= 0
}

func (a sliceAccessor[T, P]) ids(s *metadata.Schema) []string {
	items := *a.slice(s)
	out := make([]string, len(items))
	for i := range items {
		out[i] = P(&items[i]).EntityID()
	}
	return out
}

func (a sliceAccessor[T, P]) object(s *metadata.Schema, id string) (map[string]any, error) {
	i := a.index(s, id)
	if i < 0 {
		return nil, a.notFound(id)
	}
	return toObject(&(*a.slice(s))[i])
}

func (a sliceAccessor[T, P]) store(s *metadata.Schema, obj map[string]any, strict bool) ([]string, error) {
	rec, warnings, err := decodeRecord[T](obj, strict)
	if err != nil {
		return nil, err
	}
	id := P(&rec).EntityID()
	items := a.slice(s)
	if i := a.index(s, id); i >= 0 {
		(*items)[i] = rec
	} else {
		*items = append(*items, rec)
	}
	return warnings, nil
}

func (a sliceAccessor[T, P]) remove(s *metadata.Schema, id string) {
	i := a.index(s, id)
	if i < 0 {
		return
	}
	items := a.slice(s)
	*items = append((*items)[:i], (*items)[i+1:]...)
}

func (a sliceAccessor[T, P]) rename(s *metadata.Schema, oldID, newID string) {
	if i := a.index(s, oldID); i >= 0 {
		P(&(*a.slice(s))[i]).SetEntityID(newID)
	}
}

func (a sliceAccessor[T, P]) notFound(id string) error {
	return fmt.Errorf("%s %s not found", a.name, id)
}

// modelAccessor addresses the models map. The map key and Model.ID are kept
// equal.
type modelAccessor struct{}

func (modelAccessor) has(s *metadata.Schema, id string) bool {
	return s.HasModel(id)
}

func (modelAccessor) ids(s *metadata.Schema) []string {
	return s.ModelIDs()
}

func (a modelAccessor) object(s *metadata.Schema, id string) (map[string]any, error) {
	m, ok := s.Models[id]
	if !ok {
		return nil, a.notFound(id)
	}
	return toObject(&m)
}

func (modelAccessor) store(s *metadata.Schema, obj map[string]any, strict bool) ([]string, error) {
	m, warnings, err := decodeRecord[metadata.Model](obj, strict)
	if err != nil {
		return nil, err
	}
	s.Models[m.ID] = m
	return warnings, nil
}

func (modelAccessor) remove(s *metadata.Schema, id string) {
	delete(s.Models, id)
}

func (modelAccessor) rename(s *metadata.Schema, oldID, newID string) {
	m, ok := s.Models[oldID]
	if !ok {
		return
	}
	delete(s.Models, oldID)
	m.ID = newID
	s.Models[newID] = m
}

func (modelAccessor) notFound(id string) error {
	return fmt.Errorf("Model %s not found", id)
}

var accessors = map[modplan.Collection]accessor{
	modplan.Models: modelAccessor{},
	modplan.Repositories: sliceAccessor[metadata.Repository, *metadata.Repository]{
		name:  modplan.Repositories,
		slice: func(s *metadata.Schema) *[]metadata.Repository { return &s.Repositories },
	},
	modplan.Services: sliceAccessor[metadata.Service, *metadata.Service]{
		name:  modplan.Services,
		slice: func(s *metadata.Schema) *[]metadata.Service { return &s.Services },
	},
	modplan.Pages: sliceAccessor[metadata.Page, *metadata.Page]{
		name:  modplan.Pages,
		slice: func(s *metadata.Schema) *[]metadata.Page { return &s.Pages },
	},
	modplan.Sections: sliceAccessor[metadata.Section, *metadata.Section]{
		name:  modplan.Sections,
		slice: func(s *metadata.Schema) *[]metadata.Section { return &s.Sections },
	},
	modplan.Components: sliceAccessor[metadata.Component, *metadata.Component]{
		name:  modplan.Components,
		slice: func(s *metadata.Schema) *[]metadata.Component { return &s.Components },
	},
	modplan.Buttons: sliceAccessor[metadata.Button, *metadata.Button]{
		name:  modplan.Buttons,
		slice: func(s *metadata.Schema) *[]metadata.Button { return &s.Buttons },
	},
}

func accessorFor(c modplan.Collection) (accessor, error) {
	a, ok := accessors[c]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	return a, nil
}

// counts returns the size of every collection, keyed by collection name.
func counts(s *metadata.Schema) map[string]int {
	out := make(map[string]int, len(accessors))
	for c, a := range accessors {
		out[string(c)] = len(a.ids(s))
	}
	return out
}
