package engine

import (
	"fmt"

	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
)

// refList resolves a named reference list on a parent record. It returns nil
// when the parent does not exist.
type refList func(s *metadata.Schema, parentID string) *[]string

// refPaths lists the reference lists that link_ref, unlink_ref and
// reorder_refs may mutate, keyed by parent collection and path.
var refPaths = map[modplan.Collection]map[string]refList{
	modplan.Pages: {
		"sections": func(s *metadata.Schema, id string) *[]string {
			if p := s.GetPage(id); p != nil {
				return &p.Sections
			}
			return nil
		},
	},
}

// resolveRefList finds the parent record and its reference list. The parent is
// checked before the path so a missing parent reports as not found.
func resolveRefList(s *metadata.Schema, op *modplan.Operation) (*[]string, error) {
	a, err := accessorFor(op.ParentCollection)
	if err != nil {
		return nil, err
	}
	if op.ParentCollection == modplan.Models {
		return nil, fmt.Errorf("models cannot hold references")
	}
	if !a.has(s, op.ParentID) {
		return nil, a.notFound(op.ParentID)
	}
	get, ok := refPaths[op.ParentCollection][op.Path]
	if !ok {
		return nil, fmt.Errorf("Unsupported %s path %s.%s", op.Op, op.ParentCollection, op.Path)
	}
	list := get(s, op.ParentID)
	if list == nil {
		return nil, a.notFound(op.ParentID)
	}
	return list, nil
}

func linkRef(s *metadata.Schema, op *modplan.Operation) error {
	list, err := resolveRefList(s, op)
	if err != nil {
		return err
	}
	for _, r := range *list {
		if r == op.Ref {
			return nil
		}
	}
	*list = append(*list, op.Ref)
	return nil
}

func unlinkRef(s *metadata.Schema, op *modplan.Operation) error {
	list, err := resolveRefList(s, op)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(*list))
	for _, r := range *list {
		if r != op.Ref {
			kept = append(kept, r)
		}
	}
	*list = kept
	return nil
}

// reorderRefs replaces the list with order, keeping only ids already present.
// Unknown ids are dropped silently and repeated ids collapse to their first
// position.
func reorderRefs(s *metadata.Schema, op *modplan.Operation) error {
	list, err := resolveRefList(s, op)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(*list))
	for _, r := range *list {
		present[r] = true
	}
	seen := make(map[string]bool, len(op.Order))
	out := make([]string, 0, len(op.Order))
	for _, id := range op.Order {
		if seen[id] {
			continue
		}
		seen[id] = true
		if present[id] {
			out = append(out, id)
		}
	}
	*list = out
	return nil
}
