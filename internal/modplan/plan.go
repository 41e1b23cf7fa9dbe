// Package modplan defines the Mod Plan grammar: a versioned, ordered list of
// declarative operations over the collections of a metadata.Schema.
package modplan

import (
	"encoding/json"
	"fmt"
)

// Version is the plan format version emitted by this package.
const Version = "1.0"

// Collection names a top-level collection of the schema document.
type Collection string

const (
	Models       Collection = "models"
	Repositories Collection = "repositories"
	Services     Collection = "services"
	Pages        Collection = "pages"
	Sections     Collection = "sections"
	Components   Collection = "components"
	Buttons      Collection = "buttons"
)

// Collections lists every collection in builder order.
var Collections = []Collection{Models, Repositories, Services, Sections, Pages, Components, Buttons}

func (c Collection) Valid() bool {
	for _, k := range Collections {
		if k == c {
			return true
		}
	}
	return false
}

// Kind is the operation tag.
type Kind string

const (
	OpUpsertEntity Kind = "upsert_entity"
	OpUpdateFields Kind = "update_fields"
	OpRemoveEntity Kind = "remove_entity"
	OpRenameEntity Kind = "rename_entity"
	OpLinkRef      Kind = "link_ref"
	OpUnlinkRef    Kind = "unlink_ref"
	OpReorderRefs  Kind = "reorder_refs"
)

var Kinds = []Kind{OpUpsertEntity, OpUpdateFields, OpRemoveEntity, OpRenameEntity, OpLinkRef, OpUnlinkRef, OpReorderRefs}

func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// IsRefOp reports whether the kind mutates a reference list on a parent record.
func (k Kind) IsRefOp() bool {
	return k == OpLinkRef || k == OpUnlinkRef || k == OpReorderRefs
}

// Guards are optional preconditions on an operation.
type Guards struct {
	IfMissing bool     `json:"ifMissing,omitempty"`
	IfExists  bool     `json:"ifExists,omitempty"`
	Assert    []string `json:"assert,omitempty"`
}

// Operation is one tagged plan step. Which fields are meaningful depends on Op:
//
//	upsert_entity  collection, item
//	update_fields  collection, id, changes
//	remove_entity  collection, id
//	rename_entity  collection, oldId, newId
//	link_ref       parentCollection, parentId, path, ref
//	unlink_ref     parentCollection, parentId, path, ref
//	reorder_refs   parentCollection, parentId, path, order
type Operation struct {
	Op               Kind           `json:"op"`
	Collection       Collection     `json:"collection,omitempty"`
	Item             map[string]any `json:"item,omitempty"`
	ID               string         `json:"id,omitempty"`
	Changes          map[string]any `json:"changes,omitempty"`
	OldID            string         `json:"oldId,omitempty"`
	NewID            string         `json:"newId,omitempty"`
	ParentCollection Collection     `json:"parentCollection,omitempty"`
	ParentID         string         `json:"parentId,omitempty"`
	Path             string         `json:"path,omitempty"`
	Ref              string         `json:"ref,omitempty"`
	Order            []string       `json:"order,omitempty"`
	Guards           *Guards        `json:"guards,omitempty"`
}

// MarshalJSON always emits the payload field of the operation's kind, even
// when it is empty, so an empty reorder or change set still matches the
// grammar.
func (o Operation) MarshalJSON() ([]byte, error) {
	type alias Operation
	w := struct {
		alias
		Item    *map[string]any `json:"item,omitempty"`
		Changes *map[string]any `json:"changes,omitempty"`
		Order   *[]string       `json:"order,omitempty"`
	}{alias: alias(o)}
	if o.Op == OpUpsertEntity || o.Item != nil {
		item := o.Item
		if item == nil {
			item = map[string]any{}
		}
		w.Item = &item
	}
	if o.Op == OpUpdateFields || o.Changes != nil {
		changes := o.Changes
		if changes == nil {
			changes = map[string]any{}
		}
		w.Changes = &changes
	}
	if o.Op == OpReorderRefs || o.Order != nil {
		order := o.Order
		if order == nil {
			order = []string{}
		}
		w.Order = &order
	}
	return json.Marshal(w)
}

// ItemID returns item.id when it is a string.
func (o Operation) ItemID() string {
	id, _ := o.Item["id"].(string)
	return id
}

// Target returns the collection and id the operation addresses. Reference
// operations address their parent record.
func (o Operation) Target() (Collection, string) {
	switch o.Op {
	case OpUpsertEntity:
		return o.Collection, o.ItemID()
	case OpRenameEntity:
		return o.Collection, o.OldID
	case OpLinkRef, OpUnlinkRef, OpReorderRefs:
		return o.ParentCollection, o.ParentID
	default:
		return o.Collection, o.ID
	}
}

// Plan is an ordered batch of operations.
type Plan struct {
	Version    string      `json:"version"`
	Operations []Operation `json:"operations"`
}

// New returns a plan at the current version holding ops.
func New(ops ...Operation) *Plan {
	if ops == nil {
		ops = []Operation{}
	}
	return &Plan{Version: Version, Operations: ops}
}

// Add appends operations and returns the plan for chaining.
func (p *Plan) Add(ops ...Operation) *Plan {
	p.Operations = append(p.Operations, ops...)
	return p
}

// Decode parses a plan document. It does not validate it against the grammar;
// use the engine validator for that.
func Decode(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if p.Operations == nil {
		p.Operations = []Operation{}
	}
	return &p, nil
}

// Encode renders the plan as JSON.
func (p *Plan) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return data, nil
}

func Upsert(c Collection, item map[string]any) Operation {
	return Operation{Op: OpUpsertEntity, Collection: c, Item: item}
}

func UpdateFields(c Collection, id string, changes map[string]any) Operation {
	return Operation{Op: OpUpdateFields, Collection: c, ID: id, Changes: changes}
}

func Remove(c Collection, id string) Operation {
	return Operation{Op: OpRemoveEntity, Collection: c, ID: id}
}

func Rename(c Collection, oldID, newID string) Operation {
	return Operation{Op: OpRenameEntity, Collection: c, OldID: oldID, NewID: newID}
}

func LinkRef(parent Collection, parentID, path, ref string) Operation {
	return Operation{Op: OpLinkRef, ParentCollection: parent, ParentID: parentID, Path: path, Ref: ref}
}

func UnlinkRef(parent Collection, parentID, path, ref string) Operation {
	return Operation{Op: OpUnlinkRef, ParentCollection: parent, ParentID: parentID, Path: path, Ref: ref}
}

func ReorderRefs(parent Collection, parentID, path string, order []string) Operation {
	return Operation{Op: OpReorderRefs, ParentCollection: parent, ParentID: parentID, Path: path, Order: order}
}

// WithGuards returns a copy of o carrying g.
func (o Operation) WithGuards(g Guards) Operation {
	o.Guards = &g
	return o
}
