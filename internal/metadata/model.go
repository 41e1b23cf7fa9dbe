package metadata

import "sort"

type Model struct {
	ID            string              `json:"id" yaml:"id"`
	Name          string              `json:"name" yaml:"name"`
	Description   string              `json:"description" yaml:"description"`
	Fields        []ModelField        `json:"fields" yaml:"fields"`
	Relationships []ModelRelationship `json:"relationships" yaml:"relationships"`
	Metadata      ModelMetadata       `json:"metadata" yaml:"metadata"`
}

type ModelField struct {
	Name         string          `json:"name" yaml:"name"`
	Type         string          `json:"type" yaml:"type"` // string, number, boolean, date, array, object
	Required     bool            `json:"required" yaml:"required"`
	Unique       bool            `json:"unique" yaml:"unique"`
	DefaultValue any             `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Validation   FieldValidation `json:"validation" yaml:"validation"`
}

type FieldValidation struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Custom  string   `json:"custom,omitempty" yaml:"custom,omitempty"`
}

type ModelRelationship struct {
	Type       string `json:"type" yaml:"type"` // one-to-one, one-to-many, many-to-many
	Target     string `json:"target" yaml:"target"`
	ForeignKey string `json:"foreignKey" yaml:"foreignKey"`
	Cascade    bool   `json:"cascade" yaml:"cascade"`
}

type ModelMetadata struct {
	Timestamps bool `json:"timestamps" yaml:"timestamps"`
	SoftDelete bool `json:"softDelete" yaml:"softDelete"`
	Audit      bool `json:"audit" yaml:"audit"`
}

func (m *Model) EntityID() string      { return m.ID }
func (m *Model) SetEntityID(id string) { m.ID = id }

// GetField returns a pointer to the field with the given name, or nil.
func (m *Model) GetField(name string) *ModelField {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

// ModelIDs returns the model keys sorted, so callers get a stable order out of
// the map.
func (s *Schema) ModelIDs() []string {
	ids := make([]string, 0, len(s.Models))
	for id := range s.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
