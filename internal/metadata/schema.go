// Package metadata holds the application schema document that Mod Plans mutate:
// pages, sections, components, buttons, services, repositories and data models.
package metadata

// Schema is the root document. The engine never keeps a reference to a Schema
// across calls; every apply clones its input.
type Schema struct {
	App          App              `json:"app" yaml:"app"`
	Menus        []Menu           `json:"menus" yaml:"menus"`
	Pages        []Page           `json:"pages" yaml:"pages"`
	Sections     []Section        `json:"sections" yaml:"sections"`
	Components   []Component      `json:"components" yaml:"components"`
	Buttons      []Button         `json:"buttons" yaml:"buttons"`
	Services     []Service        `json:"services" yaml:"services"`
	Repositories []Repository     `json:"repositories" yaml:"repositories"`
	Models       map[string]Model `json:"models" yaml:"models"`
	AIAgent      AIAgent          `json:"ai_agent" yaml:"ai_agent"`
}

type App struct {
	Name        string      `json:"name" yaml:"name"`
	Version     string      `json:"version" yaml:"version"`
	Description string      `json:"description" yaml:"description"`
	Metadata    AppMetadata `json:"metadata" yaml:"metadata"`
}

type AppMetadata struct {
	Author       string   `json:"author" yaml:"author"`
	Created      string   `json:"created" yaml:"created"`
	LastModified string   `json:"lastModified" yaml:"lastModified"`
	Tags         []string `json:"tags" yaml:"tags"`
	Complexity   string   `json:"complexity" yaml:"complexity"` // simple, medium, complex
}

type Menu struct {
	ID      string     `json:"id" yaml:"id"`
	Label   string     `json:"label" yaml:"label"`
	Icon    string     `json:"icon,omitempty" yaml:"icon,omitempty"`
	Items   []MenuItem `json:"items" yaml:"items"`
	Order   int        `json:"order" yaml:"order"`
	Visible bool       `json:"visible" yaml:"visible"`
}

type MenuItem struct {
	ID      string `json:"id" yaml:"id"`
	Label   string `json:"label" yaml:"label"`
	Icon    string `json:"icon,omitempty" yaml:"icon,omitempty"`
	PageID  string `json:"pageId" yaml:"pageId"`
	Order   int    `json:"order" yaml:"order"`
	Visible bool   `json:"visible" yaml:"visible"`
}

type AIAgent struct {
	Capabilities []string       `json:"capabilities" yaml:"capabilities"`
	Patterns     []AIPattern    `json:"patterns" yaml:"patterns"`
	Constraints  []AIConstraint `json:"constraints" yaml:"constraints"`
	Metadata     AIMetadata     `json:"metadata" yaml:"metadata"`
}

type AIPattern struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	Examples       []string `json:"examples" yaml:"examples"`
	Implementation string   `json:"implementation" yaml:"implementation"`
}

type AIConstraint struct {
	Type     string `json:"type" yaml:"type"` // security, performance, compatibility, business
	Rule     string `json:"rule" yaml:"rule"`
	Severity string `json:"severity" yaml:"severity"`
}

type AIMetadata struct {
	Version      string  `json:"version" yaml:"version"`
	LastTraining string  `json:"lastTraining" yaml:"lastTraining"`
	Accuracy     float64 `json:"accuracy" yaml:"accuracy"`
	Confidence   float64 `json:"confidence" yaml:"confidence"`
}

// NewSchema returns an empty document with every collection initialized so it
// encodes as [] / {} rather than null.
func NewSchema() *Schema {
	s := &Schema{}
	s.Normalize()
	return s
}

// Normalize replaces nil collections with empty ones.
func (s *Schema) Normalize() {
	if s.Menus == nil {
		s.Menus = []Menu{}
	}
	if s.Pages == nil {
		s.Pages = []Page{}
	}
	if s.Sections == nil {
		s.Sections = []Section{}
	}
	if s.Components == nil {
		s.Components = []Component{}
	}
	if s.Buttons == nil {
		s.Buttons = []Button{}
	}
	if s.Services == nil {
		s.Services = []Service{}
	}
	if s.Repositories == nil {
		s.Repositories = []Repository{}
	}
	if s.Models == nil {
		s.Models = make(map[string]Model)
	}
	for i := range s.Pages {
		if s.Pages[i].Sections == nil {
			s.Pages[i].Sections = []string{}
		}
	}
	for i := range s.Sections {
		if s.Sections[i].Components == nil {
			s.Sections[i].Components = []string{}
		}
	}
}

// GetPage returns a pointer to the page with the given id, or nil.
func (s *Schema) GetPage(id string) *Page {
	for i := range s.Pages {
		if s.Pages[i].ID == id {
			return &s.Pages[i]
		}
	}
	return nil
}

// GetSection returns a pointer to the section with the given id, or nil.
func (s *Schema) GetSection(id string) *Section {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i]
		}
	}
	return nil
}

// GetRepository returns a pointer to the repository with the given id, or nil.
func (s *Schema) GetRepository(id string) *Repository {
	for i := range s.Repositories {
		if s.Repositories[i].ID == id {
			return &s.Repositories[i]
		}
	}
	return nil
}

// HasModel returns true if a model is registered under id.
func (s *Schema) HasModel(id string) bool {
	_, ok := s.Models[id]
	return ok
}

// SectionIDs returns section ids in document order.
func (s *Schema) SectionIDs() []string {
	ids := make([]string, len(s.Sections))
	for i, sec := range s.Sections {
		ids[i] = sec.ID
	}
	return ids
}
