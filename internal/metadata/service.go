package metadata

type Service struct {
	ID           string          `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Description  string          `json:"description" yaml:"description"`
	Methods      []ServiceMethod `json:"methods" yaml:"methods"`
	Dependencies []string        `json:"dependencies" yaml:"dependencies"` // service ids
	Metadata     ServiceMetadata `json:"metadata" yaml:"metadata"`
}

type ServiceMethod struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Parameters  []ServiceParameter `json:"parameters" yaml:"parameters"`
	ReturnType  string             `json:"returnType" yaml:"returnType"`
	Async       bool               `json:"async" yaml:"async"`
}

type ServiceParameter struct {
	Name         string `json:"name" yaml:"name"`
	Type         string `json:"type" yaml:"type"`
	Required     bool   `json:"required" yaml:"required"`
	DefaultValue any    `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

type ServiceMetadata struct {
	Version       string `json:"version" yaml:"version"`
	Author        string `json:"author" yaml:"author"`
	Documentation string `json:"documentation" yaml:"documentation"`
	Testing       bool   `json:"testing" yaml:"testing"`
}

type Repository struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Model       string             `json:"model" yaml:"model"` // key into Schema.Models
	Methods     []RepositoryMethod `json:"methods" yaml:"methods"`
	Metadata    RepositoryMetadata `json:"metadata" yaml:"metadata"`
}

type RepositoryMethod struct {
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	Type        string                `json:"type" yaml:"type"` // create, read, update, delete, custom
	Parameters  []RepositoryParameter `json:"parameters" yaml:"parameters"`
	ReturnType  string                `json:"returnType" yaml:"returnType"`
}

type RepositoryParameter struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Required    bool   `json:"required" yaml:"required"`
	Description string `json:"description" yaml:"description"`
}

type RepositoryMetadata struct {
	Database    string   `json:"database" yaml:"database"`
	Table       string   `json:"table" yaml:"table"`
	Indexes     []string `json:"indexes" yaml:"indexes"`
	Constraints []string `json:"constraints" yaml:"constraints"`
}

func (s *Service) EntityID() string         { return s.ID }
func (s *Service) SetEntityID(id string)    { s.ID = id }
func (r *Repository) EntityID() string      { return r.ID }
func (r *Repository) SetEntityID(id string) { r.ID = id }

// ReferencesModel returns true if any repository points at the model id.
func (s *Schema) ReferencesModel(modelID string) bool {
	for _, r := range s.Repositories {
		if r.Model == modelID {
			return true
		}
	}
	return false
}

// ReferencesSection returns true if any page lists the section id.
func (s *Schema) ReferencesSection(sectionID string) bool {
	for i := range s.Pages {
		if s.Pages[i].HasSection(sectionID) {
			return true
		}
	}
	return false
}
