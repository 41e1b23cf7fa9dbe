package metadata

// Every id'd record implements EntityID / SetEntityID so the engine can address
// collections through one typed accessor per record kind.

type Page struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	Route       string       `json:"route" yaml:"route"`
	Sections    []string     `json:"sections" yaml:"sections"` // section ids
	Layout      string       `json:"layout" yaml:"layout"`     // default, dashboard, form, list
	Metadata    PageMetadata `json:"metadata" yaml:"metadata"`
}

type PageMetadata struct {
	RequiresAuth bool     `json:"requiresAuth" yaml:"requiresAuth"`
	Permissions  []string `json:"permissions" yaml:"permissions"`
	Breadcrumbs  []string `json:"breadcrumbs" yaml:"breadcrumbs"`
	SEO          SEO      `json:"seo" yaml:"seo"`
}

type SEO struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
}

type Section struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Type        string          `json:"type" yaml:"type"`             // table, form, card, chart, list, grid
	Components  []string        `json:"components" yaml:"components"` // component ids
	Layout      string          `json:"layout" yaml:"layout"`         // vertical, horizontal, grid
	Metadata    SectionMetadata `json:"metadata" yaml:"metadata"`
}

type SectionMetadata struct {
	Responsive  bool `json:"responsive" yaml:"responsive"`
	Collapsible bool `json:"collapsible" yaml:"collapsible"`
	Sortable    bool `json:"sortable" yaml:"sortable"`
	Filterable  bool `json:"filterable" yaml:"filterable"`
	Pagination  bool `json:"pagination" yaml:"pagination"`
}

type Component struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Type     string            `json:"type" yaml:"type"` // ui, form, data, layout
	Category string            `json:"category" yaml:"category"`
	Props    []ComponentProp   `json:"props" yaml:"props"`
	Events   []ComponentEvent  `json:"events" yaml:"events"`
	Styles   ComponentStyle    `json:"styles" yaml:"styles"`
	Metadata ComponentMetadata `json:"metadata" yaml:"metadata"`
}

type ComponentProp struct {
	Name         string `json:"name" yaml:"name"`
	Type         string `json:"type" yaml:"type"`
	Required     bool   `json:"required" yaml:"required"`
	DefaultValue any    `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Description  string `json:"description" yaml:"description"`
}

type ComponentEvent struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Payload     any    `json:"payload" yaml:"payload"`
}

type ComponentStyle struct {
	ClassName  string            `json:"className" yaml:"className"`
	Variants   map[string]string `json:"variants" yaml:"variants"`
	Responsive bool              `json:"responsive" yaml:"responsive"`
}

type ComponentMetadata struct {
	Reusable    bool   `json:"reusable" yaml:"reusable"`
	Testable    bool   `json:"testable" yaml:"testable"`
	Accessible  bool   `json:"accessible" yaml:"accessible"`
	Performance string `json:"performance" yaml:"performance"`
}

type Button struct {
	ID       string         `json:"id" yaml:"id"`
	Label    string         `json:"label" yaml:"label"`
	Type     string         `json:"type" yaml:"type"` // primary, secondary, danger, ghost
	Size     string         `json:"size" yaml:"size"` // sm, md, lg
	Icon     string         `json:"icon,omitempty" yaml:"icon,omitempty"`
	Action   ButtonAction   `json:"action" yaml:"action"`
	Metadata ButtonMetadata `json:"metadata" yaml:"metadata"`
}

type ButtonAction struct {
	Type       string         `json:"type" yaml:"type"` // navigate, submit, modal, api, function
	Target     string         `json:"target" yaml:"target"`
	Parameters map[string]any `json:"parameters" yaml:"parameters"`
}

type ButtonMetadata struct {
	Loading      bool `json:"loading" yaml:"loading"`
	Disabled     bool `json:"disabled" yaml:"disabled"`
	Confirmation bool `json:"confirmation" yaml:"confirmation"`
	Analytics    bool `json:"analytics" yaml:"analytics"`
}

func (p *Page) EntityID() string           { return p.ID }
func (p *Page) SetEntityID(id string)      { p.ID = id }
func (s *Section) EntityID() string        { return s.ID }
func (s *Section) SetEntityID(id string)   { s.ID = id }
func (c *Component) EntityID() string      { return c.ID }
func (c *Component) SetEntityID(id string) { c.ID = id }
func (b *Button) EntityID() string         { return b.ID }
func (b *Button) SetEntityID(id string)    { b.ID = id }

// HasSection returns true if the page references the section id.
func (p *Page) HasSection(id string) bool {
	for _, s := range p.Sections {
		if s == id {
			return true
		}
	}
	return false
}
