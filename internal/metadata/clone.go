package metadata

// Clone returns a deep copy of the document. The copy shares no slices, maps or
// free-form values with s, so mutating it never leaks back into the caller's
// schema.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		App:     s.App.clone(),
		AIAgent: s.AIAgent.clone(),
	}

	out.Menus = make([]Menu, len(s.Menus))
	for i := range s.Menus {
		out.Menus[i] = s.Menus[i].Clone()
	}
	out.Pages = make([]Page, len(s.Pages))
	for i := range s.Pages {
		out.Pages[i] = s.Pages[i].Clone()
	}
	out.Sections = make([]Section, len(s.Sections))
	for i := range s.Sections {
		out.Sections[i] = s.Sections[i].Clone()
	}
	out.Components = make([]Component, len(s.Components))
	for i := range s.Components {
		out.Components[i] = s.Components[i].Clone()
	}
	out.Buttons = make([]Button, len(s.Buttons))
	for i := range s.Buttons {
		out.Buttons[i] = s.Buttons[i].Clone()
	}
	out.Services = make([]Service, len(s.Services))
	for i := range s.Services {
		out.Services[i] = s.Services[i].Clone()
	}
	out.Repositories = make([]Repository, len(s.Repositories))
	for i := range s.Repositories {
		out.Repositories[i] = s.Repositories[i].Clone()
	}
	out.Models = make(map[string]Model, len(s.Models))
	for id, m := range s.Models {
		out.Models[id] = m.Clone()
	}
	return out
}

func (a App) clone() App {
	a.Metadata.Tags = cloneStrings(a.Metadata.Tags)
	return a
}

func (a AIAgent) clone() AIAgent {
	a.Capabilities = cloneStrings(a.Capabilities)
	if a.Patterns != nil {
		patterns := make([]AIPattern, len(a.Patterns))
		for i, p := range a.Patterns {
			p.Examples = cloneStrings(p.Examples)
			patterns[i] = p
		}
		a.Patterns = patterns
	}
	if a.Constraints != nil {
		a.Constraints = append([]AIConstraint(nil), a.Constraints...)
	}
	return a
}

func (m Menu) Clone() Menu {
	if m.Items != nil {
		m.Items = append([]MenuItem(nil), m.Items...)
	}
	return m
}

func (p Page) Clone() Page {
	p.Sections = cloneStrings(p.Sections)
	p.Metadata.Permissions = cloneStrings(p.Metadata.Permissions)
	p.Metadata.Breadcrumbs = cloneStrings(p.Metadata.Breadcrumbs)
	p.Metadata.SEO.Keywords = cloneStrings(p.Metadata.SEO.Keywords)
	return p
}

func (s Section) Clone() Section {
	s.Components = cloneStrings(s.Components)
	return s
}

func (c Component) Clone() Component {
	if c.Props != nil {
		props := make([]ComponentProp, len(c.Props))
		for i, p := range c.Props {
			p.DefaultValue = CloneValue(p.DefaultValue)
			props[i] = p
		}
		c.Props = props
	}
	if c.Events != nil {
		events := make([]ComponentEvent, len(c.Events))
		for i, e := range c.Events {
			e.Payload = CloneValue(e.Payload)
			events[i] = e
		}
		c.Events = events
	}
	if c.Styles.Variants != nil {
		variants := make(map[string]string, len(c.Styles.Variants))
		for k, v := range c.Styles.Variants {
			variants[k] = v
		}
		c.Styles.Variants = variants
	}
	return c
}

func (b Button) Clone() Button {
	if b.Action.Parameters != nil {
		b.Action.Parameters = cloneObject(b.Action.Parameters)
	}
	return b
}

func (s Service) Clone() Service {
	s.Dependencies = cloneStrings(s.Dependencies)
	if s.Methods != nil {
		methods := make([]ServiceMethod, len(s.Methods))
		for i, m := range s.Methods {
			if m.Parameters != nil {
				params := make([]ServiceParameter, len(m.Parameters))
				for j, p := range m.Parameters {
					p.DefaultValue = CloneValue(p.DefaultValue)
					params[j] = p
				}
				m.Parameters = params
			}
			methods[i] = m
		}
		s.Methods = methods
	}
	return s
}

func (r Repository) Clone() Repository {
	if r.Methods != nil {
		methods := make([]RepositoryMethod, len(r.Methods))
		for i, m := range r.Methods {
			if m.Parameters != nil {
				m.Parameters = append([]RepositoryParameter(nil), m.Parameters...)
			}
			methods[i] = m
		}
		r.Methods = methods
	}
	r.Metadata.Indexes = cloneStrings(r.Metadata.Indexes)
	r.Metadata.Constraints = cloneStrings(r.Metadata.Constraints)
	return r
}

func (m Model) Clone() Model {
	if m.Fields != nil {
		fields := make([]ModelField, len(m.Fields))
		for i, f := range m.Fields {
			f.DefaultValue = CloneValue(f.DefaultValue)
			if f.Validation.Min != nil {
				v := *f.Validation.Min
				f.Validation.Min = &v
			}
			if f.Validation.Max != nil {
				v := *f.Validation.Max
				f.Validation.Max = &v
			}
			fields[i] = f
		}
		m.Fields = fields
	}
	if m.Relationships != nil {
		m.Relationships = append([]ModelRelationship(nil), m.Relationships...)
	}
	return m
}

// CloneValue deep-copies a free-form JSON value (objects, arrays, scalars).
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneObject(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
