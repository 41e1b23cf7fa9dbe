package metadata

// Summary is the compact view of a document handed to the planner alongside
// the user's request.
type Summary struct {
	App          string        `json:"app"`
	Pages        []PageSummary `json:"pages"`
	Sections     int           `json:"sections"`
	Components   int           `json:"components"`
	Buttons      int           `json:"buttons"`
	Services     int           `json:"services"`
	Repositories int           `json:"repositories"`
	Models       []string      `json:"models"`
}

type PageSummary struct {
	ID       string `json:"id"`
	Route    string `json:"route"`
	Sections int    `json:"sections"`
}

func (s *Schema) Summarize() Summary {
	sum := Summary{
		App:          s.App.Name,
		Pages:        make([]PageSummary, 0, len(s.Pages)),
		Sections:     len(s.Sections),
		Components:   len(s.Components),
		Buttons:      len(s.Buttons),
		Services:     len(s.Services),
		Repositories: len(s.Repositories),
		Models:       s.ModelIDs(),
	}
	for _, p := range s.Pages {
		sum.Pages = append(sum.Pages, PageSummary{ID: p.ID, Route: p.Route, Sections: len(p.Sections)})
	}
	return sum
}
