package engine

import (
	"fmt"

	"corisa-backend/internal/metadata"
)

// ValidationResult is returned by both the structural and the referential
// checks. Warnings never affect Valid.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newValidationResult(errs, warnings []string) ValidationResult {
	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warnings}
}

// CheckIntegrity verifies the cross-record references of a document. Page
// sections and repository models must resolve; the softer references
// (section components, menu pages, service dependencies, navigate buttons)
// are reported as warnings.
func CheckIntegrity(s *metadata.Schema) ValidationResult {
	var errs, warnings []string

	sections := make(map[string]bool, len(s.Sections))
	for _, sec := range s.Sections {
		sections[sec.ID] = true
	}
	for _, p := range s.Pages {
		for _, ref := range p.Sections {
			if ref == "" {
				errs = append(errs, fmt.Sprintf("Page %s has an empty section reference", p.ID))
				continue
			}
			if !sections[ref] {
				errs = append(errs, fmt.Sprintf("Page %s references missing section %s", p.ID, ref))
			}
		}
	}
	for _, r := range s.Repositories {
		if r.Model != "" && !s.HasModel(r.Model) {
			errs = append(errs, fmt.Sprintf("Repository %s references missing model %s", r.ID, r.Model))
		}
	}

	components := make(map[string]bool, len(s.Components))
	for _, c := range s.Components {
		components[c.ID] = true
	}
	for _, sec := range s.Sections {
		for _, ref := range sec.Components {
			if !components[ref] {
				warnings = append(warnings, fmt.Sprintf("Section %s references missing component %s", sec.ID, ref))
			}
		}
	}

	pages := make(map[string]bool, len(s.Pages)*2)
	for _, p := range s.Pages {
		pages[p.ID] = true
		if p.Route != "" {
			pages[p.Route] = true
		}
	}
	for _, m := range s.Menus {
		for _, item := range m.Items {
			if item.PageID != "" && !pages[item.PageID] {
				warnings = append(warnings, fmt.Sprintf("Menu %s item %s references missing page %s", m.ID, item.ID, item.PageID))
			}
		}
	}

	services := make(map[string]bool, len(s.Services))
	for _, svc := range s.Services {
		services[svc.ID] = true
	}
	for _, svc := range s.Services {
		for _, dep := range svc.Dependencies {
			if !services[dep] {
				warnings = append(warnings, fmt.Sprintf("Service %s depends on missing service %s", svc.ID, dep))
			}
		}
	}

	for _, b := range s.Buttons {
		if b.Action.Type == "navigate" && b.Action.Target != "" && !pages[b.Action.Target] {
			warnings = append(warnings, fmt.Sprintf("Button %s navigates to unknown page %s", b.ID, b.Action.Target))
		}
	}

	return newValidationResult(errs, warnings)
}
