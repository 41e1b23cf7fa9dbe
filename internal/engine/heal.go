package engine

import (
	"fmt"
	"strings"
	"unicode"

	"corisa-backend/internal/metadata"
)

// Heal appends a placeholder section for every page section reference that
// does not resolve, in page order. Empty references are left for
// CheckIntegrity to report. It mutates s and returns one warning per
// placeholder.
func Heal(s *metadata.Schema) []string {
	known := make(map[string]bool, len(s.Sections))
	for _, sec := range s.Sections {
		known[sec.ID] = true
	}
	var warnings []string
	for _, p := range s.Pages {
		for _, ref := range p.Sections {
			if ref == "" || known[ref] {
				continue
			}
			known[ref] = true
			s.Sections = append(s.Sections, PlaceholderSection(ref))
			warnings = append(warnings, fmt.Sprintf("Created placeholder section %s referenced by page %s", ref, p.ID))
		}
	}
	return warnings
}

// PlaceholderSection is the minimal stand-in for a missing section.
func PlaceholderSection(id string) metadata.Section {
	return metadata.Section{
		ID:         id,
		Title:      titleFromID(id),
		Type:       "card",
		Layout:     "vertical",
		Components: []string{},
	}
}

// titleFromID turns "user-list", "user_list" or "userList" into "User List".
func titleFromID(id string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	prevLower := false
	for _, r := range id {
		switch {
		case r == '-' || r == '_' || r == '.' || unicode.IsSpace(r):
			flush()
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			flush()
		}
		cur = append(cur, r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	flush()
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	if len(words) == 0 {
		return id
	}
	return strings.Join(words, " ")
}
