package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"corisa-backend/internal/engine"
)

var (
	accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))
	muted  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	bold   = lipgloss.NewStyle().Bold(true)
	good   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Bold(true)
	bad    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// renderOutcome prints a commit outcome as a styled summary.
func renderOutcome(w io.Writer, title string, out *engine.Outcome) {
	status := good.Render("✓ " + string(out.Stage))
	if !out.Success {
		status = bad.Render("✗ rejected at " + string(out.Stage))
	}
	fmt.Fprintf(w, "%s %s\n", bold.Render(title), status)

	r := out.Report
	fmt.Fprintf(w, "  %s applied %d of %d, skipped %d\n", muted.Render("ops"), r.Applied, r.Attempted, r.Skipped)
	if len(out.Healed) > 0 {
		fmt.Fprintf(w, "  %s %s\n", muted.Render("healed"), accent.Render(strings.Join(out.Healed, ", ")))
	}
	renderList(w, "errors", bad, r.Errors)
	renderList(w, "warnings", muted, r.Warnings)
}

func renderValidation(w io.Writer, title string, res engine.ValidationResult) {
	status := good.Render("✓ valid")
	if !res.Valid {
		status = bad.Render("✗ invalid")
	}
	fmt.Fprintf(w, "%s %s\n", bold.Render(title), status)
	renderList(w, "errors", bad, res.Errors)
	renderList(w, "warnings", muted, res.Warnings)
}

func renderList(w io.Writer, label string, style lipgloss.Style, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", style.Render(fmt.Sprintf("%s (%d)", label, len(items))))
	for _, it := range items {
		fmt.Fprintf(w, "    • %s\n", it)
	}
}
