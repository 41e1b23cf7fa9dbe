package ai

import (
	"encoding/json"
	"fmt"

	"corisa-backend/internal/metadata"
)

const systemPrompt = `You are Corisa Planner. Transform user requests into a JSON Mod Plan following the provided JSON Schema strictly. Output ONLY valid JSON. Do not include prose. If unsure, propose minimal safe operations.

Rules:
- Use upsert_entity to create records; every item needs an "id".
- Reference existing ids from the schema summary instead of inventing duplicates.
- Pages list their sections by id; add the sections a page needs.
- Prefer update_fields over upsert_entity when changing a few fields of an existing record.
- Use guards {"ifMissing": true} when a record may already exist and must not be overwritten.`

// BuildSystemPrompt returns the planner instructions.
func BuildSystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt combines the request with the current document summary and
// the plan grammar.
func BuildUserPrompt(prompt string, summary metadata.Summary, grammar []byte) (string, error) {
	sum, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	return fmt.Sprintf("User request:\n%s\n\nCurrent schema summary:\n%s\n\nJSON Schema for Mod Plan:\n%s",
		prompt, sum, compactJSON(grammar)), nil
}

func compactJSON(data []byte) []byte {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return data
	}
	out, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return out
}
