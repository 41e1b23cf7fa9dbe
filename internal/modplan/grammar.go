package modplan

import (
	_ "embed"
	"encoding/json"
)

//go:embed modplan.schema.json
var grammar []byte

// SchemaFilename is the name the grammar is published under.
const SchemaFilename = "modplan.schema.json"

// JSONSchema returns the draft-07 JSON Schema of the plan document. Planners
// receive it verbatim; the engine validator compiles it.
func JSONSchema() []byte {
	out := make([]byte, len(grammar))
	copy(out, grammar)
	return out
}

// DefinitionFor returns the grammar definition name that describes operations
// of kind k.
func DefinitionFor(k Kind) string {
	return string(k)
}

// JSONSchemaRaw returns the grammar as a json.RawMessage for embedding in
// responses.
func JSONSchemaRaw() json.RawMessage {
	return json.RawMessage(JSONSchema())
}
