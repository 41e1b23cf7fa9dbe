package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension. Anything that is not
// .yaml/.yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeJSON parses a JSON schema document.
func DecodeJSON(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode schema json: %w", err)
	}
	s.Normalize()
	return s, nil
}

// DecodeYAML parses a YAML schema document. Field names are the JSON wire
// names.
func DecodeYAML(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode schema yaml: %w", err)
	}
	s.Normalize()
	return s, nil
}

// Decode parses data in the given format. An empty format sniffs the first
// non-space byte: '{' means JSON, anything else YAML.
func Decode(data []byte, format Format) (*Schema, error) {
	if format == "" {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			format = FormatJSON
		} else {
			format = FormatYAML
		}
	}
	if format == FormatYAML {
		return DecodeYAML(data)
	}
	return DecodeJSON(data)
}

// Encode renders the document. JSON output is indented.
func Encode(s *Schema, format Format) ([]byte, error) {
	if format == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("encode schema yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode schema yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode schema json: %w", err)
	}
	return data, nil
}

// LoadFile reads a document from disk, choosing the decoder by extension.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Decode(data, FormatForPath(path))
}

// WriteFile encodes the document to disk, choosing the encoder by extension.
func WriteFile(path string, s *Schema) error {
	data, err := Encode(s, FormatForPath(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schema %s: %w", path, err)
	}
	return nil
}
