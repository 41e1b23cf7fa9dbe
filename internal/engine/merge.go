package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// Records are merged through their JSON object view: the typed record is
// encoded, the plan payload is merged into the object, and the result is
// decoded back into the typed record. Field names are therefore the wire names
// planners see.

func toObject(rec any) (map[string]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	obj := map[string]any{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return obj, nil
}

// shallowMerge overwrites top-level fields of dst with those of src.
func shallowMerge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// deepMerge merges src into dst key by key. Nested objects merge recursively;
// arrays and scalars replace the existing value.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				deepMerge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}

// decodeRecord decodes obj into a fresh T. Unknown fields are located by their
// dotted path ("metadata.title", "fields[0].junk"). They fail the decode when
// strict is set; otherwise they are dropped and reported as warnings, and
// every known field at every level is kept.
func decodeRecord[T any](obj map[string]any, strict bool) (T, []string, error) {
	var rec T
	data, err := json.Marshal(obj)
	if err != nil {
		return rec, nil, fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, nil, fmt.Errorf("invalid record: %w", err)
	}

	unknown, err := unknownPaths[T](obj)
	if err != nil {
		return rec, nil, fmt.Errorf("invalid record: %w", err)
	}
	if len(unknown) == 0 {
		return rec, nil, nil
	}
	if strict {
		return rec, nil, fmt.Errorf("unknown field %q", unknown[0])
	}
	warnings := make([]string, 0, len(unknown))
	for _, path := range unknown {
		warnings = append(warnings, fmt.Sprintf("ignored unknown field %q", path))
	}
	return rec, warnings, nil
}

// unknownPaths lists the keys of obj, at any depth, that T has no field for.
func unknownPaths[T any](obj map[string]any) ([]string, error) {
	var (
		scratch T
		md      mapstructure.Metadata
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           &scratch,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(obj); err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}
