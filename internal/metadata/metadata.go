// Package metadata merges the declarative session metadata documents:
// repository defaults deep-merged with the user-editable per-session
// overrides before the output container is written.
package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a parsed YAML metadata tree.
type Document map[string]any

// LoadFile parses a YAML metadata file into a Document.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}

	var doc Document
	if err = yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing metadata file '%s': %w", path, err)
	}
	if doc == nil {
		doc = Document{}
	}

	return doc, nil
}

// DeepUpdate merges override into base recursively and returns the
// result. Nested maps are merged key-by-key; any other value in override
// (including lists) replaces the base value wholesale. Neither input is
// mutated.
func DeepUpdate(base, override Document) Document {
	merged := make(Document, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}

	for k, v := range override {
		baseChild, baseOk := asDocument(merged[k])
		overrideChild, overrideOk := asDocument(v)
		if baseOk && overrideOk {
			merged[k] = DeepUpdate(baseChild, overrideChild)
			continue
		}

		merged[k] = v
	}

	return merged
}

// Merge loads and deep-merges metadata files left to right, later files
// overriding earlier ones. Empty paths are skipped.
func Merge(paths ...string) (Document, error) {
	merged := Document{}
	for _, path := range paths {
		if path == "" {
			continue
		}

		doc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}

		merged = DeepUpdate(merged, doc)
	}

	return merged, nil
}

// WriteFile serializes a Document as YAML.
func WriteFile(path string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}

	return nil
}

// asDocument normalizes the map types yaml.v3 produces into Document.
func asDocument(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	default:
		return nil, false
	}
}
