package metadata

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDeepUpdate(t *testing.T) {
	tests := []struct {
		name     string
		base     Document
		override Document
		want     Document
	}{
		{
			name:     "flat override wins",
			base:     Document{"a": 1, "b": 2},
			override: Document{"b": 3},
			want:     Document{"a": 1, "b": 3},
		},
		{
			name: "nested maps merge",
			base: Document{
				"NWBFile": map[string]any{
					"lab":         "widefield lab",
					"institution": "university",
				},
			},
			override: Document{
				"NWBFile": map[string]any{
					"institution": "institute",
				},
			},
			want: Document{
				"NWBFile": Document{
					"lab":         "widefield lab",
					"institution": "institute",
				},
			},
		},
		{
			name:     "lists replace wholesale",
			base:     Document{"keywords": []any{"a", "b"}},
			override: Document{"keywords": []any{"c"}},
			want:     Document{"keywords": []any{"c"}},
		},
		{
			name:     "override adds new keys",
			base:     Document{"a": 1},
			override: Document{"b": map[string]any{"c": 2}},
			want:     Document{"a": 1, "b": map[string]any{"c": 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeepUpdate(tt.base, tt.override)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDeepUpdate_DoesNotMutateInputs(t *testing.T) {
	base := Document{"nested": map[string]any{"a": 1}}
	override := Document{"nested": map[string]any{"b": 2}}

	_ = DeepUpdate(base, override)

	if _, ok := base["nested"].(map[string]any)["b"]; ok {
		t.Error("DeepUpdate mutated its base input")
	}
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()

	defaults := filepath.Join(dir, "defaults.yaml")
	if err := os.WriteFile(defaults, []byte("NWBFile:\n  lab: widefield lab\n  institution: university\n"), 0o644); err != nil {
		t.Fatalf("writing defaults: %v", err)
	}

	overrides := filepath.Join(dir, "overrides.yaml")
	if err := os.WriteFile(overrides, []byte("NWBFile:\n  institution: institute\n"), 0o644); err != nil {
		t.Fatalf("writing overrides: %v", err)
	}

	merged, err := Merge(defaults, overrides)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	nwbFile, ok := asDocument(merged["NWBFile"])
	if !ok {
		t.Fatalf("expected NWBFile map, got %T", merged["NWBFile"])
	}
	if nwbFile["lab"] != "widefield lab" {
		t.Errorf("expected default lab preserved, got %v", nwbFile["lab"])
	}
	if nwbFile["institution"] != "institute" {
		t.Errorf("expected overridden institution, got %v", nwbFile["institution"])
	}
}

func TestMerge_SkipsEmptyPaths(t *testing.T) {
	merged, err := Merge("", "")
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(merged) != 0 {
		t.Errorf("expected empty document, got %v", merged)
	}
}

func TestMerge_MissingFile(t *testing.T) {
	if _, err := Merge(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing metadata file")
	}
}
