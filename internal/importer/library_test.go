package importer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestFlexibleString_String(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string id", `"ABCD1234"`, "ABCD1234"},
		{"number id", `2026`, "2026"},
		{"null value", `null`, ""},
		{"float number", `2026.0`, "2026.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("UnmarshalJSON() error = %v", err)
			}
			if got := f.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlexibleString_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array", `[1,2,3]`},
		{"object", `{"key": "value"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			if err := json.Unmarshal([]byte(tt.input), &f); err == nil {
				t.Errorf("UnmarshalJSON() expected error for input %s", tt.input)
			}
		})
	}
}

func TestFlexibleString_YAMLRejectsMapping(t *testing.T) {
	var v struct {
		ID FlexibleString `yaml:"id"`
	}
	if err := yaml.Unmarshal([]byte("id: {a: 1}\n"), &v); err == nil {
		t.Error("expected error for mapping id")
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-11-03T09:30:00Z", want},
		{"2025-11-03 09:30:00", want},
		{"2025-11-03T09:30:00", want},
		{"2025-11-03", time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)},
		{"1762162200", want},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTime("last tuesday"); err == nil {
		t.Error("ParseTime() expected error for free text")
	}
}

func TestParseLibrary_JSON(t *testing.T) {
	data := []byte(`[
		{"id": "K1", "title": " A ", "abstract": "x", "folders": ["ML/Vision", "Reading"], "date_added": "2025-01-02 03:04:05"},
		{"id": 42, "title": "B", "abstract": "y", "folder": "Archive", "date_added": 1735787045},
		{"title": "no id", "date_added": "2025-01-01"},
		{"id": "K3", "title": "no date"}
	]`)

	items, errs := ParseLibrary(data, "json")

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if len(errs) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(errs), errs)
	}
	if items[0].Title != "A" || len(items[0].FolderPaths) != 2 {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].ID != "42" || items[1].FolderPaths[0] != "Archive" {
		t.Errorf("items[1] = %+v", items[1])
	}
	if !items[0].DateAdded.Equal(items[1].DateAdded) {
		t.Errorf("dates differ: %v vs %v", items[0].DateAdded, items[1].DateAdded)
	}
}

func TestParseLibrary_YAML(t *testing.T) {
	data := []byte(`
- id: Z1
  title: Attention
  abstract: Transformers.
  folders: [ML/NLP]
  date_added: 2025-06-01
- id: 7
  title: Diffusion
  abstract: Denoising.
  date_added: "2025-06-02 10:00:00"
`)

	items, errs := ParseLibrary(data, "yaml")

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[1].ID != "7" {
		t.Errorf("items[1].ID = %q, want 7", items[1].ID)
	}
	if len(items[1].FolderPaths) != 0 {
		t.Errorf("items[1].FolderPaths = %v, want empty", items[1].FolderPaths)
	}
}

func TestParseLibrary_UnknownFormat(t *testing.T) {
	if _, errs := ParseLibrary([]byte(`x`), "bib"); len(errs) != 1 {
		t.Errorf("expected one error for unknown format, got %v", errs)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.yml")
	content := "- id: A\n  title: T\n  abstract: X\n  date_added: 2025-01-01\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "A" {
		t.Errorf("LoadFile() = %+v", items)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadFile() expected error for missing file")
	}
}

func TestFileSource_Strict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.json")
	content := `[{"id": "A", "date_added": "2025-01-01"}, {"id": "B"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := (FileSource{Path: path}).Fetch(context.Background()); err != nil {
		t.Errorf("lenient Fetch() error = %v", err)
	}
	if _, err := (FileSource{Path: path, Strict: true}).Fetch(context.Background()); err == nil {
		t.Error("strict Fetch() expected error")
	}
}
