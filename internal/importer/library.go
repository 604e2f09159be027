// Package importer loads library snapshots exported to JSON or YAML files.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matsen/paperfeed/internal/reference"
)

// LibraryEntry is one item in an exported library file.
type LibraryEntry struct {
	ID        FlexibleString `json:"id" yaml:"id"`
	Title     string         `json:"title" yaml:"title"`
	Abstract  string         `json:"abstract" yaml:"abstract"`
	Folders   []string       `json:"folders" yaml:"folders"`
	Folder    string         `json:"folder" yaml:"folder"` // Single-folder shorthand
	DateAdded FlexibleTime   `json:"date_added" yaml:"date_added"`
}

// ParseLibrary parses an exported library. format is "json" or "yaml".
// Entries missing an id or a date are reported in errs and skipped.
func ParseLibrary(data []byte, format string) ([]reference.CorpusItem, []error) {
	var entries []LibraryEntry
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &entries)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		return nil, []error{fmt.Errorf("unsupported library format %q", format)}
	}
	if err != nil {
		return nil, []error{fmt.Errorf("parsing library %s: %w", format, err)}
	}

	var items []reference.CorpusItem
	var errs []error
	for i, e := range entries {
		item, err := e.toCorpusItem()
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, e.ID, err))
			continue
		}
		items = append(items, item)
	}
	return items, errs
}

func (e LibraryEntry) toCorpusItem() (reference.CorpusItem, error) {
	if strings.TrimSpace(e.ID.String()) == "" {
		return reference.CorpusItem{}, fmt.Errorf("missing required field 'id'")
	}
	if e.DateAdded.IsZero() {
		return reference.CorpusItem{}, fmt.Errorf("missing required field 'date_added'")
	}

	folders := append([]string(nil), e.Folders...)
	if e.Folder != "" {
		folders = append(folders, e.Folder)
	}

	return reference.CorpusItem{
		ID:          strings.TrimSpace(e.ID.String()),
		Title:       strings.TrimSpace(e.Title),
		Abstract:    strings.TrimSpace(e.Abstract),
		FolderPaths: folders,
		DateAdded:   e.DateAdded.Time,
	}, nil
}

// FileSource reads the corpus from an exported library file.
type FileSource struct {
	Path string

	// Strict turns per-entry errors into a Fetch error.
	Strict bool
}

// Fetch loads and parses the file. The format follows the extension:
// .json, .yaml or .yml.
func (s FileSource) Fetch(_ context.Context) ([]reference.CorpusItem, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading library file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(s.Path)), ".")
	items, errs := ParseLibrary(data, format)
	if len(errs) > 0 && (s.Strict || items == nil) {
		return nil, fmt.Errorf("library file %s: %w", s.Path, errs[0])
	}
	return items, nil
}

// LoadFile reads a library export from path.
func LoadFile(path string) ([]reference.CorpusItem, error) {
	return FileSource{Path: path}.Fetch(context.Background())
}
