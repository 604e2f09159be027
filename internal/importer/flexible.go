package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FlexibleString can unmarshal from either string or number values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f *FlexibleString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar, got %s", node.Line, kindName(node.Kind))
	}
	*f = FlexibleString(node.Value)
	return nil
}

func (f FlexibleString) String() string {
	return string(f)
}

// dateLayouts are the timestamp formats accepted for date_added. Zotero
// writes "2006-01-02 15:04:05" in UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FlexibleTime accepts RFC 3339 strings, Zotero's SQL timestamps, bare
// dates and Unix seconds.
type FlexibleTime struct {
	time.Time
}

// ParseTime parses s with any accepted layout. Unix seconds are accepted
// as a decimal string.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (f *FlexibleTime) UnmarshalJSON(data []byte) error {
	var s FlexibleString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	t, err := ParseTime(s.String())
	if err != nil {
		return err
	}
	f.Time = t
	return nil
}

func (f *FlexibleTime) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a timestamp, got %s", node.Line, kindName(node.Kind))
	}
	t, err := ParseTime(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	f.Time = t
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
