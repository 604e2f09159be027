package reference

import "strings"

// Author is a paper author as listed by arXiv.
type Author struct {
	Name string `json:"name"`
}

// AuthorNames returns the trimmed, non-empty author names in order.
func AuthorNames(authors []Author) []string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}
