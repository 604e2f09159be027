// Package zotero reads the user's reference library from the Zotero web
// API or from a local zotero.sqlite snapshot.
package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matsen/paperfeed/internal/corpus"
	"github.com/matsen/paperfeed/internal/httputil"
	"github.com/matsen/paperfeed/internal/importer"
	"github.com/matsen/paperfeed/internal/reference"
)

const (
	// DefaultAPIBase is the Zotero web API.
	DefaultAPIBase = "https://api.zotero.org"

	pageSize = 100
)

// ItemTypes are the Zotero item types treated as papers.
var ItemTypes = []string{"conferencePaper", "journalArticle", "preprint"}

// WebClient fetches a library through the Zotero web API v3.
type WebClient struct {
	BaseURL     string
	LibraryID   string
	LibraryType string // "user" or "group"
	APIKey      string

	// AllowPartial keeps the pages fetched before an error instead of
	// failing the whole fetch.
	AllowPartial bool

	retryer *httputil.Retryer
	log     zerolog.Logger
}

// NewWebClient creates a client for a user or group library.
func NewWebClient(libraryID, libraryType, apiKey string, log zerolog.Logger) *WebClient {
	if libraryType == "" {
		libraryType = "user"
	}
	client := &http.Client{Timeout: 60 * time.Second}
	return &WebClient{
		BaseURL:     DefaultAPIBase,
		LibraryID:   libraryID,
		LibraryType: libraryType,
		APIKey:      apiKey,
		retryer:     httputil.NewRetryer(client, httputil.PerMinute(120), httputil.DefaultMaxRetries),
		log:         log,
	}
}

// WithRetryer replaces the HTTP retryer.
func (c *WebClient) WithRetryer(r *httputil.Retryer) *WebClient {
	c.retryer = r
	return c
}

// Fetch returns every paper in the library with its collection paths.
func (c *WebClient) Fetch(ctx context.Context) ([]reference.CorpusItem, error) {
	var cols []apiCollection
	if err := c.fetchAll(ctx, "collections", nil, &cols); err != nil {
		return nil, fmt.Errorf("fetching collections: %w", err)
	}
	paths := collectionPaths(cols)

	q := url.Values{}
	q.Set("itemType", strings.Join(ItemTypes, " || "))

	var items []apiItem
	err := c.fetchAll(ctx, "items", q, &items)
	if err != nil {
		if !c.AllowPartial || len(items) == 0 {
			return nil, fmt.Errorf("fetching items: %w", err)
		}
		c.log.Warn().Err(err).Int("items", len(items)).Msg("using partial Zotero library")
	}

	out := make([]reference.CorpusItem, 0, len(items))
	for _, it := range items {
		if it.Data.Deleted {
			continue
		}
		added, perr := importer.ParseTime(it.Data.DateAdded)
		if perr != nil {
			c.log.Debug().Str("item", it.Key).Err(perr).Msg("skipping item with bad dateAdded")
			continue
		}
		item := reference.CorpusItem{
			ID:        it.Key,
			Title:     strings.TrimSpace(it.Data.Title),
			Abstract:  strings.TrimSpace(it.Data.AbstractNote),
			DateAdded: added,
		}
		for _, key := range it.Data.Collections {
			if p, ok := paths[key]; ok {
				item.FolderPaths = append(item.FolderPaths, p)
			}
		}
		out = append(out, item)
	}

	if err != nil {
		return out, fmt.Errorf("%w: %v", corpus.ErrPartial, err)
	}
	return out, nil
}

// fetchAll pages through endpoint, appending decoded pages into out, which
// must point to a slice. On error out holds the pages fetched so far.
func (c *WebClient) fetchAll(ctx context.Context, endpoint string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("format", "json")

	for start := 0; ; start += pageSize {
		q.Set("start", strconv.Itoa(start))
		u := fmt.Sprintf("%s/%ss/%s/%s?%s", strings.TrimRight(c.BaseURL, "/"), c.LibraryType, url.PathEscape(c.LibraryID), endpoint, q.Encode())

		page, total, err := c.getPage(ctx, u)
		if err != nil {
			return err
		}
		n, err := appendPage(out, page)
		if err != nil {
			return err
		}
		c.log.Debug().Str("endpoint", endpoint).Int("start", start).Int("got", n).Int("total", total).Msg("zotero page")

		if n < pageSize || (total > 0 && start+n >= total) {
			return nil
		}
	}
}

func (c *WebClient) getPage(ctx context.Context, u string) (json.RawMessage, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", "3")
	if c.APIKey != "" {
		req.Header.Set("Zotero-API-Key", c.APIKey)
	}

	resp, err := c.retryer.Do(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp, "zotero"); err != nil {
		return nil, 0, err
	}

	var page json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, 0, fmt.Errorf("decoding zotero response: %w", err)
	}
	total, _ := strconv.Atoi(resp.Header.Get("Total-Results"))
	return page, total, nil
}

// appendPage decodes a JSON array page onto the slice out points to and
// returns the page length.
func appendPage(out any, page json.RawMessage) (int, error) {
	switch dst := out.(type) {
	case *[]apiItem:
		var p []apiItem
		if err := json.Unmarshal(page, &p); err != nil {
			return 0, fmt.Errorf("decoding items: %w", err)
		}
		*dst = append(*dst, p...)
		return len(p), nil
	case *[]apiCollection:
		var p []apiCollection
		if err := json.Unmarshal(page, &p); err != nil {
			return 0, fmt.Errorf("decoding collections: %w", err)
		}
		*dst = append(*dst, p...)
		return len(p), nil
	default:
		return 0, fmt.Errorf("unsupported page type %T", out)
	}
}

type apiItem struct {
	Key  string `json:"key"`
	Data struct {
		ItemType     string   `json:"itemType"`
		Title        string   `json:"title"`
		AbstractNote string   `json:"abstractNote"`
		Collections  []string `json:"collections"`
		DateAdded    string   `json:"dateAdded"`
		Deleted      bool     `json:"deleted"`
	} `json:"data"`
}

type apiCollection struct {
	Key  string `json:"key"`
	Data struct {
		Name             string    `json:"name"`
		ParentCollection parentKey `json:"parentCollection"`
	} `json:"data"`
}

// parentKey is a collection key, or empty when the API sends false for a
// top-level collection.
type parentKey string

func (p *parentKey) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "false", "null":
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parentCollection: %w", err)
	}
	*p = parentKey(s)
	return nil
}

// collectionPaths maps each collection key to its slash-joined path from
// the library root. Cycles and dangling parents end the walk.
func collectionPaths(cols []apiCollection) map[string]string {
	byKey := make(map[string]apiCollection, len(cols))
	for _, c := range cols {
		byKey[c.Key] = c
	}

	paths := make(map[string]string, len(cols))
	for _, c := range cols {
		var parts []string
		seen := make(map[string]bool)
		for cur, ok := c, true; ok && !seen[cur.Key]; cur, ok = byKey[string(cur.Data.ParentCollection)] {
			seen[cur.Key] = true
			parts = append([]string{cur.Data.Name}, parts...)
		}
		paths[c.Key] = strings.Join(parts, "/")
	}
	return paths
}
