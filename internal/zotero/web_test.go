package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/paperfeed/internal/corpus"
	"github.com/matsen/paperfeed/internal/httputil"
)

func testItems(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		key := fmt.Sprintf("K%03d", i)
		out[i] = map[string]any{
			"key": key,
			"data": map[string]any{
				"itemType":     "journalArticle",
				"title":        "Paper " + key,
				"abstractNote": "Abstract " + key,
				"collections":  []string{"C2"},
				"dateAdded":    time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC).Format(time.RFC3339),
			},
		}
	}
	return out
}

func newZoteroServer(t *testing.T, items []map[string]any, failItemsAfter int) *httptest.Server {
	t.Helper()
	collections := []map[string]any{
		{"key": "C1", "data": map[string]any{"name": "ML", "parentCollection": false}},
		{"key": "C2", "data": map[string]any{"name": "Transformers", "parentCollection": "C1"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/users/42/collections", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.Header.Get("Zotero-API-Version"))
		assert.Equal(t, "secret", r.Header.Get("Zotero-API-Key"))
		w.Header().Set("Total-Results", strconv.Itoa(len(collections)))
		json.NewEncoder(w).Encode(collections)
	})
	mux.HandleFunc("/users/42/items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "conferencePaper || journalArticle || preprint", r.URL.Query().Get("itemType"))
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if failItemsAfter >= 0 && start >= failItemsAfter {
			http.Error(w, "denied", http.StatusForbidden)
			return
		}
		end := start + limit
		if end > len(items) {
			end = len(items)
		}
		w.Header().Set("Total-Results", strconv.Itoa(len(items)))
		json.NewEncoder(w).Encode(items[start:end])
	})
	return httptest.NewServer(mux)
}

func newTestWebClient(ts *httptest.Server) *WebClient {
	c := NewWebClient("42", "user", "secret", zerolog.Nop())
	c.BaseURL = ts.URL
	return c.WithRetryer(httputil.NewRetryer(ts.Client(), nil, 1))
}

func TestWebClient_FetchPagesAndResolvesPaths(t *testing.T) {
	ts := newZoteroServer(t, testItems(150), -1)
	defer ts.Close()

	items, err := newTestWebClient(ts).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 150)

	assert.Equal(t, "K000", items[0].ID)
	assert.Equal(t, "Paper K000", items[0].Title)
	assert.Equal(t, []string{"ML/Transformers"}, items[0].FolderPaths)
	assert.True(t, items[149].DateAdded.After(items[0].DateAdded))
}

func TestWebClient_ErrorFailsWholeFetch(t *testing.T) {
	ts := newZoteroServer(t, testItems(150), 100)
	defer ts.Close()

	_, err := newTestWebClient(ts).Fetch(context.Background())
	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestWebClient_AllowPartial(t *testing.T) {
	ts := newZoteroServer(t, testItems(150), 100)
	defer ts.Close()

	c := newTestWebClient(ts)
	c.AllowPartial = true
	items, err := c.Fetch(context.Background())

	assert.ErrorIs(t, err, corpus.ErrPartial)
	assert.Len(t, items, 100)
}

func TestWebClient_SkipsDeletedItems(t *testing.T) {
	items := testItems(2)
	items[1]["data"].(map[string]any)["deleted"] = true
	ts := newZoteroServer(t, items, -1)
	defer ts.Close()

	got, err := newTestWebClient(ts).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "K000", got[0].ID)
}

func TestParentKey(t *testing.T) {
	var c apiCollection
	require.NoError(t, json.Unmarshal([]byte(`{"key":"A","data":{"name":"x","parentCollection":false}}`), &c))
	assert.Equal(t, parentKey(""), c.Data.ParentCollection)

	require.NoError(t, json.Unmarshal([]byte(`{"key":"A","data":{"name":"x","parentCollection":"P"}}`), &c))
	assert.Equal(t, parentKey("P"), c.Data.ParentCollection)

	assert.Error(t, json.Unmarshal([]byte(`{"key":"A","data":{"parentCollection":7}}`), &c))
}

func TestCollectionPaths_Cycle(t *testing.T) {
	var a, b apiCollection
	a.Key, a.Data.Name, a.Data.ParentCollection = "A", "a", "B"
	b.Key, b.Data.Name, b.Data.ParentCollection = "B", "b", "A"

	paths := collectionPaths([]apiCollection{a, b})
	assert.Equal(t, "b/a", paths["A"])
	assert.Equal(t, "a/b", paths["B"])
}
