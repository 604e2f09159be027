package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/paperfeed/internal/digest"
	"github.com/matsen/paperfeed/internal/httputil"
)

func TestSlackSink_Send(t *testing.T) {
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	s := NewSlackSink(ts.URL).WithRetryer(httputil.NewRetryer(ts.Client(), nil, 1))
	require.NoError(t, s.Send(context.Background(), testDigest()))
	assert.Contains(t, got["text"], "*📚 Daily arXiv 2026-03-02*")
}

func TestSlackSink_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer ts.Close()

	s := NewSlackSink(ts.URL).WithRetryer(httputil.NewRetryer(ts.Client(), nil, 1))
	err := s.Send(context.Background(), testDigest())
	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestSlackText(t *testing.T) {
	text := SlackText(testDigest())

	assert.Contains(t, text, "*1. <https://arxiv.org/abs/2603.00001|Attention &lt;Is&gt; All>*")
	assert.Contains(t, text, "<https://github.com/x/y|Code>")
	assert.Contains(t, text, "> Transformers work.")
	assert.Contains(t, text, "2 papers picked")

	empty := SlackText(&digest.Digest{Date: testDate})
	assert.Contains(t, empty, emptyMessage)
}
