package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/paperfeed/internal/digest"
	"github.com/matsen/paperfeed/internal/httputil"
)

func TestFeishuSign(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("1700000000\nsecret"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, feishuSign(1700000000, "secret"))
}

func TestFeishuSink_SignsAndChecksCode(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer ts.Close()

	s := NewFeishuSink(ts.URL, "secret").WithRetryer(httputil.NewRetryer(ts.Client(), nil, 1))
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, s.Send(context.Background(), testDigest()))
	assert.Equal(t, "interactive", got["msg_type"])
	assert.Equal(t, "1700000000", got["timestamp"])
	assert.Equal(t, feishuSign(1700000000, "secret"), got["sign"])
}

func TestFeishuSink_NoSecretNoSignature(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"code":0}`))
	}))
	defer ts.Close()

	s := NewFeishuSink(ts.URL, "").WithRetryer(httputil.NewRetryer(ts.Client(), nil, 1))
	require.NoError(t, s.Send(context.Background(), testDigest()))
	assert.NotContains(t, got, "sign")
	assert.NotContains(t, got, "timestamp")
}

func TestFeishuSink_RejectedCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":19021,"msg":"sign match fail"}`))
	}))
	defer ts.Close()

	s := NewFeishuSink(ts.URL, "x").WithRetryer(httputil.NewRetryer(ts.Client(), nil, 1))
	err := s.Send(context.Background(), testDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign match fail")
}

func cardJSON(t *testing.T, d *digest.Digest) string {
	t.Helper()
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(FeishuCard(d)))
	return b.String()
}

func TestFeishuCard(t *testing.T) {
	s := cardJSON(t, testDigest())

	assert.Contains(t, s, `"schema":"2.0"`)
	assert.Contains(t, s, "📚 Daily arXiv 2026-03-02")
	assert.Contains(t, s, "**1. Attention <Is> All**")
	assert.Contains(t, s, "Transformers work.")
	assert.Contains(t, s, "[2603.00001](https://arxiv.org/abs/2603.00001)")
	assert.Contains(t, s, "https://github.com/x/y")
	assert.Contains(t, s, noSummary)
	assert.Contains(t, s, "⭐⭐½")
}

func TestFeishuCard_Empty(t *testing.T) {
	assert.Contains(t, cardJSON(t, &digest.Digest{Date: testDate}), "No new papers today")
}
