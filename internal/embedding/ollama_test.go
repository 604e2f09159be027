package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matsen/paperfeed/internal/httputil"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider()

	if provider.baseURL != DefaultOllamaURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, DefaultOllamaURL)
	}
	if provider.model != DefaultModel {
		t.Errorf("model = %s, want %s", provider.model, DefaultModel)
	}
	if provider.dimensions != DefaultDimensions {
		t.Errorf("dimensions = %d, want %d", provider.dimensions, DefaultDimensions)
	}
	if provider.retryer == nil || provider.retryer.Client.Timeout != DefaultTimeout {
		t.Error("retryer should use a client with DefaultTimeout")
	}
}

func TestNewOllamaProvider_WithOptions(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	retryer := httputil.NewRetryer(client, nil, 1)

	provider := NewOllamaProvider(
		WithBaseURL("http://custom:8080/"),
		WithModel("nomic-embed-text"),
		WithDimensions(768),
		WithRetryer(retryer),
	)

	if provider.baseURL != "http://custom:8080" {
		t.Errorf("baseURL = %s, want trailing slash trimmed", provider.baseURL)
	}
	if provider.ModelName() != "nomic-embed-text" {
		t.Errorf("ModelName() = %s", provider.ModelName())
	}
	if provider.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d, want 768", provider.Dimensions())
	}
	if provider.retryer != retryer {
		t.Error("WithRetryer was not applied")
	}
}

func TestOllamaProvider_ImplementsProvider(t *testing.T) {
	var _ Provider = (*OllamaProvider)(nil)
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiPathEmbed {
			t.Errorf("path = %s, want %s", r.URL.Path, apiPathEmbed)
		}
		var req ollamaBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
			return
		}
		resp := ollamaBatchResponse{}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(i), 1})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOllamaProvider(WithBaseURL(server.URL), WithDimensions(2))
	embs, errs := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	if len(embs) != 3 || len(errs) != 3 {
		t.Fatalf("got %d embeddings, %d errors, want 3 each", len(embs), len(errs))
	}
	for i := range embs {
		if errs[i] != nil {
			t.Errorf("errs[%d] = %v", i, errs[i])
		}
		if embs[i].Vector[0] != float32(i) {
			t.Errorf("embs[%d] out of order: %v", i, embs[i].Vector)
		}
	}
}

func TestOllamaProvider_EmbedBatchFallsBackPerText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case apiPathEmbed:
			http.Error(w, "batch unsupported", http.StatusNotFound)
		case apiPathEmbeddings:
			var req ollamaEmbedRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Prompt == "bad" {
				http.Error(w, "invalid input", http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 2}})
		}
	}))
	defer server.Close()

	p := NewOllamaProvider(WithBaseURL(server.URL), WithDimensions(2))
	embs, errs := p.EmbedBatch(context.Background(), []string{"good", "bad", "good"})

	if errs[0] != nil || errs[2] != nil {
		t.Errorf("good texts failed: %v, %v", errs[0], errs[2])
	}
	if errs[1] == nil || !strings.Contains(errs[1].Error(), "invalid input") {
		t.Errorf("bad text error = %v, want the server message", errs[1])
	}
	if !embs[1].IsZero() {
		t.Error("failed text should have an empty embedding")
	}
	if embs[0].Dimensions() != 2 {
		t.Errorf("embs[0] dimensions = %d, want 2", embs[0].Dimensions())
	}
}

func TestOllamaProvider_EmbedDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 2, 3}})
	}))
	defer server.Close()

	p := NewOllamaProvider(WithBaseURL(server.URL), WithDimensions(384))
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestOllamaProvider_Check(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiPathTags {
			t.Errorf("path = %s, want %s", r.URL.Path, apiPathTags)
		}
		w.Write([]byte(`{"models":[{"name":"all-minilm:l6-v2"},{"name":"nomic-embed-text:latest"}]}`))
	}))
	defer server.Close()

	tests := []struct {
		model   string
		wantErr bool
	}{
		{DefaultModel, false},
		{"nomic-embed-text", false},
		{"mxbai-embed-large", true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p := NewOllamaProvider(WithBaseURL(server.URL), WithModel(tt.model))
			err := p.Check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "ollama pull "+tt.model) {
				t.Errorf("Check() = %v, want a pull hint", err)
			}
		})
	}
}

func TestOllamaProvider_CheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	p := NewOllamaProvider(WithBaseURL(server.URL))
	err := p.Check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("Check() = %v, want not reachable", err)
	}
}
