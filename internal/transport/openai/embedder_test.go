package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/breaker"
	"github.com/hireloop/candex/internal/domain"
	"github.com/hireloop/candex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

func testBreakerConfig(name string) breaker.Config {
	return breaker.Config{
		Name:        name,
		CallTimeout: 2 * time.Second,
		MinRequests: 100, // keep the breaker closed during tests
	}
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func embeddingServer(t *testing.T, vec []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
		if vec != nil {
			resp.Data = append(resp.Data, struct {
				Object    string    `json:"object"`
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{
				Object:    "embedding",
				Embedding: vec,
				Index:     0,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}
	server := embeddingServer(t, expectedVec)
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "test-model",
		Dimensions: 4,
		Breaker:    testBreakerConfig("embedding-test-ok"),
		Logger:     zap.NewNop(),
	})

	vec, err := emb.Embed(context.Background(), "react developer")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(vec) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(vec))
	}
	for i, v := range vec {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
}

func TestEmbedder_EmptyVectorIsHardFailure(t *testing.T) {
	server := embeddingServer(t, nil)
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Breaker: testBreakerConfig("embedding-test-empty"),
		Logger:  zap.NewNop(),
	})

	_, err := emb.Embed(context.Background(), "react developer")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"upstream exploded"}`))
	}))
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Breaker: testBreakerConfig("embedding-test-err"),
		Logger:  zap.NewNop(),
	})

	_, err := emb.Embed(context.Background(), "react developer")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatal("a plain API error must not masquerade as a breaker fast-fail")
	}
}
