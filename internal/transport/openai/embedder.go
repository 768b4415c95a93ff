// Package openai holds the clients for the two OpenAI-compatible upstream
// services: query interpretation (chat completions) and text embedding.
// Both are circuit-breaker protected with independent failure windows.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/breaker"
	"github.com/hireloop/candex/internal/domain"
	"github.com/hireloop/candex/internal/metrics"
)

// Embedder converts text into a fixed-length vector via an
// OpenAI-compatible embeddings endpoint.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	brk        *breaker.Breaker[[]float32]
	logger     *zap.Logger
}

// EmbedderConfig holds the embedding provider settings.
type EmbedderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Breaker    breaker.Config
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding client with its own breaker.
func NewEmbedder(cfg *EmbedderConfig) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		brk:        breaker.New[[]float32](cfg.Breaker, metrics.BreakerState, cfg.Logger),
		logger:     cfg.Logger,
	}
}

// Embed returns the embedding vector for text. An empty vector from the
// provider is a hard failure.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.brk.Do(ctx, func(ctx context.Context) ([]float32, error) {
		req := openai.EmbeddingRequest{
			Input:          []string{text},
			Model:          e.model,
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		}
		if e.dimensions > 0 {
			req.Dimensions = e.dimensions
		}

		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues("embedding", "error").Inc()
			return nil, parseAPIError("embedding", err)
		}

		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			metrics.UpstreamRequestsTotal.WithLabelValues("embedding", "error").Inc()
			return nil, fmt.Errorf("empty embedding vector: %w", domain.ErrMalformedResponse)
		}

		metrics.UpstreamRequestsTotal.WithLabelValues("embedding", "success").Inc()
		return resp.Data[0].Embedding, nil
	})
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(service string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s", service, reqErr.HTTPStatusCode, detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s", service, apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("%s request failed: %w", service, err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
