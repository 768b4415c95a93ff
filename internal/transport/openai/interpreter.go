package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/breaker"
	"github.com/hireloop/candex/internal/domain"
	"github.com/hireloop/candex/internal/domain/query"
	"github.com/hireloop/candex/internal/metrics"
)

const interpretSystemPrompt = `You are a recruiting search query parser. ` +
	`Extract structured fields from the user's free-text candidate search query. ` +
	`Respond with a single JSON object: ` +
	`{"keywords": ["..."], "skills": ["..."], "location": "..."}. ` +
	`keywords are the search terms describing the role; skills are concrete ` +
	`technologies or competencies; location is empty when none is mentioned.`

// Interpreter converts free-text queries into structured interpretations
// via an OpenAI-compatible chat-completions endpoint.
type Interpreter struct {
	client *openai.Client
	model  string
	brk    *breaker.Breaker[query.Interpreted]
	logger *zap.Logger
}

// InterpreterConfig holds the interpretation provider settings.
type InterpreterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Breaker breaker.Config
	Logger  *zap.Logger
}

// NewInterpreter creates a chat-based query interpreter with its own breaker,
// independent from the embedding breaker.
func NewInterpreter(cfg *InterpreterConfig) *Interpreter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Interpreter{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		brk:    breaker.New[query.Interpreted](cfg.Breaker, metrics.BreakerState, cfg.Logger),
		logger: cfg.Logger,
	}
}

// interpretedPayload is the wire shape expected from the model.
type interpretedPayload struct {
	Keywords []string `json:"keywords"`
	Skills   []string `json:"skills"`
	Location string   `json:"location"`
}

// Interpret parses rawQuery into an Interpreted query. A non-JSON or
// schema-mismatched reply is a hard failure: downstream embedding text
// depends on the interpretation, so there is no safe partial fallback.
func (i *Interpreter) Interpret(ctx context.Context, rawQuery string) (query.Interpreted, error) {
	return i.brk.Do(ctx, func(ctx context.Context) (query.Interpreted, error) {
		resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: i.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: interpretSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: rawQuery},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0,
		})
		if err != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues("interpretation", "error").Inc()
			return query.Interpreted{}, parseAPIError("interpretation", err)
		}

		if len(resp.Choices) == 0 {
			metrics.UpstreamRequestsTotal.WithLabelValues("interpretation", "error").Inc()
			return query.Interpreted{}, fmt.Errorf("no completion choices: %w", domain.ErrMalformedResponse)
		}

		content := resp.Choices[0].Message.Content

		var payload interpretedPayload
		if err := json.Unmarshal([]byte(content), &payload); err != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues("interpretation", "error").Inc()
			i.logger.Warn("interpretation reply is not valid JSON",
				zap.String("model", i.model),
				zap.Int("content_length", len(content)),
			)
			return query.Interpreted{}, fmt.Errorf("parse interpretation: %w", domain.ErrMalformedResponse)
		}

		metrics.UpstreamRequestsTotal.WithLabelValues("interpretation", "success").Inc()
		return query.NewInterpreted(payload.Keywords, payload.Skills, payload.Location), nil
	})
}
