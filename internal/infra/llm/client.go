// Package llm implements the completion client against an
// OpenAI-compatible chat-completions endpoint (the Gemini relay URL in
// the reference deployment).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/echolabs/echo-support-go/internal/domain"
	"github.com/echolabs/echo-support-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/llm")

// Client calls the chat-completions endpoint. The circuit breaker
// fronts the provider; the bulkhead caps concurrent in-flight calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
}

// NewClient creates a completion client. baseURL is the provider root
// without the /chat/completions suffix.
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage domain.TokenUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the conversation and returns the raw completion text
// plus provider-reported token usage.
func (c *Client) Complete(ctx context.Context, model string, messages []domain.Message) (*domain.CompletionResult, error) {
	ctx, span := tracer.Start(ctx, "llm.Client.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", model))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrExternalService{Service: "completion", Err: err}
	}
	defer c.bulkhead.Release()

	var out domain.CompletionResult

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
			if err != nil {
				return fmt.Errorf("marshal completion request: %w", err)
			}

			url := fmt.Sprintf("%s/chat/completions", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("create http request: %w", err)
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return fmt.Errorf("http call to completion provider: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("completion provider returned status %d", resp.StatusCode)
			}

			var parsed chatResponse
			if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
				return fmt.Errorf("decode completion response: %w", err)
			}
			if parsed.Error != nil {
				return fmt.Errorf("completion provider error: %s", parsed.Error.Message)
			}
			if len(parsed.Choices) == 0 {
				return fmt.Errorf("completion response contained no choices")
			}

			out = domain.CompletionResult{
				Text:  parsed.Choices[0].Message.Content,
				Usage: parsed.Usage,
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "completion", Err: err}
	}

	return result.(*domain.CompletionResult), nil
}
