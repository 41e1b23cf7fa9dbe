package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"corisa-backend/internal/config"
	"corisa-backend/internal/engine"
	"corisa-backend/internal/instrument"
)

const (
	requestTimeout  = 120 * time.Second
	maxResponseSize = 4 << 20
	retryDelay      = time.Second
)

// Provider talks to an OpenAI-compatible /chat/completions endpoint and
// always asks for a JSON object response.
type Provider struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	http        *http.Client
}

// NewProvider returns nil when the AI section of the config is incomplete.
func NewProvider(cfg config.AIConfig) *Provider {
	if !cfg.Configured() {
		return nil
	}
	return &Provider{
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		http:        &http.Client{Timeout: requestTimeout},
	}
}

func (p *Provider) Model() string { return p.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string    `json:"model"`
	Temperature    float64   `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the two prompts and returns the assistant's reply text.
// Gateway errors from the provider are retried once.
func (p *Provider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := chatRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages:    []message{{Role: "system", Content: systemPrompt}, {Role: "user", Content: userPrompt}},
	}
	req.ResponseFormat.Type = "json_object"
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "ai", "provider", "ai.generate")
	defer span.End()
	span.SetMetadata("model", p.model)

	var (
		resp   *chatResponse
		status int
	)
	for attempt := 1; ; attempt++ {
		resp, status, err = p.post(ctx, payload)
		if err == nil && status < 300 {
			break
		}
		if attempt == 2 || !retryable(status) {
			span.SetStatus("error")
			return "", providerError(status, resp, err)
		}
		select {
		case <-ctx.Done():
			span.SetStatus("error")
			return "", providerError(0, nil, ctx.Err())
		case <-time.After(retryDelay):
		}
	}

	span.SetMetadata("prompt_tokens", resp.Usage.PromptTokens)
	span.SetMetadata("completion_tokens", resp.Usage.CompletionTokens)
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		span.SetStatus("error")
		return "", aiFailure("AI provider returned empty response")
	}
	span.SetStatus("ok")
	return resp.Choices[0].Message.Content, nil
}

// post returns the decoded body for any HTTP status; err covers transport
// and decoding failures only.
func (p *Provider) post(ctx context.Context, payload []byte) (*chatResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	res, err := p.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, res.StatusCode, err
	}
	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if res.StatusCode >= 300 {
			out.Error = &struct {
				Message string `json:"message"`
			}{Message: strings.TrimSpace(string(body))}
			return &out, res.StatusCode, nil
		}
		return nil, res.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return &out, res.StatusCode, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func providerError(status int, resp *chatResponse, err error) error {
	switch {
	case err != nil && status == 0:
		return aiFailure(fmt.Sprintf("Failed to connect to AI provider: %v", err))
	case err != nil:
		return aiFailure(fmt.Sprintf("Failed to read AI response: %v", err))
	case resp != nil && resp.Error != nil && resp.Error.Message != "":
		return aiFailure(fmt.Sprintf("AI provider returned %d: %s", status, resp.Error.Message))
	default:
		return aiFailure(fmt.Sprintf("AI provider returned %d", status))
	}
}

func aiFailure(msg string) *engine.AppError {
	return engine.NewAppError("AI_REQUEST_FAILED", http.StatusBadGateway, msg)
}
