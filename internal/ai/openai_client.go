package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client for the chat completions API. With an
// empty apiKey the client still constructs but every call fails with
// ErrNotConfigured.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	if apiKey == "" {
		return &OpenAIClient{model: model}
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 45 * time.Second}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Text,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            c.model,
		Messages:         msgs,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	log.Debug().
		Str("model", c.model).
		Dur("took", time.Since(start)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("chat completion")

	return resp.Choices[0].Message.Content, nil
}

// classifyError maps quota and rate-limit failures to ErrRateLimited so the
// caller can pick a distinct fallback.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := fmt.Sprint(apiErr.Code)
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.Type == "insufficient_quota" ||
			code == "insufficient_quota" || code == "rate_limit_exceeded" {
			return errors.Wrapf(ErrRateLimited, "openai %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return errors.Wrapf(err, "openai %d", apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return errors.Wrap(ErrRateLimited, "openai 429")
	}
	return errors.Wrap(err, "openai chat completion")
}
