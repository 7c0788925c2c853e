package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/config"
	"github.com/sells-group/easyrelocate/internal/resilience"
	"github.com/sells-group/easyrelocate/pkg/anthropic"
	"github.com/sells-group/easyrelocate/pkg/openrouter"
)

const anthropicMaxTokens = 1024

// New builds the Extractor selected by cfg. A provider without its API key
// yields an Extractor that fails every call with a configuration error.
func New(cfg config.ExtractConfig) *Extractor {
	opts := []Option{
		WithMaxInputChars(cfg.MaxInputChars),
		WithRetry(resilience.WithAttempts(cfg.MaxAttempts)),
	}

	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return Unavailable("anthropic", "ANTHROPIC_API_KEY is not set")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return NewExtractor("anthropic", &AnthropicCompleter{Client: client, Model: cfg.Anthropic.Model}, opts...)
	default:
		if cfg.OpenRouter.Key == "" {
			return Unavailable("openrouter", "OPENROUTER_API_KEY is not set")
		}
		client := openrouter.NewClient(cfg.OpenRouter.Key,
			openrouter.WithBaseURL(cfg.OpenRouter.BaseURL),
			openrouter.WithModel(cfg.OpenRouter.Model),
			openrouter.WithAppInfo(cfg.OpenRouter.AppURL, cfg.OpenRouter.AppName),
			openrouter.WithTimeout(cfg.Timeout()),
		)
		return NewExtractor("openrouter", &OpenRouterCompleter{Client: client}, opts...)
	}
}

// OpenRouterCompleter completes prompts with an OpenRouter chat model.
type OpenRouterCompleter struct {
	Client openrouter.Client
	Model  string // empty uses the client default
}

// Complete implements Completer.
func (c *OpenRouterCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temp := 0.0
	resp, err := c.Client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openrouter.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	content, err := resp.Content()
	if err != nil {
		return "", apperr.Provider(providerMessage(err), err)
	}
	return content, nil
}

// AnthropicCompleter completes prompts with a Claude model.
type AnthropicCompleter struct {
	Client anthropic.Client
	Model  string
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temp := 0.0
	resp, err := c.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.Model,
		MaxTokens:   anthropicMaxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(c.Model, "extract")

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", apperr.Provider("Anthropic returned empty content", eris.New("anthropic: empty content"))
	}
	return text, nil
}

// providerMessage turns "openrouter: returned no choices" into
// "OpenRouter returned no choices".
func providerMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "openrouter: "); ok {
		return "OpenRouter " + rest
	}
	return msg
}
