// Package extract turns a pasted housing post into structured listing fields
// using an LLM completion provider.
package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
	"github.com/sells-group/easyrelocate/internal/resilience"
)

// DefaultMaxInputChars bounds how much of the pasted text reaches the model.
const DefaultMaxInputChars = 7000

// Completer sends one system+user prompt pair and returns the raw reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Extraction is the best-effort structured reading of a post. Any field may
// be nil.
type Extraction struct {
	Title        *string            `json:"title"`
	LocationText *string            `json:"location_text"`
	PriceValue   *float64           `json:"price_value"`
	Currency     *string            `json:"currency"`
	PricePeriod  *model.PricePeriod `json:"price_period"`
}

// Extractor is the text-extraction gateway.
type Extractor struct {
	completer Completer
	configErr error
	provider  string
	maxChars  int
	retry     resilience.Policy
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxInputChars overrides the input truncation length.
func WithMaxInputChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

// WithRetry overrides the retry policy for provider calls.
func WithRetry(p resilience.Policy) Option {
	return func(e *Extractor) {
		e.retry = p
	}
}

// NewExtractor builds an Extractor around a ready completer.
func NewExtractor(provider string, c Completer, opts ...Option) *Extractor {
	e := &Extractor{
		completer: c,
		provider:  provider,
		maxChars:  DefaultMaxInputChars,
		retry:     resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Unavailable returns an Extractor whose every call fails with a
// configuration error carrying msg.
func Unavailable(provider, msg string) *Extractor {
	return &Extractor{provider: provider, configErr: apperr.Config(msg)}
}

// Provider names the backing provider.
func (e *Extractor) Provider() string { return e.provider }

// Extract reads text (and the optional page URL it came from) and returns the
// normalized extraction. Blank text returns an empty Extraction without a
// provider call.
func (e *Extractor) Extract(ctx context.Context, text, pageURL string) (*Extraction, error) {
	if e.configErr != nil {
		return nil, e.configErr
	}

	selection := strings.TrimSpace(text)
	if selection == "" {
		return &Extraction{}, nil
	}
	selection = truncateRunes(selection, e.maxChars)

	raw, err := resilience.Run(ctx, e.retry, e.provider+" extract", func(ctx context.Context) (string, error) {
		return e.completer.Complete(ctx, systemPrompt, userPrompt(selection, pageURL))
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Provider("Extraction provider error", err)
	}

	obj, err := locateJSONObject(raw)
	if err != nil {
		zap.L().Debug("extract: unusable model reply",
			zap.String("provider", e.provider),
			zap.Int("reply_len", len(raw)),
		)
		return nil, err
	}
	return normalize(obj), nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
