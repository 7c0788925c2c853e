package geocode

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/resilience"
)

const (
	MinLimit = 1
	MaxLimit = 10
	MinZoom  = 0
	MaxZoom  = 18
)

// Config selects and configures a provider.
type Config struct {
	Enabled          bool
	Provider         string // "nominatim", "google", or "" for automatic
	NominatimBaseURL string
	NominatimRPS     float64
	GoogleAPIKey     string
	CountryCodes     string
	UserAgent        string
	Timeout          time.Duration
}

// Option configures provider HTTP plumbing.
type Option func(*transport)

// WithHTTPClient sets a custom HTTP client for provider requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *transport) {
		t.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for provider calls.
func WithRateLimit(rps float64) Option {
	return func(t *transport) {
		t.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithLimiter sets the rate limiter directly.
func WithLimiter(l *rate.Limiter) Option {
	return func(t *transport) {
		t.limiter = l
	}
}

// Client is the geocoding gateway. It normalizes inputs before they reach the
// selected provider.
type Client struct {
	provider Provider
}

// NewClient wraps an already constructed provider.
func NewClient(p Provider) *Client {
	return &Client{provider: p}
}

// New builds a Client from cfg. An explicit provider wins; otherwise Google is
// used when an API key is configured and Nominatim when not. A disabled
// configuration yields a client that always returns empty results.
func New(cfg Config, opts ...Option) *Client {
	if !cfg.Enabled {
		return NewClient(disabledProvider{})
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name != "google" && name != "nominatim" {
		name = "nominatim"
		if cfg.GoogleAPIKey != "" {
			name = "google"
		}
	}

	if name == "google" {
		if cfg.GoogleAPIKey == "" {
			return NewClient(misconfiguredProvider{name: "google", msg: "GOOGLE_MAPS_API_KEY is not set"})
		}
		return NewClient(NewGoogle(cfg.GoogleAPIKey, cfg.CountryCodes, append([]Option{withTimeout(cfg.Timeout)}, opts...)...))
	}

	base := []Option{withTimeout(cfg.Timeout)}
	if cfg.NominatimRPS > 0 {
		base = append(base, WithRateLimit(cfg.NominatimRPS))
	}
	return NewClient(NewNominatim(cfg.NominatimBaseURL, cfg.UserAgent, cfg.CountryCodes, append(base, opts...)...))
}

// ProviderName reports which backend is in use.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Geocode looks up query and returns at most limit candidates, where limit is
// clamped to [1, 10]. A blank query returns no candidates without calling the
// provider.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]Candidate, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []Candidate{}, nil
	}
	limit = clamp(limit, MinLimit, MaxLimit)

	out, err := c.provider.Geocode(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Candidate{}
	}
	return out, nil
}

// Reverse looks up the point with zoom clamped to [0, 18]. The result is
// never nil on success.
func (c *Client) Reverse(ctx context.Context, lat, lng float64, zoom int) (*ReverseResult, error) {
	res, err := c.provider.Reverse(ctx, lat, lng, clamp(zoom, MinZoom, MaxZoom))
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &ReverseResult{}
	}
	if res.Address == nil {
		res.Address = Address{}
	}
	return res, nil
}

// transport is the HTTP plumbing shared by the HTTP providers.
type transport struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

func newTransport(opts []Option) transport {
	t := transport{
		httpClient: &http.Client{Timeout: 6 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func withTimeout(d time.Duration) Option {
	return func(t *transport) {
		if d > 0 {
			t.httpClient = &http.Client{Timeout: d, Transport: t.httpClient.Transport}
		}
	}
}

const providerErrMsg = "Geocoding provider error"

// get performs a rate-limited GET and returns the body of a 2xx response.
// Everything else is a provider error.
func (t *transport) get(ctx context.Context, provider, reqURL string) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, apperr.Provider(providerErrMsg, eris.Wrapf(err, "geocode: %s rate limit", provider))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s build request", provider)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Provider(providerErrMsg, resilience.ClassifyStatus(eris.Wrapf(err, "geocode: %s request", provider), 0))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := eris.Errorf("geocode: %s returned status %d", provider, resp.StatusCode)
		return nil, apperr.Provider(providerErrMsg, resilience.ClassifyStatus(statusErr, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Provider(providerErrMsg, eris.Wrapf(err, "geocode: %s read body", provider))
	}
	return body, nil
}

// disabledProvider answers every lookup with nothing.
type disabledProvider struct{}

func (disabledProvider) Name() string { return "disabled" }

func (disabledProvider) Geocode(context.Context, string, int) ([]Candidate, error) {
	return []Candidate{}, nil
}

func (disabledProvider) Reverse(context.Context, float64, float64, int) (*ReverseResult, error) {
	return &ReverseResult{Address: Address{}}, nil
}

// misconfiguredProvider fails every lookup with a configuration error.
type misconfiguredProvider struct {
	name string
	msg  string
}

func (p misconfiguredProvider) Name() string { return p.name }

func (p misconfiguredProvider) Geocode(context.Context, string, int) ([]Candidate, error) {
	zap.L().Debug("geocode: provider misconfigured", zap.String("provider", p.name))
	return nil, apperr.Config(p.msg)
}

func (p misconfiguredProvider) Reverse(context.Context, float64, float64, int) (*ReverseResult, error) {
	zap.L().Debug("geocode: provider misconfigured", zap.String("provider", p.name))
	return nil, apperr.Config(p.msg)
}
