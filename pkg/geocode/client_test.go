package geocode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/easyrelocate/internal/apperr"
)

type recordingProvider struct {
	geocodeCalls int
	lastLimit    int
	lastZoom     int
	lastQuery    string
	candidates   []Candidate
	reverse      *ReverseResult
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Geocode(_ context.Context, q string, limit int) ([]Candidate, error) {
	p.geocodeCalls++
	p.lastQuery = q
	p.lastLimit = limit
	return p.candidates, nil
}

func (p *recordingProvider) Reverse(_ context.Context, _, _ float64, zoom int) (*ReverseResult, error) {
	p.lastZoom = zoom
	return p.reverse, nil
}

func TestClient_Geocode_BlankQuery(t *testing.T) {
	p := &recordingProvider{}
	c := NewClient(p)

	got, err := c.Geocode(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, p.geocodeCalls)
}

func TestClient_Geocode_ClampsLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: 1},
		{in: -4, want: 1},
		{in: 5, want: 5},
		{in: 10, want: 10},
		{in: 50, want: 10},
	}
	for _, tt := range tests {
		p := &recordingProvider{}
		_, err := NewClient(p).Geocode(context.Background(), " austin ", tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.lastLimit, "limit %d", tt.in)
		assert.Equal(t, "austin", p.lastQuery)
	}
}

func TestClient_Geocode_TruncatesToLimit(t *testing.T) {
	p := &recordingProvider{candidates: []Candidate{{DisplayName: "a"}, {DisplayName: "b"}, {DisplayName: "c"}}}

	got, err := NewClient(p).Geocode(context.Background(), "x", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestClient_Reverse_ClampsZoom(t *testing.T) {
	p := &recordingProvider{}
	c := NewClient(p)

	got, err := c.Reverse(context.Background(), 1, 2, 99)
	require.NoError(t, err)
	assert.Equal(t, MaxZoom, p.lastZoom)
	require.NotNil(t, got)
	assert.NotNil(t, got.Address)

	_, err = c.Reverse(context.Background(), 1, 2, -1)
	require.NoError(t, err)
	assert.Equal(t, MinZoom, p.lastZoom)
}

func TestNew_Selection(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "disabled", cfg: Config{Enabled: false, GoogleAPIKey: "k"}, want: "disabled"},
		{name: "auto without key", cfg: Config{Enabled: true}, want: "nominatim"},
		{name: "auto with key", cfg: Config{Enabled: true, GoogleAPIKey: "k"}, want: "google"},
		{name: "explicit nominatim with key", cfg: Config{Enabled: true, Provider: "Nominatim", GoogleAPIKey: "k"}, want: "nominatim"},
		{name: "explicit google", cfg: Config{Enabled: true, Provider: "google", GoogleAPIKey: "k"}, want: "google"},
		{name: "explicit google without key", cfg: Config{Enabled: true, Provider: "google"}, want: "google"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.cfg).ProviderName())
		})
	}
}

func TestNew_Disabled_ReturnsEmpty(t *testing.T) {
	c := New(Config{Enabled: false})

	got, err := c.Geocode(context.Background(), "Austin", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	rev, err := c.Reverse(context.Background(), 30, -97, 10)
	require.NoError(t, err)
	assert.Empty(t, rev.DisplayName)
	assert.Empty(t, rev.Address)
}

func TestNew_GoogleWithoutKey_ConfigError(t *testing.T) {
	c := New(Config{Enabled: true, Provider: "google"})

	_, err := c.Geocode(context.Background(), "Austin", 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))

	_, err = c.Reverse(context.Background(), 30, -97, 10)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
}
