package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/pkg/anthropic"
	"github.com/sells-group/easyrelocate/pkg/openrouter"
)

// MockAnthropicClient implements anthropic.Client for testing.
type MockAnthropicClient struct {
	mock.Mock
}

func (m *MockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestAnthropicCompleter(t *testing.T) {
	mc := &MockAnthropicClient{}
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.System == "sys" &&
			len(req.Messages) == 1 &&
			req.Messages[0].Content == "usr" &&
			req.Temperature != nil && *req.Temperature == 0
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"title": "x"}`}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 3},
	}, nil)

	c := &AnthropicCompleter{Client: mc, Model: "claude-haiku-4-5-20251001"}
	got, err := c.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"title": "x"}`, got)
	mc.AssertExpectations(t)
}

func TestAnthropicCompleter_EmptyContent(t *testing.T) {
	mc := &MockAnthropicClient{}
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{}, nil)

	_, err := (&AnthropicCompleter{Client: mc}).Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Equal(t, apperr.KindProvider, apperr.KindOf(err))
}

func TestAnthropicCompleter_Error(t *testing.T) {
	mc := &MockAnthropicClient{}
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	_, err := (&AnthropicCompleter{Client: mc}).Complete(context.Background(), "s", "u")
	require.EqualError(t, err, "down")
}

func TestOpenRouterCompleter(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantMsg string
	}{
		{
			name: "ok",
			body: `{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"title\":null}"}}]}`,
			want: `{"title":null}`,
		},
		{name: "no choices", body: `{"choices":[]}`, wantMsg: "OpenRouter returned no choices"},
		{name: "empty content", body: `{"choices":[{"message":{"content":""}}]}`, wantMsg: "OpenRouter returned empty content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := &OpenRouterCompleter{Client: openrouter.NewClient("k", openrouter.WithBaseURL(srv.URL))}
			got, err := c.Complete(context.Background(), "s", "u")
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Equal(t, apperr.KindProvider, apperr.KindOf(err))
				assert.Equal(t, tt.wantMsg, apperr.Message(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
