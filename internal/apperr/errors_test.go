package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad"), KindValidation},
		{"not found", NotFound("missing"), KindNotFound},
		{"unauthenticated", Unauthenticated("nope"), KindUnauthenticated},
		{"conflict", Conflict("dup"), KindConflict},
		{"config", Config("no key"), KindConfig},
		{"provider", Provider("upstream", fmt.Errorf("boom")), KindProvider},
		{"fmt wrapped", fmt.Errorf("outer: %w", NotFound("x")), KindNotFound},
		{"plain", fmt.Errorf("plain"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindValidation.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, KindUnauthenticated.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindForbidden.HTTPStatus())
	assert.Equal(t, http.StatusConflict, KindConflict.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindConfig.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, KindProvider.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
}

func TestMessage_HidesInternals(t *testing.T) {
	assert.Equal(t, "internal error", Message(eris.New("pq: connection refused")))
	assert.Equal(t, "Target not found", Message(NotFound("Target not found")))

	err := Provider("geocoding provider failed", eris.New("dial tcp: timeout"))
	assert.Equal(t, "geocoding provider failed", Message(err))
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestIs(t *testing.T) {
	assert.True(t, Is(Config("x"), KindConfig))
	assert.False(t, Is(Config("x"), KindProvider))
	assert.False(t, Is(nil, KindInternal))
}
