package api

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/easyrelocate/internal/model"
	"github.com/sells-group/easyrelocate/pkg/geocode"
)

func TestWriteJSON_EncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"distance_km": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "internal error", errorMessage(t, rec))
}

func TestWriteJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestCompare_AntipodalListing(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token()

	a.geo.On("Reverse", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&geocode.ReverseResult{Address: geocode.Address{}}, nil)

	lat, lng := 18.83885183633153, 158.58327169620446
	rec := a.do(http.MethodPost, "/api/targets", tok, map[string]any{
		"name": "Office", "lat": lat, "lng": lng,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/listings", tok, map[string]any{
		"source": "airbnb", "source_url": "https://www.airbnb.com/rooms/antipode",
		"lat": -lat, "lng": lng - 180,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/compare", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[model.CompareResult](t, rec)
	require.Len(t, res.Items, 1)
	require.NotNil(t, res.Items[0].Metrics.DistanceKM)
	assert.InDelta(t, 20015, *res.Items[0].Metrics.DistanceKM, 1)

	rec = a.do(http.MethodGet, "/api/compare/geojson", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
