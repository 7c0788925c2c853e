package api

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/pkg/geocode"
)

const (
	maxQueryLen         = 512
	defaultGeocodeLimit = 5
	defaultReverseZoom  = 14
)

type reverseGeocodeResponse struct {
	DisplayName   *string `json:"display_name"`
	RoughLocation *string `json:"rough_location"`
	ApproxStreet  *string `json:"approx_street"`
}

func (s *Server) geocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" || utf8.RuneCountInString(query) > maxQueryLen {
		writeAppError(w, r, apperr.Validation("query must be between 1 and 512 characters"))
		return
	}
	limit, err := intParam(q.Get("limit"), defaultGeocodeLimit, geocode.MinLimit, geocode.MaxLimit)
	if err != nil {
		writeAppError(w, r, apperr.Validation("limit must be an integer between 1 and 10"))
		return
	}

	out, err := s.Geocoder.Geocode(r.Context(), query, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if out == nil {
		out = []geocode.Candidate{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) reverseGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeAppError(w, r, apperr.Validation("lat and lng must be numbers"))
		return
	}
	zoom, err := intParam(q.Get("zoom"), defaultReverseZoom, geocode.MinZoom, geocode.MaxZoom)
	if err != nil {
		writeAppError(w, r, apperr.Validation("zoom must be an integer between 0 and 18"))
		return
	}

	rev, err := s.Geocoder.Reverse(r.Context(), lat, lng, zoom)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if rev == nil {
		rev = &geocode.ReverseResult{}
	}
	writeJSON(w, http.StatusOK, reverseGeocodeResponse{
		DisplayName:   nonBlank(rev.DisplayName),
		RoughLocation: nonBlank(geocode.RoughLocation(rev.Address)),
		ApproxStreet:  nonBlank(geocode.ApproxStreet(rev.Address)),
	})
}

// intParam parses an optional integer query parameter within [lo, hi].
func intParam(raw string, def, lo, hi int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func nonBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
