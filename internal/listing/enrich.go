package listing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/easyrelocate/internal/model"
	"github.com/sells-group/easyrelocate/pkg/geocode"
)

// enrich fills missing location data. Both steps are best effort: a failed
// lookup leaves the fields as they were.
func (s *Service) enrich(ctx context.Context, l *model.Listing) {
	if s.geocodeFallback && !l.HasCoords() && l.HasLocationText() {
		if c, ok := s.lookupCoords(ctx, *l.LocationText); ok {
			if l.Lat == nil {
				l.Lat = &c.Lat
			}
			if l.Lng == nil {
				l.Lng = &c.Lng
			}
		}
	}

	if l.LocationText == nil && l.HasCoords() {
		if rough, ok := s.lookupRoughLocation(ctx, *l.Lat, *l.Lng); ok {
			l.LocationText = &rough
		}
	}
}

// lookupCoords returns the first forward geocoding candidate for text, if any.
func (s *Service) lookupCoords(ctx context.Context, text string) (geocode.Candidate, bool) {
	if s.geo == nil || strings.TrimSpace(text) == "" {
		return geocode.Candidate{}, false
	}
	candidates, err := s.geo.Geocode(ctx, text, 1)
	if err != nil {
		zap.L().Debug("listing: geocode fallback failed", zap.Error(err))
		return geocode.Candidate{}, false
	}
	if len(candidates) == 0 {
		return geocode.Candidate{}, false
	}
	return candidates[0], true
}

// lookupRoughLocation returns a city/state description of the point, if the
// provider can produce one.
func (s *Service) lookupRoughLocation(ctx context.Context, lat, lng float64) (string, bool) {
	if s.geo == nil {
		return "", false
	}
	rev, err := s.geo.Reverse(ctx, lat, lng, reverseZoom)
	if err != nil {
		zap.L().Debug("listing: reverse geocode fallback failed", zap.Error(err))
		return "", false
	}
	if rev == nil {
		return "", false
	}
	rough := geocode.RoughLocation(rev.Address)
	return rough, rough != ""
}
