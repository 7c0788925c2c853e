// Package compare joins a workspace's listings against one target and
// exports the result as JSON, GeoJSON, or a spreadsheet.
package compare

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/easyrelocate/internal/distance"
	"github.com/sells-group/easyrelocate/internal/model"
)

// TargetResolver picks the target to compare against.
type TargetResolver interface {
	Current(ctx context.Context, workspaceID, id string) (*model.Target, error)
}

// ListingLister lists a workspace's listings, most recently captured first.
type ListingLister interface {
	ListListings(ctx context.Context, workspaceID string) ([]model.Listing, error)
}

// Service is the comparison engine.
type Service struct {
	targets  TargetResolver
	listings ListingLister
}

// NewService creates a comparison engine.
func NewService(targets TargetResolver, listings ListingLister) *Service {
	return &Service{targets: targets, listings: listings}
}

// Compare measures every listing in the workspace against the target named
// by targetID, or the most recently updated target when targetID is empty.
func (s *Service) Compare(ctx context.Context, workspaceID, targetID string) (*model.CompareResult, error) {
	t, err := s.targets.Current(ctx, workspaceID, targetID)
	if err != nil {
		return nil, err
	}
	listings, err := s.listings.ListListings(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "compare: list listings")
	}
	return Build(*t, listings), nil
}

// Build pairs each listing with its distance to t, keeping the listings'
// order. Listings without coordinates get a nil distance.
func Build(t model.Target, listings []model.Listing) *model.CompareResult {
	items := make([]model.CompareItem, 0, len(listings))
	for _, l := range listings {
		var metrics model.CompareMetrics
		if l.HasCoords() {
			d := distance.HaversineKM(*l.Lat, *l.Lng, t.Lat, t.Lng)
			metrics.DistanceKM = &d
		}
		items = append(items, model.CompareItem{Listing: l, Metrics: metrics})
	}
	return &model.CompareResult{Target: t, Items: items}
}
