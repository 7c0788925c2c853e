// Package listing implements the workspace-scoped listing upsert engine.
// Listings are keyed by source URL; repeated upserts merge into one row.
package listing

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/easyrelocate/internal/extract"
	"github.com/sells-group/easyrelocate/internal/model"
	"github.com/sells-group/easyrelocate/pkg/geocode"
)

// Store is the persistence the engine needs.
type Store interface {
	GetListingBySourceURL(ctx context.Context, workspaceID, sourceURL string) (*model.Listing, error)
	CreateListing(ctx context.Context, l *model.Listing) error
	UpdateListing(ctx context.Context, l *model.Listing) error
	ListListings(ctx context.Context, workspaceID string) ([]model.Listing, error)
	SummarizeListings(ctx context.Context, workspaceID string) (*model.ListingSummary, error)
	DeleteListing(ctx context.Context, workspaceID, id string) error
}

// Geocoder resolves between place text and coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]geocode.Candidate, error)
	Reverse(ctx context.Context, lat, lng float64, zoom int) (*geocode.ReverseResult, error)
}

// Extractor reads structured fields out of free text.
type Extractor interface {
	Extract(ctx context.Context, text, pageURL string) (*extract.Extraction, error)
}

// reverseZoom is city-level detail, enough for a rough location.
const reverseZoom = 10

// Service is the listing engine.
type Service struct {
	store           Store
	geo             Geocoder
	extractor       Extractor
	geocodeFallback bool
	now             func() time.Time
}

// NewService creates a listing engine. geocodeFallback enables forward
// geocoding of location text for listings without coordinates.
func NewService(store Store, geo Geocoder, extractor Extractor, geocodeFallback bool) *Service {
	return &Service{
		store:           store,
		geo:             geo,
		extractor:       extractor,
		geocodeFallback: geocodeFallback,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Upsert creates the listing for in.SourceURL or merges in into the existing
// one. On merge captured_at is always refreshed while every other field is
// only overwritten by a non-nil input value.
func (s *Service) Upsert(ctx context.Context, workspaceID string, in model.ListingInput) (*model.Listing, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	capturedAt := s.now()
	if in.CapturedAt != nil {
		capturedAt = *in.CapturedAt
	}

	existing, err := s.store.GetListingBySourceURL(ctx, workspaceID, in.SourceURL)
	if err != nil {
		return nil, eris.Wrap(err, "listing: lookup by source_url")
	}

	if existing != nil {
		merge(existing, in)
		existing.CapturedAt = capturedAt
		s.enrich(ctx, existing)
		if err := s.store.UpdateListing(ctx, existing); err != nil {
			return nil, eris.Wrap(err, "listing: update")
		}
		return existing, nil
	}

	l := newListing(workspaceID, in, capturedAt)
	s.enrich(ctx, l)
	if err := s.store.CreateListing(ctx, l); err != nil {
		return nil, eris.Wrap(err, "listing: create")
	}
	return l, nil
}

// List returns the workspace's listings, most recently captured first.
func (s *Service) List(ctx context.Context, workspaceID string) ([]model.Listing, error) {
	out, err := s.store.ListListings(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "listing: list")
	}
	return out, nil
}

// Summary reports the count and most recent capture for the workspace.
func (s *Service) Summary(ctx context.Context, workspaceID string) (*model.ListingSummary, error) {
	out, err := s.store.SummarizeListings(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "listing: summary")
	}
	return out, nil
}

// Delete removes a listing owned by the workspace. A listing in another
// workspace is reported as not found.
func (s *Service) Delete(ctx context.Context, workspaceID, id string) error {
	return s.store.DeleteListing(ctx, workspaceID, id)
}

func newListing(workspaceID string, in model.ListingInput, capturedAt time.Time) *model.Listing {
	l := &model.Listing{
		WorkspaceID:  workspaceID,
		Source:       in.Source,
		SourceURL:    in.SourceURL,
		Title:        in.Title,
		PriceValue:   in.PriceValue,
		Currency:     model.DefaultCurrency,
		PricePeriod:  model.PeriodUnknown,
		Lat:          in.Lat,
		Lng:          in.Lng,
		LocationText: in.LocationText,
		CapturedAt:   capturedAt,
	}
	if in.Currency != nil {
		l.Currency = *in.Currency
	}
	if in.PricePeriod != nil {
		l.PricePeriod = *in.PricePeriod
	}
	return l
}

// merge copies the non-nil fields of in onto l. Source and SourceURL are
// identity and never change.
func merge(l *model.Listing, in model.ListingInput) {
	if in.Title != nil {
		l.Title = in.Title
	}
	if in.PriceValue != nil {
		l.PriceValue = in.PriceValue
	}
	if in.Currency != nil {
		l.Currency = *in.Currency
	}
	if in.PricePeriod != nil {
		l.PricePeriod = *in.PricePeriod
	}
	if in.Lat != nil {
		l.Lat = in.Lat
	}
	if in.Lng != nil {
		l.Lng = in.Lng
	}
	if in.LocationText != nil {
		l.LocationText = in.LocationText
	}
}
