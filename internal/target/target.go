// Package target implements the target upsert engine and saved points of
// interest.
package target

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
	"github.com/sells-group/easyrelocate/internal/store"
	"github.com/sells-group/easyrelocate/pkg/geocode"
)

// Store is the persistence the engine needs.
type Store interface {
	GetTarget(ctx context.Context, workspaceID, id string) (*model.Target, error)
	LatestTarget(ctx context.Context, workspaceID string) (*model.Target, error)
	CreateTarget(ctx context.Context, t *model.Target) error
	UpdateTarget(ctx context.Context, t *model.Target) error
	ListTargets(ctx context.Context, workspaceID string) ([]model.Target, error)

	GetInterestingTarget(ctx context.Context, workspaceID, id string) (*model.InterestingTarget, error)
	CreateInterestingTarget(ctx context.Context, t *model.InterestingTarget) error
	UpdateInterestingTarget(ctx context.Context, t *model.InterestingTarget) error
	ListInterestingTargets(ctx context.Context, workspaceID string) ([]model.InterestingTarget, error)
	DeleteInterestingTarget(ctx context.Context, workspaceID, id string) error
}

// Geocoder resolves between addresses and coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]geocode.Candidate, error)
	Reverse(ctx context.Context, lat, lng float64, zoom int) (*geocode.ReverseResult, error)
}

// reverseZoom is street-level detail for a display address.
const reverseZoom = 14

// Service is the target engine.
type Service struct {
	store Store
	geo   Geocoder
	now   func() time.Time
}

// NewService creates a target engine.
func NewService(store Store, geo Geocoder) *Service {
	return &Service{
		store: store,
		geo:   geo,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// location is a resolved target position.
type location struct {
	address *string
	lat     float64
	lng     float64
}

// Upsert resolves in to coordinates and saves it. The row updated is the one
// named by in.ID when it exists, otherwise the workspace's most recently
// updated target; a new target is created only when the workspace has none.
func (s *Service) Upsert(ctx context.Context, workspaceID string, in model.TargetInput) (*model.Target, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	loc, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	var existing *model.Target
	if in.ID != nil {
		existing, err = s.store.GetTarget(ctx, workspaceID, *in.ID)
		if err != nil {
			return nil, eris.Wrap(err, "target: get by id")
		}
	}
	if existing == nil {
		existing, err = s.store.LatestTarget(ctx, workspaceID)
		if err != nil {
			return nil, eris.Wrap(err, "target: latest")
		}
	}

	if existing != nil {
		if in.Name != nil {
			existing.Name = *in.Name
		}
		existing.Address = loc.address
		existing.Lat, existing.Lng = loc.lat, loc.lng
		existing.UpdatedAt = s.now()
		if err := s.store.UpdateTarget(ctx, existing); err != nil {
			return nil, eris.Wrap(err, "target: update")
		}
		return existing, nil
	}

	t := &model.Target{
		WorkspaceID: workspaceID,
		Name:        *in.Name,
		Address:     loc.address,
		Lat:         loc.lat,
		Lng:         loc.lng,
		UpdatedAt:   s.now(),
	}
	if in.ID != nil {
		t.ID = *in.ID
	}
	err = s.store.CreateTarget(ctx, t)
	if store.IsIDTaken(err) {
		// Held by another workspace: treat it like an unknown id.
		t.ID = ""
		err = s.store.CreateTarget(ctx, t)
	}
	if err != nil {
		return nil, eris.Wrap(err, "target: create")
	}
	return t, nil
}

// List returns the workspace's targets, most recently updated first.
func (s *Service) List(ctx context.Context, workspaceID string) ([]model.Target, error) {
	out, err := s.store.ListTargets(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "target: list")
	}
	return out, nil
}

// Current returns the target named by id, or the most recently updated one
// when id is empty.
func (s *Service) Current(ctx context.Context, workspaceID, id string) (*model.Target, error) {
	if id != "" {
		t, err := s.store.GetTarget(ctx, workspaceID, id)
		if err != nil {
			return nil, eris.Wrap(err, "target: get by id")
		}
		if t == nil {
			return nil, apperr.NotFound("Target not found")
		}
		return t, nil
	}

	t, err := s.store.LatestTarget(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "target: latest")
	}
	if t == nil {
		return nil, apperr.NotFound("No target set yet. POST /api/targets first.")
	}
	return t, nil
}

// resolve turns validated input into coordinates plus an optional address.
// Coordinates are mandatory, so forward geocoding failures are returned. The
// display address is cosmetic, so reverse geocoding failures are not.
func (s *Service) resolve(ctx context.Context, in model.TargetInput) (location, error) {
	address := trimmedOrNil(in.Address)

	if in.Lat != nil && in.Lng != nil {
		loc := location{address: address, lat: *in.Lat, lng: *in.Lng}
		if loc.address == nil {
			loc.address = s.displayAddress(ctx, loc.lat, loc.lng)
		}
		return loc, nil
	}

	if s.geo == nil {
		return location{}, apperr.Config("Geocoding is not configured")
	}
	candidates, err := s.geo.Geocode(ctx, *address, 1)
	if err != nil {
		return location{}, err
	}
	if len(candidates) == 0 {
		return location{}, apperr.NotFound("Address not found")
	}
	return location{address: address, lat: candidates[0].Lat, lng: candidates[0].Lng}, nil
}

// displayAddress describes a point for display, preferring the rough
// location and then the provider's display name. It returns nil on failure.
func (s *Service) displayAddress(ctx context.Context, lat, lng float64) *string {
	if s.geo == nil {
		return nil
	}
	rev, err := s.geo.Reverse(ctx, lat, lng, reverseZoom)
	if err != nil {
		zap.L().Debug("target: reverse geocode failed", zap.Error(err))
		return nil
	}
	if rev == nil {
		return nil
	}
	if rough := geocode.RoughLocation(rev.Address); rough != "" {
		return &rough
	}
	return trimmedOrNil(&rev.DisplayName)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
