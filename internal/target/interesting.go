package target

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/easyrelocate/internal/model"
	"github.com/sells-group/easyrelocate/internal/store"
)

// SaveInteresting stores a point of interest. It updates the row named by
// in.ID when one exists and otherwise creates a new one; it never merges into
// another saved point.
func (s *Service) SaveInteresting(ctx context.Context, workspaceID string, in model.TargetInput) (*model.InterestingTarget, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	loc, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	if in.ID != nil {
		existing, err := s.store.GetInterestingTarget(ctx, workspaceID, *in.ID)
		if err != nil {
			return nil, eris.Wrap(err, "target: get interesting")
		}
		if existing != nil {
			existing.Name = *in.Name
			existing.Address = loc.address
			existing.Lat, existing.Lng = loc.lat, loc.lng
			existing.UpdatedAt = s.now()
			if err := s.store.UpdateInterestingTarget(ctx, existing); err != nil {
				return nil, eris.Wrap(err, "target: update interesting")
			}
			return existing, nil
		}
	}

	it := &model.InterestingTarget{
		WorkspaceID: workspaceID,
		Name:        *in.Name,
		Address:     loc.address,
		Lat:         loc.lat,
		Lng:         loc.lng,
		UpdatedAt:   s.now(),
	}
	if in.ID != nil {
		it.ID = *in.ID
	}
	err = s.store.CreateInterestingTarget(ctx, it)
	if store.IsIDTaken(err) {
		it.ID = ""
		err = s.store.CreateInterestingTarget(ctx, it)
	}
	if err != nil {
		return nil, eris.Wrap(err, "target: create interesting")
	}
	return it, nil
}

// ListInteresting returns saved points of interest, most recently updated
// first.
func (s *Service) ListInteresting(ctx context.Context, workspaceID string) ([]model.InterestingTarget, error) {
	out, err := s.store.ListInterestingTargets(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "target: list interesting")
	}
	return out, nil
}

// DeleteInteresting removes a saved point of interest owned by the workspace.
func (s *Service) DeleteInteresting(ctx context.Context, workspaceID, id string) error {
	return s.store.DeleteInterestingTarget(ctx, workspaceID, id)
}
