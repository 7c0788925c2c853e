package store

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/easyrelocate/internal/model"
)

// Store defines the persistence interface for workspaces and their listings
// and targets. Every listing and target operation is scoped by workspace id;
// a row owned by another workspace is indistinguishable from a missing one.
//
// Get* methods return (nil, nil) when no row matches. Delete* methods return
// an apperr NotFound error when nothing was deleted. Unique constraint
// failures surface as apperr Conflict errors.
type Store interface {
	// Workspaces
	CreateWorkspace(ctx context.Context, tokenHash string, expiresAt *time.Time) (*model.Workspace, error)
	GetWorkspaceByTokenHash(ctx context.Context, tokenHash string) (*model.Workspace, error)

	// Listings
	GetListing(ctx context.Context, workspaceID, id string) (*model.Listing, error)
	GetListingBySourceURL(ctx context.Context, workspaceID, sourceURL string) (*model.Listing, error)
	CreateListing(ctx context.Context, l *model.Listing) error
	UpdateListing(ctx context.Context, l *model.Listing) error
	ListListings(ctx context.Context, workspaceID string) ([]model.Listing, error)
	SummarizeListings(ctx context.Context, workspaceID string) (*model.ListingSummary, error)
	DeleteListing(ctx context.Context, workspaceID, id string) error

	// Targets
	GetTarget(ctx context.Context, workspaceID, id string) (*model.Target, error)
	LatestTarget(ctx context.Context, workspaceID string) (*model.Target, error)
	CreateTarget(ctx context.Context, t *model.Target) error
	UpdateTarget(ctx context.Context, t *model.Target) error
	ListTargets(ctx context.Context, workspaceID string) ([]model.Target, error)

	// Interesting targets
	GetInterestingTarget(ctx context.Context, workspaceID, id string) (*model.InterestingTarget, error)
	CreateInterestingTarget(ctx context.Context, t *model.InterestingTarget) error
	UpdateInterestingTarget(ctx context.Context, t *model.InterestingTarget) error
	ListInterestingTargets(ctx context.Context, workspaceID string) ([]model.InterestingTarget, error)
	DeleteInterestingTarget(ctx context.Context, workspaceID, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Compile-time checks.
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// Conflict messages shared by both drivers.
const (
	msgListingConflict = "A listing with this source_url already exists"
	msgTargetConflict  = "A target with this id or name already exists"
	msgWorkspaceExists = "Workspace token collision"
)

// ErrIDTaken is joined into the Conflict a target insert returns when the
// requested id is already the primary key of another row.
var ErrIDTaken = errors.New("store: id taken")

// IsIDTaken reports whether err is an insert collision on the id column.
func IsIDTaken(err error) bool {
	return errors.Is(err, ErrIDTaken)
}

// normalizeTime drops sub-microsecond precision and the zone so values read
// back compare equal to values written on either driver.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
