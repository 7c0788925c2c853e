package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/db"
	"github.com/sells-group/easyrelocate/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	listingColumns = `id, workspace_id, source, source_url, title, price_value, currency, price_period, lat, lng, location_text, captured_at`
	targetColumns  = `id, workspace_id, name, address, lat, lng, updated_at`
)

// Names of statements prepared on each new connection. pgx runs a prepared
// statement when its name is passed in place of SQL text.
const (
	stmtWorkspaceByHash = "get_workspace_by_hash"
	stmtListingBySource = "get_listing_by_source_url"
	stmtListListings    = "list_listings"
	stmtLatestTarget    = "latest_target"
)

// preparedStatements holds the hot-path queries. The auth lookup and the
// listing merge lookup run on nearly every request.
var preparedStatements = map[string]string{
	stmtWorkspaceByHash: `SELECT id, token_hash, created_at, expires_at FROM workspaces WHERE token_hash = $1`,
	stmtListingBySource: `SELECT ` + listingColumns + ` FROM listings WHERE workspace_id = $1 AND source_url = $2`,
	stmtListListings:    `SELECT ` + listingColumns + ` FROM listings WHERE workspace_id = $1 ORDER BY captured_at DESC, id ASC`,
	stmtLatestTarget:    `SELECT ` + targetColumns + ` FROM targets WHERE workspace_id = $1 ORDER BY updated_at DESC, id ASC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS workspaces (
	id         TEXT PRIMARY KEY,
	token_hash TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS listings (
	id            TEXT PRIMARY KEY,
	workspace_id  TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	source        TEXT NOT NULL,
	source_url    TEXT NOT NULL,
	title         TEXT,
	price_value   DOUBLE PRECISION,
	currency      TEXT NOT NULL DEFAULT 'USD',
	price_period  TEXT NOT NULL DEFAULT 'unknown',
	lat           DOUBLE PRECISION,
	lng           DOUBLE PRECISION,
	location_text TEXT,
	captured_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT listings_workspace_source_key UNIQUE (workspace_id, source_url)
);

CREATE TABLE IF NOT EXISTS targets (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	address      TEXT,
	lat          DOUBLE PRECISION NOT NULL,
	lng          DOUBLE PRECISION NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT targets_workspace_name_key UNIQUE (workspace_id, name)
);

CREATE TABLE IF NOT EXISTS interesting_targets (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	address      TEXT,
	lat          DOUBLE PRECISION NOT NULL,
	lng          DOUBLE PRECISION NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_listings_workspace_captured ON listings(workspace_id, captured_at DESC);
CREATE INDEX IF NOT EXISTS idx_targets_workspace_updated ON targets(workspace_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_interesting_targets_workspace ON interesting_targets(workspace_id, updated_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Workspaces ---

func (s *PostgresStore) CreateWorkspace(ctx context.Context, tokenHash string, expiresAt *time.Time) (*model.Workspace, error) {
	w := &model.Workspace{
		ID:        uuid.New().String(),
		TokenHash: tokenHash,
		CreatedAt: normalizeTime(time.Now()),
	}
	if expiresAt != nil {
		e := normalizeTime(*expiresAt)
		w.ExpiresAt = &e
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO workspaces (id, token_hash, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		w.ID, w.TokenHash, w.CreatedAt, w.ExpiresAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.KindConflict, msgWorkspaceExists, err)
		}
		return nil, eris.Wrap(err, "postgres: insert workspace")
	}
	return w, nil
}

func (s *PostgresStore) GetWorkspaceByTokenHash(ctx context.Context, tokenHash string) (*model.Workspace, error) {
	var w model.Workspace
	err := s.pool.QueryRow(ctx, stmtWorkspaceByHash, tokenHash).Scan(&w.ID, &w.TokenHash, &w.CreatedAt, &w.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get workspace by token hash")
	}
	w.CreatedAt = w.CreatedAt.UTC()
	if w.ExpiresAt != nil {
		e := w.ExpiresAt.UTC()
		w.ExpiresAt = &e
	}
	return &w, nil
}

// --- Listings ---

func (s *PostgresStore) GetListing(ctx context.Context, workspaceID, id string) (*model.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	l, err := scanPgListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, eris.Wrapf(err, "postgres: get listing %s", id)
}

func (s *PostgresStore) GetListingBySourceURL(ctx context.Context, workspaceID, sourceURL string) (*model.Listing, error) {
	row := s.pool.QueryRow(ctx, stmtListingBySource, workspaceID, sourceURL)
	l, err := scanPgListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, eris.Wrap(err, "postgres: get listing by source url")
}

func (s *PostgresStore) CreateListing(ctx context.Context, l *model.Listing) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.CapturedAt = normalizeTime(l.CapturedAt)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings (`+listingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		l.ID, l.WorkspaceID, string(l.Source), l.SourceURL, l.Title, l.PriceValue,
		l.Currency, string(l.PricePeriod), l.Lat, l.Lng, l.LocationText, l.CapturedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Wrap(apperr.KindConflict, msgListingConflict, err)
		}
		return eris.Wrap(err, "postgres: insert listing")
	}
	return nil
}

func (s *PostgresStore) UpdateListing(ctx context.Context, l *model.Listing) error {
	l.CapturedAt = normalizeTime(l.CapturedAt)

	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET source = $1, title = $2, price_value = $3, currency = $4, price_period = $5,
		 lat = $6, lng = $7, location_text = $8, captured_at = $9
		 WHERE workspace_id = $10 AND id = $11`,
		string(l.Source), l.Title, l.PriceValue, l.Currency, string(l.PricePeriod),
		l.Lat, l.Lng, l.LocationText, l.CapturedAt, l.WorkspaceID, l.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update listing %s", l.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Listing not found")
	}
	return nil
}

func (s *PostgresStore) ListListings(ctx context.Context, workspaceID string) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, stmtListListings, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list listings")
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanPgListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		listings = append(listings, *l)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: list listings iterate")
}

func (s *PostgresStore) SummarizeListings(ctx context.Context, workspaceID string) (*model.ListingSummary, error) {
	var sum model.ListingSummary
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings WHERE workspace_id = $1`,
		workspaceID,
	).Scan(&sum.Count)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count listings")
	}
	if sum.Count == 0 {
		return &sum, nil
	}

	var id string
	var capturedAt time.Time
	err = s.pool.QueryRow(ctx,
		`SELECT id, captured_at FROM listings WHERE workspace_id = $1 ORDER BY captured_at DESC, id ASC LIMIT 1`,
		workspaceID,
	).Scan(&id, &capturedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &sum, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest listing")
	}
	capturedAt = capturedAt.UTC()
	sum.LatestID = &id
	sum.LatestCapturedAt = &capturedAt
	return &sum, nil
}

func (s *PostgresStore) DeleteListing(ctx context.Context, workspaceID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM listings WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete listing %s", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Listing not found")
	}
	return nil
}

// --- Targets ---

func (s *PostgresStore) GetTarget(ctx context.Context, workspaceID, id string) (*model.Target, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	t, err := scanPgTarget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, eris.Wrapf(err, "postgres: get target %s", id)
}

func (s *PostgresStore) LatestTarget(ctx context.Context, workspaceID string) (*model.Target, error) {
	row := s.pool.QueryRow(ctx, stmtLatestTarget, workspaceID)
	t, err := scanPgTarget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, eris.Wrap(err, "postgres: latest target")
}

func (s *PostgresStore) CreateTarget(ctx context.Context, t *model.Target) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.UpdatedAt = normalizeTime(t.UpdatedAt)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO targets (`+targetColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.WorkspaceID, t.Name, t.Address, t.Lat, t.Lng, t.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return pgTargetConflict("targets", err)
		}
		return eris.Wrap(err, "postgres: insert target")
	}
	return nil
}

func (s *PostgresStore) UpdateTarget(ctx context.Context, t *model.Target) error {
	t.UpdatedAt = normalizeTime(t.UpdatedAt)

	tag, err := s.pool.Exec(ctx,
		`UPDATE targets SET name = $1, address = $2, lat = $3, lng = $4, updated_at = $5
		 WHERE workspace_id = $6 AND id = $7`,
		t.Name, t.Address, t.Lat, t.Lng, t.UpdatedAt, t.WorkspaceID, t.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Wrap(apperr.KindConflict, msgTargetConflict, err)
		}
		return eris.Wrapf(err, "postgres: update target %s", t.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Target not found")
	}
	return nil
}

func (s *PostgresStore) ListTargets(ctx context.Context, workspaceID string) ([]model.Target, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE workspace_id = $1 ORDER BY updated_at DESC, id ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list targets")
	}
	defer rows.Close()

	targets := []model.Target{}
	for rows.Next() {
		t, err := scanPgTarget(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan target")
		}
		targets = append(targets, *t)
	}
	return targets, eris.Wrap(rows.Err(), "postgres: list targets iterate")
}

// --- Interesting targets ---

func (s *PostgresStore) GetInterestingTarget(ctx context.Context, workspaceID, id string) (*model.InterestingTarget, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+targetColumns+` FROM interesting_targets WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	t, err := scanPgTarget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get interesting target %s", id)
	}
	it := model.InterestingTarget(*t)
	return &it, nil
}

func (s *PostgresStore) CreateInterestingTarget(ctx context.Context, t *model.InterestingTarget) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.UpdatedAt = normalizeTime(t.UpdatedAt)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO interesting_targets (`+targetColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.WorkspaceID, t.Name, t.Address, t.Lat, t.Lng, t.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return pgTargetConflict("interesting_targets", err)
		}
		return eris.Wrap(err, "postgres: insert interesting target")
	}
	return nil
}

func (s *PostgresStore) UpdateInterestingTarget(ctx context.Context, t *model.InterestingTarget) error {
	t.UpdatedAt = normalizeTime(t.UpdatedAt)

	tag, err := s.pool.Exec(ctx,
		`UPDATE interesting_targets SET name = $1, address = $2, lat = $3, lng = $4, updated_at = $5
		 WHERE workspace_id = $6 AND id = $7`,
		t.Name, t.Address, t.Lat, t.Lng, t.UpdatedAt, t.WorkspaceID, t.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update interesting target %s", t.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Interesting target not found")
	}
	return nil
}

func (s *PostgresStore) ListInterestingTargets(ctx context.Context, workspaceID string) ([]model.InterestingTarget, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+targetColumns+` FROM interesting_targets WHERE workspace_id = $1 ORDER BY updated_at DESC, id ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list interesting targets")
	}
	defer rows.Close()

	out := []model.InterestingTarget{}
	for rows.Next() {
		t, err := scanPgTarget(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan interesting target")
		}
		out = append(out, model.InterestingTarget(*t))
	}
	return out, eris.Wrap(rows.Err(), "postgres: list interesting targets iterate")
}

func (s *PostgresStore) DeleteInterestingTarget(ctx context.Context, workspaceID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM interesting_targets WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete interesting target %s", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Interesting target not found")
	}
	return nil
}

// helpers

// pgTargetConflict maps a unique violation on table to a Conflict, marking
// primary key collisions with ErrIDTaken.
func pgTargetConflict(table string, err error) error {
	if db.ConstraintName(err) == table+"_pkey" {
		err = errors.Join(ErrIDTaken, err)
	}
	return apperr.Wrap(apperr.KindConflict, msgTargetConflict, err)
}

func scanPgListing(row pgx.Row) (*model.Listing, error) {
	var l model.Listing
	var source, period string
	err := row.Scan(&l.ID, &l.WorkspaceID, &source, &l.SourceURL, &l.Title, &l.PriceValue,
		&l.Currency, &period, &l.Lat, &l.Lng, &l.LocationText, &l.CapturedAt)
	if err != nil {
		return nil, err
	}
	l.Source = model.ListingSource(source)
	l.PricePeriod = model.PricePeriod(period)
	l.CapturedAt = l.CapturedAt.UTC()
	return &l, nil
}

func scanPgTarget(row pgx.Row) (*model.Target, error) {
	var t model.Target
	err := row.Scan(&t.ID, &t.WorkspaceID, &t.Name, &t.Address, &t.Lat, &t.Lng, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}
