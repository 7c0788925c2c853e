package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqliteTimeLayout is fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	// foreign_keys is per connection, so it rides on the DSN for every
	// connection the pool opens.
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+"_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS workspaces (
	id         TEXT PRIMARY KEY,
	token_hash TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	expires_at TEXT
);

CREATE TABLE IF NOT EXISTS listings (
	id            TEXT PRIMARY KEY,
	workspace_id  TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	source        TEXT NOT NULL,
	source_url    TEXT NOT NULL,
	title         TEXT,
	price_value   REAL,
	currency      TEXT NOT NULL DEFAULT 'USD',
	price_period  TEXT NOT NULL DEFAULT 'unknown',
	lat           REAL,
	lng           REAL,
	location_text TEXT,
	captured_at   TEXT NOT NULL,
	UNIQUE (workspace_id, source_url)
);

CREATE TABLE IF NOT EXISTS targets (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	address      TEXT,
	lat          REAL NOT NULL,
	lng          REAL NOT NULL,
	updated_at   TEXT NOT NULL,
	UNIQUE (workspace_id, name)
);

CREATE TABLE IF NOT EXISTS interesting_targets (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	address      TEXT,
	lat          REAL NOT NULL,
	lng          REAL NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listings_workspace_captured ON listings(workspace_id, captured_at);
CREATE INDEX IF NOT EXISTS idx_targets_workspace_updated ON targets(workspace_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_interesting_targets_workspace ON interesting_targets(workspace_id, updated_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Workspaces ---

func (s *SQLiteStore) CreateWorkspace(ctx context.Context, tokenHash string, expiresAt *time.Time) (*model.Workspace, error) {
	w := &model.Workspace{
		ID:        uuid.New().String(),
		TokenHash: tokenHash,
		CreatedAt: normalizeTime(time.Now()),
	}
	if expiresAt != nil {
		e := normalizeTime(*expiresAt)
		w.ExpiresAt = &e
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, token_hash, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		w.ID, w.TokenHash, formatTime(w.CreatedAt), formatNullTime(w.ExpiresAt),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return nil, apperr.Wrap(apperr.KindConflict, msgWorkspaceExists, err)
		}
		return nil, eris.Wrap(err, "sqlite: insert workspace")
	}
	return w, nil
}

func (s *SQLiteStore) GetWorkspaceByTokenHash(ctx context.Context, tokenHash string) (*model.Workspace, error) {
	var w model.Workspace
	var createdAt string
	var expiresAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token_hash, created_at, expires_at FROM workspaces WHERE token_hash = ?`,
		tokenHash,
	).Scan(&w.ID, &w.TokenHash, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get workspace by token hash")
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if w.ExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// --- Listings ---

const sqliteListingSelect = `SELECT id, workspace_id, source, source_url, title, price_value, currency,
	price_period, lat, lng, location_text, captured_at FROM listings`

func (s *SQLiteStore) GetListing(ctx context.Context, workspaceID, id string) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		sqliteListingSelect+` WHERE workspace_id = ? AND id = ?`,
		workspaceID, id,
	)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, eris.Wrapf(err, "sqlite: get listing %s", id)
}

func (s *SQLiteStore) GetListingBySourceURL(ctx context.Context, workspaceID, sourceURL string) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		sqliteListingSelect+` WHERE workspace_id = ? AND source_url = ?`,
		workspaceID, sourceURL,
	)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, eris.Wrap(err, "sqlite: get listing by source url")
}

func (s *SQLiteStore) CreateListing(ctx context.Context, l *model.Listing) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.CapturedAt = normalizeTime(l.CapturedAt)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (id, workspace_id, source, source_url, title, price_value, currency,
		 price_period, lat, lng, location_text, captured_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.WorkspaceID, string(l.Source), l.SourceURL, l.Title, l.PriceValue, l.Currency,
		string(l.PricePeriod), l.Lat, l.Lng, l.LocationText, formatTime(l.CapturedAt),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return apperr.Wrap(apperr.KindConflict, msgListingConflict, err)
		}
		return eris.Wrap(err, "sqlite: insert listing")
	}
	return nil
}

func (s *SQLiteStore) UpdateListing(ctx context.Context, l *model.Listing) error {
	l.CapturedAt = normalizeTime(l.CapturedAt)

	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET source = ?, title = ?, price_value = ?, currency = ?, price_period = ?,
		 lat = ?, lng = ?, location_text = ?, captured_at = ?
		 WHERE workspace_id = ? AND id = ?`,
		string(l.Source), l.Title, l.PriceValue, l.Currency, string(l.PricePeriod),
		l.Lat, l.Lng, l.LocationText, formatTime(l.CapturedAt), l.WorkspaceID, l.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update listing %s", l.ID)
	}
	return checkRowsAffected(res, "Listing not found")
}

func (s *SQLiteStore) ListListings(ctx context.Context, workspaceID string) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteListingSelect+` WHERE workspace_id = ? ORDER BY captured_at DESC, id ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list listings")
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		listings = append(listings, *l)
	}
	return listings, eris.Wrap(rows.Err(), "sqlite: list listings iterate")
}

func (s *SQLiteStore) SummarizeListings(ctx context.Context, workspaceID string) (*model.ListingSummary, error) {
	var sum model.ListingSummary
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE workspace_id = ?`, workspaceID,
	).Scan(&sum.Count); err != nil {
		return nil, eris.Wrap(err, "sqlite: count listings")
	}
	if sum.Count == 0 {
		return &sum, nil
	}

	var id, capturedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, captured_at FROM listings WHERE workspace_id = ? ORDER BY captured_at DESC, id ASC LIMIT 1`,
		workspaceID,
	).Scan(&id, &capturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &sum, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest listing")
	}
	ts, err := parseTime(capturedAt)
	if err != nil {
		return nil, err
	}
	sum.LatestID = &id
	sum.LatestCapturedAt = &ts
	return &sum, nil
}

func (s *SQLiteStore) DeleteListing(ctx context.Context, workspaceID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM listings WHERE workspace_id = ? AND id = ?`,
		workspaceID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete listing %s", id)
	}
	return checkRowsAffected(res, "Listing not found")
}

// --- Targets ---

func (s *SQLiteStore) GetTarget(ctx context.Context, workspaceID, id string) (*model.Target, error) {
	return s.getTarget(ctx, "targets", workspaceID, id)
}

func (s *SQLiteStore) LatestTarget(ctx context.Context, workspaceID string) (*model.Target, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, address, lat, lng, updated_at FROM targets
		 WHERE workspace_id = ? ORDER BY updated_at DESC, id ASC LIMIT 1`,
		workspaceID,
	)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, eris.Wrap(err, "sqlite: latest target")
}

func (s *SQLiteStore) CreateTarget(ctx context.Context, t *model.Target) error {
	return s.insertTarget(ctx, "targets", t)
}

func (s *SQLiteStore) UpdateTarget(ctx context.Context, t *model.Target) error {
	return s.updateTarget(ctx, "targets", t, "Target not found")
}

func (s *SQLiteStore) ListTargets(ctx context.Context, workspaceID string) ([]model.Target, error) {
	return s.listTargets(ctx, "targets", workspaceID)
}

// --- Interesting targets ---

func (s *SQLiteStore) GetInterestingTarget(ctx context.Context, workspaceID, id string) (*model.InterestingTarget, error) {
	t, err := s.getTarget(ctx, "interesting_targets", workspaceID, id)
	if t == nil || err != nil {
		return nil, err
	}
	it := model.InterestingTarget(*t)
	return &it, nil
}

func (s *SQLiteStore) CreateInterestingTarget(ctx context.Context, it *model.InterestingTarget) error {
	t := model.Target(*it)
	if err := s.insertTarget(ctx, "interesting_targets", &t); err != nil {
		return err
	}
	*it = model.InterestingTarget(t)
	return nil
}

func (s *SQLiteStore) UpdateInterestingTarget(ctx context.Context, it *model.InterestingTarget) error {
	t := model.Target(*it)
	if err := s.updateTarget(ctx, "interesting_targets", &t, "Interesting target not found"); err != nil {
		return err
	}
	*it = model.InterestingTarget(t)
	return nil
}

func (s *SQLiteStore) ListInterestingTargets(ctx context.Context, workspaceID string) ([]model.InterestingTarget, error) {
	targets, err := s.listTargets(ctx, "interesting_targets", workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]model.InterestingTarget, 0, len(targets))
	for _, t := range targets {
		out = append(out, model.InterestingTarget(t))
	}
	return out, nil
}

func (s *SQLiteStore) DeleteInterestingTarget(ctx context.Context, workspaceID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM interesting_targets WHERE workspace_id = ? AND id = ?`,
		workspaceID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete interesting target %s", id)
	}
	return checkRowsAffected(res, "Interesting target not found")
}

// table is always one of the two literal target table names.
func (s *SQLiteStore) getTarget(ctx context.Context, table, workspaceID, id string) (*model.Target, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, address, lat, lng, updated_at FROM `+table+`
		 WHERE workspace_id = ? AND id = ?`,
		workspaceID, id,
	)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, eris.Wrapf(err, "sqlite: get %s %s", table, id)
}

func (s *SQLiteStore) insertTarget(ctx context.Context, table string, t *model.Target) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.UpdatedAt = normalizeTime(t.UpdatedAt)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, workspace_id, name, address, lat, lng, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WorkspaceID, t.Name, t.Address, t.Lat, t.Lng, formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: "+table+".id") {
				err = errors.Join(ErrIDTaken, err)
			}
			return apperr.Wrap(apperr.KindConflict, msgTargetConflict, err)
		}
		return eris.Wrapf(err, "sqlite: insert %s", table)
	}
	return nil
}

func (s *SQLiteStore) updateTarget(ctx context.Context, table string, t *model.Target, notFound string) error {
	t.UpdatedAt = normalizeTime(t.UpdatedAt)

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET name = ?, address = ?, lat = ?, lng = ?, updated_at = ?
		 WHERE workspace_id = ? AND id = ?`,
		t.Name, t.Address, t.Lat, t.Lng, formatTime(t.UpdatedAt), t.WorkspaceID, t.ID,
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return apperr.Wrap(apperr.KindConflict, msgTargetConflict, err)
		}
		return eris.Wrapf(err, "sqlite: update %s %s", table, t.ID)
	}
	return checkRowsAffected(res, notFound)
}

func (s *SQLiteStore) listTargets(ctx context.Context, table, workspaceID string) ([]model.Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, name, address, lat, lng, updated_at FROM `+table+`
		 WHERE workspace_id = ? ORDER BY updated_at DESC, id ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", table)
	}
	defer rows.Close()

	targets := []model.Target{}
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", table)
		}
		targets = append(targets, *t)
	}
	return targets, eris.Wrapf(rows.Err(), "sqlite: list %s iterate", table)
}

// helpers

func checkRowsAffected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return apperr.NotFound(notFound)
	}
	return nil
}

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		// Rows written by other tools may carry any RFC 3339 form.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, eris.Wrapf(err, "sqlite: parse time %q", s)
		}
	}
	return t.UTC(), nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func ptrFromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func ptrFromNullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (*model.Listing, error) {
	var l model.Listing
	var source, period, capturedAt string
	var title, locationText sql.NullString
	var price, lat, lng sql.NullFloat64

	err := row.Scan(&l.ID, &l.WorkspaceID, &source, &l.SourceURL, &title, &price, &l.Currency,
		&period, &lat, &lng, &locationText, &capturedAt)
	if err != nil {
		return nil, err
	}
	l.Source = model.ListingSource(source)
	l.PricePeriod = model.PricePeriod(period)
	l.Title = ptrFromNullString(title)
	l.LocationText = ptrFromNullString(locationText)
	l.PriceValue = ptrFromNullFloat(price)
	l.Lat = ptrFromNullFloat(lat)
	l.Lng = ptrFromNullFloat(lng)
	if l.CapturedAt, err = parseTime(capturedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanTarget(row scannable) (*model.Target, error) {
	var t model.Target
	var address sql.NullString
	var updatedAt string

	err := row.Scan(&t.ID, &t.WorkspaceID, &t.Name, &address, &t.Lat, &t.Lng, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.Address = ptrFromNullString(address)
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
