package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var listingCols = []string{
	"id", "workspace_id", "source", "source_url", "title", "price_value", "currency",
	"price_period", "lat", "lng", "location_text", "captured_at",
}

var targetCols = []string{"id", "workspace_id", "name", "address", "lat", "lng", "updated_at"}

func TestPreparedStatements(t *testing.T) {
	for _, name := range []string{stmtWorkspaceByHash, stmtListingBySource, stmtListListings, stmtLatestTarget} {
		assert.Contains(t, preparedStatements[name], "SELECT", name)
	}
	assert.Contains(t, preparedStatements[stmtListListings], "ORDER BY captured_at DESC, id ASC")
	assert.Contains(t, preparedStatements[stmtLatestTarget], "ORDER BY updated_at DESC, id ASC LIMIT 1")
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS workspaces`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetWorkspaceByTokenHash_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`^get_workspace_by_hash$`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	w, err := s.GetWorkspaceByTokenHash(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetWorkspaceByTokenHash_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := created.Add(24 * time.Hour)

	mock.ExpectQuery(`^get_workspace_by_hash$`).
		WithArgs("abc").
		WillReturnRows(mock.NewRows([]string{"id", "token_hash", "created_at", "expires_at"}).
			AddRow("ws-1", "abc", created, &expires))

	w, err := s.GetWorkspaceByTokenHash(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "ws-1", w.ID)
	require.NotNil(t, w.ExpiresAt)
	assert.True(t, expires.Equal(*w.ExpiresAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetWorkspaceByTokenHash_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`^get_workspace_by_hash$`).
		WithArgs("abc").
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.GetWorkspaceByTokenHash(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get workspace by token hash")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateWorkspace(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO workspaces`).
		WithArgs(pgxmock.AnyArg(), "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	w, err := s.CreateWorkspace(context.Background(), "hash", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Nil(t, w.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetListingBySourceURL(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	captured := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	title := "Loft"
	lat, lng := 37.4, -122.08

	mock.ExpectQuery(`^get_listing_by_source_url$`).
		WithArgs("ws-1", "https://example.com/rooms/1").
		WillReturnRows(mock.NewRows(listingCols).
			AddRow("l-1", "ws-1", "airbnb", "https://example.com/rooms/1", &title, nil, "USD",
				"night", &lat, &lng, nil, captured))

	l, err := s.GetListingBySourceURL(context.Background(), "ws-1", "https://example.com/rooms/1")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, model.SourceAirbnb, l.Source)
	assert.Equal(t, model.PeriodNight, l.PricePeriod)
	assert.Equal(t, "Loft", *l.Title)
	assert.Nil(t, l.PriceValue)
	assert.Nil(t, l.LocationText)
	assert.InDelta(t, 37.4, *l.Lat, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetListingBySourceURL_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`^get_listing_by_source_url$`).
		WithArgs("ws-1", "https://example.com/none").
		WillReturnError(pgx.ErrNoRows)

	l, err := s.GetListingBySourceURL(context.Background(), "ws-1", "https://example.com/none")
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateListing_UniqueViolation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO listings`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "listings_workspace_source_key"})

	l := &model.Listing{WorkspaceID: "ws-1", Source: model.SourceAirbnb, SourceURL: "https://example.com/1"}
	err := s.CreateListing(context.Background(), l)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NotEmpty(t, l.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateListing_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE listings SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), "ws-1", "l-9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateListing(context.Background(), &model.Listing{ID: "l-9", WorkspaceID: "ws-1"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListListings(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	t1 := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`^list_listings$`).
		WithArgs("ws-1").
		WillReturnRows(mock.NewRows(listingCols).
			AddRow("l-2", "ws-1", "post", "https://a", nil, nil, "USD", "unknown", nil, nil, nil, t1).
			AddRow("l-1", "ws-1", "airbnb", "https://b", nil, nil, "USD", "unknown", nil, nil, nil, t2))

	listings, err := s.ListListings(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "l-2", listings[0].ID)
	assert.Equal(t, "l-1", listings[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListListings_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`^list_listings$`).
		WithArgs("ws-1").
		WillReturnRows(mock.NewRows(listingCols))

	listings, err := s.ListListings(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SummarizeListings(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	latest := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM listings`).
		WithArgs("ws-1").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT id, captured_at FROM listings`).
		WithArgs("ws-1").
		WillReturnRows(mock.NewRows([]string{"id", "captured_at"}).AddRow("l-3", latest))

	sum, err := s.SummarizeListings(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, "l-3", *sum.LatestID)
	assert.True(t, latest.Equal(*sum.LatestCapturedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SummarizeListings_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM listings`).
		WithArgs("ws-1").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(0))

	sum, err := s.SummarizeListings(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Count)
	assert.Nil(t, sum.LatestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteListing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM listings WHERE workspace_id = \$1 AND id = \$2`).
		WithArgs("ws-1", "l-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM listings WHERE workspace_id = \$1 AND id = \$2`).
		WithArgs("ws-2", "l-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteListing(context.Background(), "ws-1", "l-1"))

	err := s.DeleteListing(context.Background(), "ws-2", "l-1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestTarget(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	updated := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	addr := "Mountain View, CA"

	mock.ExpectQuery(`^latest_target$`).
		WithArgs("ws-1").
		WillReturnRows(mock.NewRows(targetCols).AddRow("t-1", "ws-1", "Office", &addr, 37.4, -122.08, updated))

	tgt, err := s.LatestTarget(context.Background(), "ws-1")
	require.NoError(t, err)
	require.NotNil(t, tgt)
	assert.Equal(t, "Office", tgt.Name)
	assert.Equal(t, "Mountain View, CA", *tgt.Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestTarget_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`^latest_target$`).
		WithArgs("ws-1").
		WillReturnError(pgx.ErrNoRows)

	tgt, err := s.LatestTarget(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Nil(t, tgt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateTarget_NameConflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE targets SET`).
		WithArgs("Gym", pgxmock.AnyArg(), 1.0, 2.0, pgxmock.AnyArg(), "ws-1", "t-1").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "targets_workspace_name_key"})

	err := s.UpdateTarget(context.Background(), &model.Target{ID: "t-1", WorkspaceID: "ws-1", Name: "Gym", Lat: 1, Lng: 2})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTarget_IDTaken(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO targets`).
		WithArgs("t-1", "ws-2", "Office", pgxmock.AnyArg(), 1.0, 2.0, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "targets_pkey"})

	err := s.CreateTarget(context.Background(), &model.Target{ID: "t-1", WorkspaceID: "ws-2", Name: "Office", Lat: 1, Lng: 2})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.True(t, IsIDTaken(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTarget_NameConflictIsNotIDTaken(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO targets`).
		WithArgs(pgxmock.AnyArg(), "ws-1", "Office", pgxmock.AnyArg(), 1.0, 2.0, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "targets_workspace_name_key"})

	err := s.CreateTarget(context.Background(), &model.Target{WorkspaceID: "ws-1", Name: "Office", Lat: 1, Lng: 2})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.False(t, IsIDTaken(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateInterestingTarget_IDTaken(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO interesting_targets`).
		WithArgs("it-1", "ws-2", "Gym", pgxmock.AnyArg(), 1.0, 2.0, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "interesting_targets_pkey"})

	err := s.CreateInterestingTarget(context.Background(), &model.InterestingTarget{ID: "it-1", WorkspaceID: "ws-2", Name: "Gym", Lat: 1, Lng: 2})
	assert.True(t, IsIDTaken(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListInterestingTargets(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	updated := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM interesting_targets WHERE workspace_id = \$1`).
		WithArgs("ws-1").
		WillReturnRows(mock.NewRows(targetCols).AddRow("i-1", "ws-1", "Park", nil, 1.0, 2.0, updated))

	out, err := s.ListInterestingTargets(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Park", out[0].Name)
	assert.Nil(t, out[0].Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteInterestingTarget_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM interesting_targets`).
		WithArgs("ws-1", "i-404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteInterestingTarget(context.Background(), "ws-1", "i-404")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	called := false
	s := &PostgresStore{closeFn: func() { called = true }}
	require.NoError(t, s.Close())
	assert.True(t, called)
}
