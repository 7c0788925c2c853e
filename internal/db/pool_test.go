package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SatisfiedByMock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var p Pool = mock
	mock.ExpectPing()
	assert.NoError(t, p.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "listings_workspace_source_key"}

	assert.True(t, IsUniqueViolation(pgErr))
	assert.True(t, IsUniqueViolation(eris.Wrap(pgErr, "postgres: insert listing")))
	assert.True(t, IsUniqueViolation(fmt.Errorf("outer: %w", pgErr)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(fmt.Errorf("UNIQUE constraint failed")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestConstraintName(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "targets_workspace_name_key"}
	assert.Equal(t, "targets_workspace_name_key", ConstraintName(eris.Wrap(pgErr, "wrap")))
	assert.Equal(t, "", ConstraintName(fmt.Errorf("other")))
}
