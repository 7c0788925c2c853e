package auth

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/store"
)

func newTestService(t *testing.T, ttl time.Duration) (*Service, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return NewService(s, ttl), s
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tok, TokenPrefix))
	assert.Len(t, tok, len(TokenPrefix)+43)
	assert.NotContains(t, tok, "=")

	other, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestHashToken(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashToken("abc"))
	assert.Len(t, HashToken("er_ws_x"), 64)
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer abc", want: "abc"},
		{header: "BEARER   abc  ", want: "abc"},
		{header: "", wantErr: true},
		{header: "Bearer", wantErr: true},
		{header: "Bearer    ", wantErr: true},
		{header: "Basic abc", wantErr: true},
		{header: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBearer(tt.header)
		if tt.wantErr {
			require.Error(t, err, tt.header)
			assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestService_IssueAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t, 24*time.Hour)
	ctx := context.Background()

	issued, err := svc.Issue(ctx)
	require.NoError(t, err)
	require.NotNil(t, issued.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *issued.ExpiresAt, time.Minute)

	ws, err := svc.Authenticate(ctx, "Bearer "+issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.WorkspaceID, ws.ID)
	assert.Equal(t, HashToken(issued.Token), ws.TokenHash)
}

func TestService_Authenticate_UnknownToken(t *testing.T) {
	svc, _ := newTestService(t, 0)

	_, err := svc.Authenticate(context.Background(), "Bearer er_ws_nope")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestService_Authenticate_Expired(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	issued, err := svc.Issue(ctx)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, "Bearer "+issued.Token)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	assert.Equal(t, "Workspace token expired", apperr.Message(err))
}

func TestService_IssueWithTTL_NoExpiry(t *testing.T) {
	svc, s := newTestService(t, time.Hour)
	ctx := context.Background()

	issued, err := svc.IssueWithTTL(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, issued.ExpiresAt)

	ws, err := s.GetWorkspaceByTokenHash(ctx, HashToken(issued.Token))
	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Nil(t, ws.ExpiresAt)
}

func TestService_Authenticate_MissingHeader(t *testing.T) {
	svc, _ := newTestService(t, 0)

	_, err := svc.Authenticate(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "Missing Authorization header", apperr.Message(err))
}
