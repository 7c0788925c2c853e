package auth

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
)

// WorkspaceStore is the persistence the service needs.
type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, tokenHash string, expiresAt *time.Time) (*model.Workspace, error)
	GetWorkspaceByTokenHash(ctx context.Context, tokenHash string) (*model.Workspace, error)
}

// Service authenticates bearer tokens and issues new workspaces.
type Service struct {
	store WorkspaceStore
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates a Service. A ttl of zero issues tokens that never expire.
func NewService(store WorkspaceStore, ttl time.Duration) *Service {
	return &Service{
		store: store,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate resolves an Authorization header value to its workspace.
// Missing, malformed, unknown, and expired tokens all fail as unauthenticated.
func (s *Service) Authenticate(ctx context.Context, authorization string) (*model.Workspace, error) {
	token, err := ParseBearer(authorization)
	if err != nil {
		return nil, err
	}

	ws, err := s.store.GetWorkspaceByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, eris.Wrap(err, "auth: lookup workspace")
	}
	if ws == nil {
		return nil, apperr.Unauthenticated("Invalid workspace token")
	}
	if ws.Expired(s.now()) {
		zap.L().Debug("auth: expired workspace token", zap.String("workspace_id", ws.ID))
		return nil, apperr.Unauthenticated("Workspace token expired")
	}
	return ws, nil
}

// Issue creates a workspace and returns its token. The token is not
// recoverable afterwards.
func (s *Service) Issue(ctx context.Context) (*model.IssuedWorkspace, error) {
	return s.IssueWithTTL(ctx, s.ttl)
}

// IssueWithTTL is Issue with an explicit lifetime; zero means no expiry.
func (s *Service) IssueWithTTL(ctx context.Context, ttl time.Duration) (*model.IssuedWorkspace, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if ttl > 0 {
		exp := s.now().Add(ttl)
		expiresAt = &exp
	}

	ws, err := s.store.CreateWorkspace(ctx, HashToken(token), expiresAt)
	if err != nil {
		return nil, eris.Wrap(err, "auth: create workspace")
	}

	zap.L().Info("workspace issued", zap.String("workspace_id", ws.ID))
	return &model.IssuedWorkspace{
		WorkspaceID: ws.ID,
		Token:       token,
		ExpiresAt:   ws.ExpiresAt,
	}, nil
}
