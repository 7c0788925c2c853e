package model

import "time"

// Workspace scopes listings and targets. Only the token hash is stored.
type Workspace struct {
	ID        string     `json:"id"`
	TokenHash string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Expired reports whether the workspace has an expiry at or before now.
func (w *Workspace) Expired(now time.Time) bool {
	return w.ExpiresAt != nil && !w.ExpiresAt.After(now)
}

// IssuedWorkspace is returned once when a workspace is created. Token is the
// only copy of the bearer secret.
type IssuedWorkspace struct {
	WorkspaceID string     `json:"workspace_id"`
	Token       string     `json:"workspace_token"`
	ExpiresAt   *time.Time `json:"expires_at"`
}
