package api

import (
	"net/http"

	"github.com/sells-group/easyrelocate/internal/apperr"
)

func (s *Server) issueWorkspace(w http.ResponseWriter, r *http.Request) {
	if !s.PublicIssue {
		writeAppError(w, r, apperr.Forbidden("Workspace issuance is disabled"))
		return
	}
	issued, err := s.Auth.Issue(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issued)
}
