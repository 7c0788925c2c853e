package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/easyrelocate/internal/model"
)

type targetRequest struct {
	ID      *string  `json:"id"`
	Name    *string  `json:"name"`
	Address *string  `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

func (req targetRequest) input() model.TargetInput {
	return model.TargetInput{
		ID:      req.ID,
		Name:    req.Name,
		Address: req.Address,
		Lat:     req.Lat,
		Lng:     req.Lng,
	}
}

func (s *Server) upsertTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	t, err := s.Targets.Upsert(r.Context(), workspaceID(r), req.input())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) listTargets(w http.ResponseWriter, r *http.Request) {
	out, err := s.Targets.List(r.Context(), workspaceID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if out == nil {
		out = []model.Target{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) saveInteresting(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	it, err := s.Targets.SaveInteresting(r.Context(), workspaceID(r), req.input())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) listInteresting(w http.ResponseWriter, r *http.Request) {
	out, err := s.Targets.ListInteresting(r.Context(), workspaceID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if out == nil {
		out = []model.InterestingTarget{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteInteresting(w http.ResponseWriter, r *http.Request) {
	if err := s.Targets.DeleteInteresting(r.Context(), workspaceID(r), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
