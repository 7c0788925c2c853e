package api

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/easyrelocate/internal/compare"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	res, err := s.Compare.Compare(r.Context(), workspaceID(r), r.URL.Query().Get("target_id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) compareGeoJSON(w http.ResponseWriter, r *http.Request) {
	res, err := s.Compare.Compare(r.Context(), workspaceID(r), r.URL.Query().Get("target_id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	data, err := compare.MarshalGeoJSON(res)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Warn("api: write geojson", zap.Error(err))
	}
}

func (s *Server) compareXLSX(w http.ResponseWriter, r *http.Request) {
	res, err := s.Compare.Compare(r.Context(), workspaceID(r), r.URL.Query().Get("target_id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	// Buffer so a failed encode can still be reported as an error response.
	var buf bytes.Buffer
	if err := compare.WriteXLSX(&buf, res); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="compare.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		zap.L().Warn("api: write xlsx", zap.Error(err))
	}
}
