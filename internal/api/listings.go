package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/easyrelocate/internal/model"
)

type listingRequest struct {
	Source       model.ListingSource `json:"source"`
	SourceURL    string              `json:"source_url"`
	Title        *string             `json:"title"`
	PriceValue   *float64            `json:"price_value"`
	Currency     *string             `json:"currency"`
	PricePeriod  *model.PricePeriod  `json:"price_period"`
	Lat          *float64            `json:"lat"`
	Lng          *float64            `json:"lng"`
	LocationText *string             `json:"location_text"`
	CapturedAt   *time.Time          `json:"captured_at"`
}

func (req listingRequest) input() model.ListingInput {
	return model.ListingInput{
		Source:       req.Source,
		SourceURL:    req.SourceURL,
		Title:        req.Title,
		PriceValue:   req.PriceValue,
		Currency:     req.Currency,
		PricePeriod:  req.PricePeriod,
		Lat:          req.Lat,
		Lng:          req.Lng,
		LocationText: req.LocationText,
		CapturedAt:   req.CapturedAt,
	}
}

type fromTextRequest struct {
	Text    string `json:"text"`
	PageURL string `json:"page_url"`
}

func (s *Server) upsertListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	l, err := s.Listings.Upsert(r.Context(), workspaceID(r), req.input())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) listingFromText(w http.ResponseWriter, r *http.Request) {
	var req fromTextRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	l, err := s.Listings.CreateFromText(r.Context(), workspaceID(r), req.Text, req.PageURL)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) listListings(w http.ResponseWriter, r *http.Request) {
	out, err := s.Listings.List(r.Context(), workspaceID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if out == nil {
		out = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listingSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Listings.Summary(r.Context(), workspaceID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) deleteListing(w http.ResponseWriter, r *http.Request) {
	if err := s.Listings.Delete(r.Context(), workspaceID(r), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
