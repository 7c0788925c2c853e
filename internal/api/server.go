// Package api exposes the listing, target, and comparison engines over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/easyrelocate/internal/config"
	"github.com/sells-group/easyrelocate/internal/model"
	"github.com/sells-group/easyrelocate/pkg/geocode"
)

// Authenticator resolves bearer tokens and issues workspaces.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*model.Workspace, error)
	Issue(ctx context.Context) (*model.IssuedWorkspace, error)
}

// Listings is the listing engine.
type Listings interface {
	Upsert(ctx context.Context, workspaceID string, in model.ListingInput) (*model.Listing, error)
	CreateFromText(ctx context.Context, workspaceID, text, pageURL string) (*model.Listing, error)
	List(ctx context.Context, workspaceID string) ([]model.Listing, error)
	Summary(ctx context.Context, workspaceID string) (*model.ListingSummary, error)
	Delete(ctx context.Context, workspaceID, id string) error
}

// Targets is the target engine.
type Targets interface {
	Upsert(ctx context.Context, workspaceID string, in model.TargetInput) (*model.Target, error)
	List(ctx context.Context, workspaceID string) ([]model.Target, error)
	SaveInteresting(ctx context.Context, workspaceID string, in model.TargetInput) (*model.InterestingTarget, error)
	ListInteresting(ctx context.Context, workspaceID string) ([]model.InterestingTarget, error)
	DeleteInteresting(ctx context.Context, workspaceID, id string) error
}

// Comparer is the comparison engine.
type Comparer interface {
	Compare(ctx context.Context, workspaceID, targetID string) (*model.CompareResult, error)
}

// Geocoder backs the geocode passthrough endpoints.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]geocode.Candidate, error)
	Reverse(ctx context.Context, lat, lng float64, zoom int) (*geocode.ReverseResult, error)
}

// Deps are the engines the handlers dispatch to.
type Deps struct {
	Auth     Authenticator
	Listings Listings
	Targets  Targets
	Compare  Comparer
	Geocoder Geocoder

	// PublicIssue enables POST /api/workspaces/issue.
	PublicIssue bool
}

// Server holds the handler dependencies.
type Server struct {
	Deps
	bodyLimit int64
}

const defaultBodyLimit = 1 << 20

// NewRouter builds the HTTP handler for the API.
func NewRouter(cfg config.ServerConfig, deps Deps) http.Handler {
	s := &Server{Deps: deps, bodyLimit: cfg.BodyLimitBytes}
	if s.bodyLimit <= 0 {
		s.bodyLimit = defaultBodyLimit
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeoutSecs > 0 {
		r.Use(middleware.Timeout(time.Duration(cfg.RequestTimeoutSecs) * time.Second))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           600,
	}))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Post("/workspaces/issue", s.issueWorkspace)
		r.Get("/geocode", s.geocode)
		r.Get("/reverse_geocode", s.reverseGeocode)

		r.Group(func(r chi.Router) {
			r.Use(s.requireWorkspace)

			r.Post("/listings", s.upsertListing)
			r.Post("/listings/from_text", s.listingFromText)
			r.Get("/listings", s.listListings)
			r.Get("/listings/summary", s.listingSummary)
			r.Delete("/listings/{id}", s.deleteListing)

			r.Post("/targets", s.upsertTarget)
			r.Get("/targets", s.listTargets)

			r.Get("/interesting_targets", s.listInteresting)
			r.Post("/interesting_targets", s.saveInteresting)
			r.Delete("/interesting_targets/{id}", s.deleteInteresting)

			r.Get("/compare", s.compare)
			r.Get("/compare/geojson", s.compareGeoJSON)
			r.Get("/compare/xlsx", s.compareXLSX)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
