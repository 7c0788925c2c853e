package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/easyrelocate/internal/api"
	"github.com/sells-group/easyrelocate/internal/auth"
	"github.com/sells-group/easyrelocate/internal/compare"
	"github.com/sells-group/easyrelocate/internal/config"
	"github.com/sells-group/easyrelocate/internal/extract"
	"github.com/sells-group/easyrelocate/internal/listing"
	"github.com/sells-group/easyrelocate/internal/store"
	"github.com/sells-group/easyrelocate/internal/target"
	"github.com/sells-group/easyrelocate/pkg/geocode"
)

// appEnv holds the store and the engines built on top of it.
type appEnv struct {
	Store store.Store
	Deps  api.Deps
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		return store.NewSQLite(c.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

func geocodeConfig(g config.GeocodingConfig) geocode.Config {
	return geocode.Config{
		Enabled:          g.Enabled,
		Provider:         g.Provider,
		NominatimBaseURL: g.NominatimBaseURL,
		NominatimRPS:     g.NominatimRPS,
		GoogleAPIKey:     g.GoogleAPIKey,
		CountryCodes:     g.CountryCodes,
		UserAgent:        g.UserAgent,
		Timeout:          g.Timeout(),
	}
}

// initEnv opens and migrates the store and wires every engine from c.
// Callers should defer env.Close().
func initEnv(ctx context.Context, c *config.Config) (*appEnv, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	geo := geocode.New(geocodeConfig(c.Geocoding))
	extractor := extract.New(c.Extract)
	targets := target.NewService(st, geo)

	zap.L().Info("providers configured",
		zap.String("store", c.Store.Driver),
		zap.String("geocoder", geo.ProviderName()),
		zap.String("extractor", extractor.Provider()),
		zap.Bool("listing_geocode_fallback", c.Listing.GeocodeFallback),
		zap.Bool("public_issue", c.Workspace.PublicIssue),
	)

	return &appEnv{
		Store: st,
		Deps: api.Deps{
			Auth:        auth.NewService(st, c.Workspace.TokenTTL),
			Listings:    listing.NewService(st, geo, extractor, c.Listing.GeocodeFallback),
			Targets:     targets,
			Compare:     compare.NewService(targets, st),
			Geocoder:    geo,
			PublicIssue: c.Workspace.PublicIssue,
		},
	}, nil
}
