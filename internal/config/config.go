package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Geocoding GeocodingConfig `yaml:"geocoding" mapstructure:"geocoding"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Listing   ListingConfig   `yaml:"listing" mapstructure:"listing"`
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	BodyLimitBytes     int64    `yaml:"body_limit_bytes" mapstructure:"body_limit_bytes"`
}

// GeocodingConfig selects and configures the geocoding provider.
type GeocodingConfig struct {
	Enabled          bool    `yaml:"enabled" mapstructure:"enabled"`
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	NominatimBaseURL string  `yaml:"nominatim_base_url" mapstructure:"nominatim_base_url"`
	NominatimRPS     float64 `yaml:"nominatim_rps" mapstructure:"nominatim_rps"`
	GoogleAPIKey     string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	CountryCodes     string  `yaml:"country_codes" mapstructure:"country_codes"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      float64 `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-request provider timeout.
func (g GeocodingConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs * float64(time.Second))
}

// ExtractConfig configures the text-extraction provider.
type ExtractConfig struct {
	Provider      string           `yaml:"provider" mapstructure:"provider"`
	OpenRouter    OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic     AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	TimeoutSecs   float64          `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts   int              `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxInputChars int              `yaml:"max_input_chars" mapstructure:"max_input_chars"`
}

// Timeout returns the per-request provider timeout.
func (e ExtractConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs * float64(time.Second))
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
	AppURL  string `yaml:"app_url" mapstructure:"app_url"`
	AppName string `yaml:"app_name" mapstructure:"app_name"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ListingConfig toggles listing enrichment.
type ListingConfig struct {
	GeocodeFallback bool `yaml:"geocode_fallback" mapstructure:"geocode_fallback"`
}

// WorkspaceConfig configures workspace issuance.
type WorkspaceConfig struct {
	PublicIssue bool          `yaml:"public_issue" mapstructure:"public_issue"`
	TokenTTL    time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the bare variable names older deployments set.
var legacyEnv = map[string]string{
	"store.database_url":           "DATABASE_URL",
	"geocoding.enabled":            "ENABLE_GEOCODING",
	"geocoding.provider":           "GEOCODING_PROVIDER",
	"geocoding.google_api_key":     "GOOGLE_MAPS_API_KEY",
	"geocoding.nominatim_base_url": "NOMINATIM_BASE_URL",
	"geocoding.country_codes":      "GEOCODING_COUNTRY_CODES",
	"geocoding.user_agent":         "GEOCODING_USER_AGENT",
	"geocoding.timeout_secs":       "GEOCODING_TIMEOUT_S",
	"listing.geocode_fallback":     "ENABLE_LISTING_GEOCODE_FALLBACK",
	"workspace.public_issue":       "ENABLE_PUBLIC_WORKSPACE_ISSUE",
	"extract.openrouter.key":       "OPENROUTER_API_KEY",
	"extract.openrouter.model":     "OPENROUTER_MODEL",
	"extract.openrouter.base_url":  "OPENROUTER_BASE_URL",
	"extract.openrouter.app_url":   "OPENROUTER_APP_URL",
	"extract.openrouter.app_name":  "OPENROUTER_APP_NAME",
	"extract.timeout_secs":         "OPENROUTER_TIMEOUT_S",
	"extract.anthropic.key":        "ANTHROPIC_API_KEY",
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RELOCATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "RELOCATE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "easyrelocate.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	})
	v.SetDefault("server.request_timeout_secs", 60)
	v.SetDefault("server.body_limit_bytes", 1<<20)
	v.SetDefault("geocoding.enabled", true)
	v.SetDefault("geocoding.provider", "")
	v.SetDefault("geocoding.nominatim_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoding.nominatim_rps", 1.0)
	v.SetDefault("geocoding.google_api_key", "")
	v.SetDefault("geocoding.country_codes", "us")
	v.SetDefault("geocoding.user_agent", "EasyRelocate/0.1 (local dev)")
	v.SetDefault("geocoding.timeout_secs", 6.0)
	v.SetDefault("extract.provider", "openrouter")
	v.SetDefault("extract.openrouter.key", "")
	v.SetDefault("extract.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("extract.openrouter.model", "z-ai/glm-4.5-air:free")
	v.SetDefault("extract.openrouter.app_url", "")
	v.SetDefault("extract.openrouter.app_name", "EasyRelocate")
	v.SetDefault("extract.anthropic.key", "")
	v.SetDefault("extract.anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("extract.timeout_secs", 25.0)
	v.SetDefault("extract.max_attempts", 2)
	v.SetDefault("extract.max_input_chars", 7000)
	v.SetDefault("listing.geocode_fallback", false)
	v.SetDefault("workspace.public_issue", false)
	v.SetDefault("workspace.token_ttl", "720h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Geocoding.NominatimBaseURL = strings.TrimRight(cfg.Geocoding.NominatimBaseURL, "/")
	cfg.Extract.OpenRouter.BaseURL = strings.TrimRight(cfg.Extract.OpenRouter.BaseURL, "/")
	cfg.Geocoding.Provider = strings.ToLower(strings.TrimSpace(cfg.Geocoding.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	switch c.Geocoding.Provider {
	case "", "nominatim", "google":
	default:
		errs = append(errs, fmt.Sprintf("geocoding.provider %q is not supported", c.Geocoding.Provider))
	}
	switch c.Extract.Provider {
	case "openrouter", "anthropic":
	default:
		errs = append(errs, fmt.Sprintf("extract.provider %q is not supported", c.Extract.Provider))
	}
	if c.Extract.MaxAttempts < 1 {
		errs = append(errs, "extract.max_attempts must be >= 1")
	}
	if c.Extract.MaxInputChars < 1 {
		errs = append(errs, "extract.max_input_chars must be >= 1")
	}
	if c.Workspace.TokenTTL < 0 {
		errs = append(errs, "workspace.token_ttl must be >= 0")
	}
	if c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

const redacted = "[redacted]"

// Redacted returns a copy with credentials masked, suitable for printing.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}
	c.Store.DatabaseURL = redactURL(c.Store.DatabaseURL)
	c.Geocoding.GoogleAPIKey = mask(c.Geocoding.GoogleAPIKey)
	c.Extract.OpenRouter.Key = mask(c.Extract.OpenRouter.Key)
	c.Extract.Anthropic.Key = mask(c.Extract.Anthropic.Key)
	c.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return c
}

// redactURL masks the userinfo password in a connection string.
func redactURL(dsn string) string {
	scheme := strings.Index(dsn, "://")
	at := strings.LastIndex(dsn, "@")
	if scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return dsn
	}
	return dsn[:scheme+3] + user + ":" + redacted + dsn[at:]
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
