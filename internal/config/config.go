package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all service configuration, read from the environment.
type Config struct {
	Port      string `mapstructure:"PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	UserAgent string `mapstructure:"USER_AGENT"`

	// Routing providers in failover order.
	RoutingProviders []string `mapstructure:"ROUTING_PROVIDERS"`
	OSRMBaseURL      string   `mapstructure:"OSRM_BASE_URL"`
	ORSBaseURL       string   `mapstructure:"ORS_BASE_URL"`
	ORSAPIKey        string   `mapstructure:"ORS_API_KEY"`

	Geocoder         string `mapstructure:"GEOCODER"`
	NominatimBaseURL string `mapstructure:"NOMINATIM_BASE_URL"`

	RouteMaxRetries      int           `mapstructure:"ROUTE_MAX_RETRIES"`
	RouteRequestTimeout  time.Duration `mapstructure:"ROUTE_REQUEST_TIMEOUT"`
	EstimateTimeout      time.Duration `mapstructure:"ESTIMATE_TIMEOUT"`
	GeocodeTimeout       time.Duration `mapstructure:"GEOCODE_TIMEOUT"`
	RouteFallbackEnabled bool          `mapstructure:"ROUTE_FALLBACK_ENABLED"`
	FallbackSpeedKmh     float64       `mapstructure:"FALLBACK_SPEED_KMH"`

	ConnectivityProbeURL string        `mapstructure:"CONNECTIVITY_PROBE_URL"`
	ProbeTimeout         time.Duration `mapstructure:"PROBE_TIMEOUT"`
	ProbeInterval        time.Duration `mapstructure:"PROBE_INTERVAL"`

	GeocodeCache   string        `mapstructure:"GEOCODE_CACHE"`
	SQLitePath     string        `mapstructure:"SQLITE_PATH"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	TravelCacheTTL time.Duration `mapstructure:"TRAVEL_CACHE_TTL"`

	SearchRadiusKm float64       `mapstructure:"SEARCH_RADIUS_KM"`
	CandidateLimit int           `mapstructure:"CANDIDATE_LIMIT"`
	EstimatePause  time.Duration `mapstructure:"ESTIMATE_PAUSE"`

	SessionIdleTimeout time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`

	// Deadline for one optimization request. Zero derives it from the
	// routing retry and timeout settings.
	OptimizeTimeout time.Duration `mapstructure:"OPTIMIZE_TIMEOUT"`
}

var defaults = map[string]any{
	"PORT":       "8080",
	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",
	"USER_AGENT": "trip-optimizer-service/1.0",

	"ROUTING_PROVIDERS": "osrm,ors",
	"OSRM_BASE_URL":     "https://router.project-osrm.org",
	"ORS_BASE_URL":      "https://api.openrouteservice.org",
	"ORS_API_KEY":       "",

	"GEOCODER":           "nominatim",
	"NOMINATIM_BASE_URL": "https://nominatim.openstreetmap.org",

	"ROUTE_MAX_RETRIES":      2,
	"ROUTE_REQUEST_TIMEOUT":  "20s",
	"ESTIMATE_TIMEOUT":       "5s",
	"GEOCODE_TIMEOUT":        "10s",
	"ROUTE_FALLBACK_ENABLED": true,
	"FALLBACK_SPEED_KMH":     50.0,

	"CONNECTIVITY_PROBE_URL": "https://www.gstatic.com/generate_204",
	"PROBE_TIMEOUT":          "5s",
	"PROBE_INTERVAL":         "30s",

	"GEOCODE_CACHE":    "none",
	"SQLITE_PATH":      "data/cache.db",
	"DATABASE_URL":     "",
	"REDIS_ADDR":       "",
	"REDIS_PASSWORD":   "",
	"TRAVEL_CACHE_TTL": "24h",

	"SEARCH_RADIUS_KM": 50.0,
	"CANDIDATE_LIMIT":  3,
	"ESTIMATE_PAUSE":   "100ms",

	"SESSION_IDLE_TIMEOUT": "2h",
	"OPTIMIZE_TIMEOUT":     "0s",
}

var (
	knownProviders = []string{"osrm", "ors"}
	knownGeocoders = []string{"nominatim", "ors"}
	knownCaches    = []string{"none", "sqlite", "postgres"}
)

// Load reads an optional .env file, then the environment over defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found (using environment variables)")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	providers := make([]string, 0, len(c.RoutingProviders))
	for _, p := range c.RoutingProviders {
		for _, part := range strings.Split(p, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				providers = append(providers, part)
			}
		}
	}
	c.RoutingProviders = providers
	c.Geocoder = strings.ToLower(strings.TrimSpace(c.Geocoder))
	c.GeocodeCache = strings.ToLower(strings.TrimSpace(c.GeocodeCache))
	c.ORSAPIKey = strings.TrimSpace(c.ORSAPIKey)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Port == "" {
		errs = append(errs, "PORT is required")
	}
	if len(c.RoutingProviders) == 0 {
		errs = append(errs, "ROUTING_PROVIDERS must name at least one provider")
	}
	for _, p := range c.RoutingProviders {
		if !slices.Contains(knownProviders, p) {
			errs = append(errs, fmt.Sprintf("ROUTING_PROVIDERS: unknown provider %q", p))
		}
	}
	if !slices.Contains(knownGeocoders, c.Geocoder) {
		errs = append(errs, fmt.Sprintf("GEOCODER must be one of %v, got %q", knownGeocoders, c.Geocoder))
	}
	if c.Geocoder == "ors" && c.ORSAPIKey == "" {
		errs = append(errs, "ORS_API_KEY is required when GEOCODER=ors")
	}
	if len(c.RoutingProviders) > 0 && len(c.ActiveRoutingProviders()) == 0 {
		errs = append(errs, "ROUTING_PROVIDERS: no usable provider (ors needs ORS_API_KEY)")
	}
	if c.RouteMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("ROUTE_MAX_RETRIES must be >= 0, got %d", c.RouteMaxRetries))
	}
	if c.RouteRequestTimeout <= 0 || c.EstimateTimeout <= 0 || c.GeocodeTimeout <= 0 || c.ProbeTimeout <= 0 {
		errs = append(errs, "request timeouts must be positive")
	}
	if c.ProbeInterval <= 0 {
		errs = append(errs, "PROBE_INTERVAL must be positive")
	}
	if c.FallbackSpeedKmh <= 0 {
		errs = append(errs, fmt.Sprintf("FALLBACK_SPEED_KMH must be positive, got %v", c.FallbackSpeedKmh))
	}
	if !slices.Contains(knownCaches, c.GeocodeCache) {
		errs = append(errs, fmt.Sprintf("GEOCODE_CACHE must be one of %v, got %q", knownCaches, c.GeocodeCache))
	}
	if c.GeocodeCache == "postgres" && c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required when GEOCODE_CACHE=postgres")
	}
	if c.GeocodeCache == "sqlite" && c.SQLitePath == "" {
		errs = append(errs, "SQLITE_PATH is required when GEOCODE_CACHE=sqlite")
	}
	if c.SearchRadiusKm <= 0 {
		errs = append(errs, "SEARCH_RADIUS_KM must be positive")
	}
	if c.CandidateLimit <= 0 {
		errs = append(errs, "CANDIDATE_LIMIT must be positive")
	}
	if c.OptimizeTimeout < 0 {
		errs = append(errs, "OPTIMIZE_TIMEOUT must not be negative")
	}
	if c.EstimatePause < 0 {
		errs = append(errs, "ESTIMATE_PAUSE must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ActiveRoutingProviders returns the configured providers in order,
// leaving out ors when no API key is set.
func (c *Config) ActiveRoutingProviders() []string {
	out := make([]string, 0, len(c.RoutingProviders))
	for _, p := range c.RoutingProviders {
		if p == "ors" && c.ORSAPIKey == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
