package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Geocoding providers.
const (
	ProviderNominatim = "nominatim"
	ProviderGoogle    = "google"
	ProviderNone      = "none"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Default endpoint and target values.
const (
	DefaultTokenURL         = "https://gw.api.it.umich.edu/um/oauth2/token"
	DefaultBaseURL          = "https://gw.api.it.umich.edu/um/bf/Buildings/v2"
	DefaultScope            = "buildings"
	DefaultTargetBuildingID = "1000066"
	DefaultReportPath       = "buildings.txt"
	DefaultRoomsPath        = "rooms.json"
	DefaultExcludedCampus   = "Dearborn"
	DefaultRequiredCity     = "Ann Arbor"
	DefaultNominatimURL     = "https://nominatim.openstreetmap.org"
	DefaultGoogleURL        = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultUserAgent        = "flushfinder/dev"
	DefaultServeAddr        = ":8787"
)

// Config is the complete runtime configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Filter  FilterConfig  `yaml:"filter"`
	Report  ReportConfig  `yaml:"report"`
	Geocode GeocodeConfig `yaml:"geocode"`
	Serve   ServeConfig   `yaml:"serve"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the facilities API credentials and endpoints.
type APIConfig struct {
	// ClientID and ClientSecret are exchanged for a bearer token
	// using the client-credentials grant.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	TokenURL string `yaml:"token_url"`
	BaseURL  string `yaml:"base_url"`
	Scope    string `yaml:"scope"`

	// Timeout bounds every request to the facilities API.
	Timeout time.Duration `yaml:"timeout"`
}

// FilterConfig controls restroom classification.
type FilterConfig struct {
	// IncludeToilet adds "toilet" to the inclusion keywords.
	IncludeToilet bool `yaml:"include_toilet"`

	// ApplyExclusions enables the exclusion stage. Off by default.
	ApplyExclusions bool `yaml:"apply_exclusions"`

	// Include and Exclude replace the built-in keyword sets when non-empty.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// ReportConfig controls what is fetched and where results are written.
type ReportConfig struct {
	TargetBuildingID string `yaml:"target_building_id"`

	// OutputPath is the text report written by the report command.
	OutputPath string `yaml:"output_path"`

	// RoomsOutputPath is the JSON file written by the rooms command.
	RoomsOutputPath string `yaml:"rooms_output_path"`

	// SQLitePath enables the seed database export when non-empty.
	SQLitePath string `yaml:"sqlite_path"`

	ExcludedCampus string `yaml:"excluded_campus"`
	RequiredCity   string `yaml:"required_city"`

	// Workers is the size of the per-building worker pool. 1 means sequential.
	Workers int `yaml:"workers"`
}

// GeocodeConfig selects and configures the geocoding provider.
type GeocodeConfig struct {
	Provider     string `yaml:"provider"`
	NominatimURL string `yaml:"nominatim_url"`
	GoogleURL    string `yaml:"google_url"`
	GoogleAPIKey string `yaml:"google_api_key"`
	UserAgent    string `yaml:"user_agent"`

	// RequestsPerSecond throttles outbound geocoding calls.
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ServeConfig configures the review API served over the seed database.
// The database path is Report.SQLitePath.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the process-wide slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in defaults. Credentials are left empty.
func Default() *Config {
	return &Config{
		API: APIConfig{
			TokenURL: DefaultTokenURL,
			BaseURL:  DefaultBaseURL,
			Scope:    DefaultScope,
			Timeout:  30 * time.Second,
		},
		Report: ReportConfig{
			TargetBuildingID: DefaultTargetBuildingID,
			OutputPath:       DefaultReportPath,
			RoomsOutputPath:  DefaultRoomsPath,
			ExcludedCampus:   DefaultExcludedCampus,
			RequiredCity:     DefaultRequiredCity,
			Workers:          1,
		},
		Geocode: GeocodeConfig{
			Provider:          ProviderNominatim,
			NominatimURL:      DefaultNominatimURL,
			GoogleURL:         DefaultGoogleURL,
			UserAgent:         DefaultUserAgent,
			RequestsPerSecond: 1,
			Timeout:           10 * time.Second,
		},
		Serve: ServeConfig{
			Addr: DefaultServeAddr,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatText,
		},
	}
}

// Load builds a Config from defaults, the optional YAML file at path,
// a .env file and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.API.ClientID, "FLUSHFINDER_CLIENT_ID")
	setString(&c.API.ClientSecret, "FLUSHFINDER_CLIENT_SECRET")
	setString(&c.API.TokenURL, "FLUSHFINDER_TOKEN_URL")
	setString(&c.API.BaseURL, "FLUSHFINDER_BASE_URL")
	setString(&c.API.Scope, "FLUSHFINDER_SCOPE")
	errs = append(errs, setDuration(&c.API.Timeout, "FLUSHFINDER_API_TIMEOUT"))

	errs = append(errs,
		setBool(&c.Filter.IncludeToilet, "FLUSHFINDER_INCLUDE_TOILET"),
		setBool(&c.Filter.ApplyExclusions, "FLUSHFINDER_APPLY_EXCLUSIONS"),
	)
	setList(&c.Filter.Include, "FLUSHFINDER_INCLUDE_KEYWORDS")
	setList(&c.Filter.Exclude, "FLUSHFINDER_EXCLUDE_KEYWORDS")

	setString(&c.Report.TargetBuildingID, "FLUSHFINDER_BUILDING_ID")
	setString(&c.Report.OutputPath, "FLUSHFINDER_OUTPUT")
	setString(&c.Report.RoomsOutputPath, "FLUSHFINDER_ROOMS_OUTPUT")
	setString(&c.Report.SQLitePath, "FLUSHFINDER_SQLITE")
	setString(&c.Report.ExcludedCampus, "FLUSHFINDER_EXCLUDED_CAMPUS")
	setString(&c.Report.RequiredCity, "FLUSHFINDER_REQUIRED_CITY")
	errs = append(errs, setInt(&c.Report.Workers, "FLUSHFINDER_WORKERS"))

	setString(&c.Geocode.Provider, "FLUSHFINDER_GEOCODER")
	setString(&c.Geocode.NominatimURL, "FLUSHFINDER_NOMINATIM_URL")
	setString(&c.Geocode.GoogleURL, "FLUSHFINDER_GOOGLE_GEOCODE_URL")
	setString(&c.Geocode.GoogleAPIKey, "GOOGLE_MAPS_API_KEY")
	setString(&c.Geocode.UserAgent, "FLUSHFINDER_USER_AGENT")
	errs = append(errs,
		setFloat(&c.Geocode.RequestsPerSecond, "FLUSHFINDER_GEOCODE_RPS"),
		setDuration(&c.Geocode.Timeout, "FLUSHFINDER_GEOCODE_TIMEOUT"),
	)

	setString(&c.Serve.Addr, "FLUSHFINDER_SERVE_ADDR")

	setString(&c.Logging.Level, "FLUSHFINDER_LOG_LEVEL")
	setString(&c.Logging.Format, "FLUSHFINDER_LOG_FORMAT")

	return errors.Join(errs...)
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.API.ClientID == "" || c.API.ClientSecret == "" {
		return fmt.Errorf("client credentials are required; set FLUSHFINDER_CLIENT_ID and FLUSHFINDER_CLIENT_SECRET")
	}
	if c.API.TokenURL == "" {
		return fmt.Errorf("token URL cannot be empty")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("facilities API base URL cannot be empty")
	}
	if c.Report.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Report.Workers)
	}

	switch c.Geocode.Provider {
	case ProviderNominatim:
		if c.Geocode.RequestsPerSecond <= 0 {
			return fmt.Errorf("geocode requests per second must be positive, got %f", c.Geocode.RequestsPerSecond)
		}
	case ProviderGoogle:
		if c.Geocode.GoogleAPIKey == "" {
			return fmt.Errorf("google geocoder requires GOOGLE_MAPS_API_KEY")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("invalid geocoder %q, must be one of: nominatim, google, none", c.Geocode.Provider)
	}

	return c.validateLogging()
}

// ValidateServe checks that the configuration can drive the review API.
// Credentials are not needed.
func (c *Config) ValidateServe() error {
	if c.Report.SQLitePath == "" {
		return fmt.Errorf("a SQLite database is required; set --sqlite or FLUSHFINDER_SQLITE")
	}
	if c.Serve.Addr == "" {
		return fmt.Errorf("serve address cannot be empty")
	}
	return c.validateLogging()
}

func (c *Config) validateLogging() error {
	if c.Logging.Format != FormatText && c.Logging.Format != FormatJSON {
		return fmt.Errorf("invalid log format %q, must be one of: text, json", c.Logging.Format)
	}
	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

// setList splits a comma-separated value.
func setList(dst *[]string, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setBool(dst *bool, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setFloat(dst *float64, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
