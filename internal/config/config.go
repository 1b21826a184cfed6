package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Edgar    EdgarConfig
	OpenFIGI OpenFIGIConfig
	Loader   LoaderConfig
	Chat     ChatConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port   string
	Host   string
	Addr   string // Combined host:port for convenience
	APIKey string // guards POST /api/load, empty disables the check
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// EdgarConfig holds settings for the SEC EDGAR filing source.
// The SEC rejects requests without a descriptive User-Agent ("Name email").
type EdgarConfig struct {
	UserAgent         string
	BaseURL           string
	DataURL           string
	RequestsPerSecond int
	Timeout           time.Duration
}

// OpenFIGIConfig holds settings for the CUSIP to ticker mapping service.
type OpenFIGIConfig struct {
	APIKey            string
	URL               string
	RequestsPerMinute int
	MaxRetries        int
	Timeout           time.Duration
}

// LoaderConfig holds settings for the recursive fund loader.
type LoaderConfig struct {
	Seeds    []string
	MaxDepth int
	Schedule string // cron expression, empty disables scheduled refresh
	SeedFile string
}

// ChatConfig holds settings for the chat assistant.
type ChatConfig struct {
	APIKey string
	Model  string
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// seedFile is the layout of the optional TOML seed file.
type seedFile struct {
	Seeds    []string `toml:"seeds"`
	MaxDepth *int     `toml:"max_depth"`
}

// DefaultSeeds are the fund-of-funds loaded when no seed list is configured.
var DefaultSeeds = []string{
	"MDIZX", "TSVPX", "PFDOX", "UPAAX", "GLEAX",
	"LIONX", "MHESX", "RHSAX", "APITX", "SMIFX",
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:   getEnv("SERVER_PORT", "5001"),
			Host:   getEnv("SERVER_HOST", "localhost"),
			APIKey: os.Getenv("INTERNAL_API_KEY"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/fof_analysis.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Edgar: EdgarConfig{
			UserAgent:         os.Getenv("SEC_USER_AGENT"),
			BaseURL:           getEnv("SEC_BASE_URL", "https://www.sec.gov"),
			DataURL:           getEnv("SEC_DATA_URL", "https://data.sec.gov"),
			RequestsPerSecond: getEnvInt("SEC_REQUESTS_PER_SECOND", 10),
			Timeout:           getEnvDuration("SEC_TIMEOUT", 30*time.Second),
		},
		OpenFIGI: OpenFIGIConfig{
			APIKey:            firstNonEmpty(os.Getenv("OPENFIGI_API_KEY"), os.Getenv("FIGI_API_KEY")),
			URL:               getEnv("OPENFIGI_URL", "https://api.openfigi.com/v3/mapping"),
			RequestsPerMinute: getEnvInt("OPENFIGI_REQUESTS_PER_MINUTE", 25),
			MaxRetries:        getEnvInt("OPENFIGI_MAX_RETRIES", 2),
			Timeout:           getEnvDuration("OPENFIGI_TIMEOUT", 30*time.Second),
		},
		Loader: LoaderConfig{
			Seeds:    splitList(os.Getenv("LOADER_SEEDS")),
			MaxDepth: getEnvInt("LOADER_MAX_DEPTH", 1),
			Schedule: os.Getenv("LOADER_SCHEDULE"),
			SeedFile: os.Getenv("FOF_SEED_FILE"),
		},
		Chat: ChatConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if config.Loader.SeedFile != "" {
		if err := config.Loader.applySeedFile(config.Loader.SeedFile); err != nil {
			return nil, err
		}
	}
	if len(config.Loader.Seeds) == 0 {
		config.Loader.Seeds = append([]string(nil), DefaultSeeds...)
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// Validate checks the settings a loader run cannot do without.
// A missing SEC user agent is the only fatal configuration error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Edgar.UserAgent) == "" {
		return apperrors.ErrMissingUserAgent
	}
	if c.Loader.MaxDepth < 0 {
		return fmt.Errorf("%w: LOADER_MAX_DEPTH must be >= 0, got %d", apperrors.ErrInvalidConfig, c.Loader.MaxDepth)
	}
	return nil
}

// applySeedFile overrides seeds and depth with the contents of a TOML seed file.
func (l *LoaderConfig) applySeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var sf seedFile
	if err := toml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	if len(sf.Seeds) > 0 {
		l.Seeds = trimAll(sf.Seeds)
	}
	if sf.MaxDepth != nil {
		l.MaxDepth = *sf.MaxDepth
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return trimAll(strings.Split(value, ","))
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
