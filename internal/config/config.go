package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Search engine drivers.
const (
	DriverRedis = "redis"
	DriverBleve = "bleve"
)

// Config holds the digitalcc configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Search  SearchConfig  `yaml:"search"`
	Fedora  FedoraConfig  `yaml:"fedora"`
	Harvest HarvestConfig `yaml:"harvest"`
	Cache   CacheConfig   `yaml:"cache"`
	Site    SiteConfig    `yaml:"site"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds admin API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds search engine connection and query settings.
type SearchConfig struct {
	Driver           string   `yaml:"driver"` // redis, bleve (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Index            string   `yaml:"index"`
	KeyPrefix        string   `yaml:"key_prefix"`
	BlevePath        string   `yaml:"bleve_path"` // empty = in-memory
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	FacetSize        int      `yaml:"facet_size"`
	BrowsePageSize   int      `yaml:"browse_page_size"`
	SearchPageSize   int      `yaml:"search_page_size"`
	MaxPageSize      int      `yaml:"max_page_size"`
}

// FedoraConfig holds repository connection settings.
type FedoraConfig struct {
	RestURL           string  `yaml:"rest_url"`
	RIURL             string  `yaml:"ri_url"`
	Username          string  `yaml:"username"`
	Password          string  `yaml:"password"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
	MaxRetries        int     `yaml:"max_retries"`
}

// HarvestConfig holds crawl settings.
type HarvestConfig struct {
	RootPID   string            `yaml:"root_pid"`
	Roles     map[string]string `yaml:"roles"` // MODS role prefix -> creator | contributor
	PollLimit int               `yaml:"poll_limit"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = until invalidated
}

// SiteConfig points at the library website whose chrome is embedded in pages.
type SiteConfig struct {
	URL            string `yaml:"url"`
	HeaderSelector string `yaml:"header_selector"`
	FooterSelector string `yaml:"footer_selector"`
	TabsSelector   string `yaml:"tabs_selector"`
	TTLSec         int    `yaml:"ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes raw YAML, expanding ${VAR} references, applying defaults and validating.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// datastream proxying streams large media
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Search.Driver == "" {
		c.Search.Driver = DriverRedis
	}
	if c.Search.Index == "" {
		c.Search.Index = "repository"
	}
	if c.Search.KeyPrefix == "" {
		c.Search.KeyPrefix = "digitalcc:"
	}
	if c.Search.ReadinessTimeout <= 0 {
		c.Search.ReadinessTimeout = 10
	}
	if c.Search.FacetSize <= 0 {
		c.Search.FacetSize = 25
	}
	if c.Search.BrowsePageSize <= 0 {
		c.Search.BrowsePageSize = 50
	}
	if c.Search.SearchPageSize <= 0 {
		c.Search.SearchPageSize = 25
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 500
	}
	if c.Fedora.TimeoutSec <= 0 {
		c.Fedora.TimeoutSec = 30
	}
	if c.Fedora.Burst <= 0 {
		c.Fedora.Burst = 1
	}
	if c.Fedora.MaxRetries < 0 {
		c.Fedora.MaxRetries = 0
	}
	if c.Harvest.RootPID == "" {
		c.Harvest.RootPID = "coccc:root"
	}
	if len(c.Harvest.Roles) == 0 {
		c.Harvest.Roles = map[string]string{"creator": "creator"}
	}
	if c.Harvest.PollLimit <= 0 {
		c.Harvest.PollLimit = 100
	}
	if c.Site.TTLSec <= 0 {
		c.Site.TTLSec = 3600
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Search.Driver {
	case DriverRedis:
		if len(c.Search.Addrs) == 0 {
			return fmt.Errorf("search.addrs is required for driver %q", DriverRedis)
		}
	case DriverBleve:
	default:
		return fmt.Errorf("search.driver must be %q or %q, got %q", DriverRedis, DriverBleve, c.Search.Driver)
	}
	if c.Fedora.RestURL == "" {
		return fmt.Errorf("fedora.rest_url is required")
	}
	if c.Fedora.RIURL == "" {
		return fmt.Errorf("fedora.ri_url is required")
	}
	if c.Fedora.RequestsPerSecond < 0 {
		return fmt.Errorf("fedora.requests_per_second must not be negative")
	}
	for role, target := range c.Harvest.Roles {
		switch target {
		case "creator", "contributor":
		default:
			return fmt.Errorf(
				"harvest.roles.%s must be \"creator\" or \"contributor\", got %q", role, target,
			)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
