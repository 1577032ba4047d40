package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/rirsync/rirsync/internal/domain"
)

// Config represents the entire application configuration
type Config struct {
	Destination DestinationConfig `mapstructure:"destination"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Sources     []SourceConfig    `mapstructure:"sources"`
	Bulk        BulkConfig        `mapstructure:"bulk"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
}

// DestinationConfig contains output directory settings
type DestinationConfig struct {
	Dir string `mapstructure:"dir"`
}

// FetchConfig contains per-download transfer settings
type FetchConfig struct {
	Timeout         string `mapstructure:"timeout"`
	FTPDialTimeout  string `mapstructure:"ftp_dial_timeout"`
	BufferSizeMB    int    `mapstructure:"buffer_size_mb"`
	UserAgent       string `mapstructure:"user_agent"`
	StalePartialAge string `mapstructure:"stale_partial_age"`
}

// SourceConfig is one registry dump URL
type SourceConfig struct {
	Registry string `mapstructure:"registry"`
	URL      string `mapstructure:"url"`
}

// BulkConfig contains settings for the authenticated ARIN bulk download
type BulkConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	EntryName string `mapstructure:"entry_name"`
	APIKeyEnv string `mapstructure:"api_key_env"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig contains fetch history database settings
type DatabaseConfig struct {
	Path      string `mapstructure:"path"`
	Retention string `mapstructure:"retention"`
}

// defaultSources is the fixed list of registry dumps fetched on every
// run when the config file does not override it.
var defaultSources = []map[string]string{
	{"registry": "afrinic", "url": "https://ftp.afrinic.net/pub/dbase/afrinic.db.gz"},
	{"registry": "apnic", "url": "https://ftp.apnic.net/pub/apnic/whois/apnic.db.inetnum.gz"},
	{"registry": "apnic", "url": "https://ftp.apnic.net/pub/apnic/whois/apnic.db.inet6num.gz"},
	{"registry": "apnic", "url": "https://ftp.apnic.net/pub/apnic/whois/apnic.db.route-set.gz"},
	{"registry": "apnic", "url": "https://ftp.apnic.net/pub/apnic/whois/apnic.db.route.gz"},
	{"registry": "apnic", "url": "https://ftp.apnic.net/pub/apnic/whois/apnic.db.route6.gz"},
	{"registry": "lacnic", "url": "http://ftp.lacnic.net/lacnic/dbase/lacnic.db.gz"},
	{"registry": "ripe", "url": "https://ftp.ripe.net/ripe/dbase/split/ripe.db.inetnum.gz"},
	{"registry": "ripe", "url": "https://ftp.ripe.net/ripe/dbase/split/ripe.db.inet6num.gz"},
	{"registry": "ripe", "url": "https://ftp.ripe.net/ripe/dbase/split/ripe.db.route-set.gz"},
	{"registry": "ripe", "url": "https://ftp.ripe.net/ripe/dbase/split/ripe.db.route.gz"},
	{"registry": "ripe", "url": "https://ftp.ripe.net/ripe/dbase/split/ripe.db.route6.gz"},
	{"registry": "ripe", "url": "https://ftp.ripe.net/ripe/dbase/split/ripe-nonauth.db.route-set.gz"},
	{"registry": "ripe", "url": "https://ftp.ripe.net/ripe/dbase/split/ripe-nonauth.db.route.gz"},
	{"registry": "ripe", "url": "https://ftp.ripe.net/ripe/dbase/split/ripe-nonauth.db.route6.gz"},
	{"registry": "arin", "url": "https://ftp.arin.net/pub/rr/arin.db.gz"},
	{"registry": "arin", "url": "https://ftp.arin.net/pub/rr/arin-nonauth.db.gz"},
	{"registry": "level3", "url": "ftp://rr.level3.net/pub/rr/level3.db.gz"},
	{"registry": "nttcom", "url": "ftp://rr1.ntt.net/nttcomrr/nttcom.db.gz"},
	{"registry": "radb", "url": "ftp://ftp.radb.net/radb/dbase/radb.db.gz"},
	{"registry": "bgpnetbr", "url": "ftp://ftp.bgp.net.br/dbase/bgp.db.gz"},
}

// Load loads configuration from the specified file path. A missing file
// is not an error: the built-in defaults describe a complete run, so the
// program works with no config file at all.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	v.SetDefault("destination.dir", "./databases")
	v.SetDefault("fetch.timeout", "15m")
	v.SetDefault("fetch.ftp_dial_timeout", "30s")
	v.SetDefault("fetch.buffer_size_mb", 1)
	v.SetDefault("fetch.user_agent", "rirsync/1.0")
	v.SetDefault("fetch.stale_partial_age", "24h")
	v.SetDefault("sources", defaultSources)
	v.SetDefault("bulk.enabled", true)
	v.SetDefault("bulk.endpoint", "https://accountws.arin.net/public/secure/downloads/bulkwhois")
	v.SetDefault("bulk.entry_name", "arin_db.txt")
	v.SetDefault("bulk.api_key_env", "ARIN_API_KEY")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", "")
	v.SetDefault("database.retention", "720h")

	// Read config file if one exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Destination.Dir == "" {
		return fmt.Errorf("destination.dir is required")
	}

	// Validate fetch settings
	if _, err := time.ParseDuration(c.Fetch.Timeout); err != nil {
		return fmt.Errorf("invalid fetch.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Fetch.FTPDialTimeout); err != nil {
		return fmt.Errorf("invalid fetch.ftp_dial_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Fetch.StalePartialAge); err != nil {
		return fmt.Errorf("invalid fetch.stale_partial_age: %w", err)
	}

	// Validate sources
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	for i, s := range c.Sources {
		if err := s.Domain().Validate(); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}

	// Validate bulk settings
	if c.Bulk.Enabled {
		if c.Bulk.Endpoint == "" {
			return fmt.Errorf("bulk.endpoint is required when bulk.enabled is true")
		}
		if c.Bulk.EntryName == "" {
			return fmt.Errorf("bulk.entry_name is required when bulk.enabled is true")
		}
		if c.Bulk.APIKeyEnv == "" {
			return fmt.Errorf("bulk.api_key_env is required when bulk.enabled is true")
		}
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	if _, err := time.ParseDuration(c.Database.Retention); err != nil {
		return fmt.Errorf("invalid database.retention: %w", err)
	}

	return nil
}

// Domain converts the config entry to a domain Source
func (s SourceConfig) Domain() domain.Source {
	return domain.Source{Registry: s.Registry, URL: s.URL}
}

// DomainSources converts all configured sources, preserving order
func (c *Config) DomainSources() []domain.Source {
	sources := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		sources = append(sources, s.Domain())
	}
	return sources
}

// DatabasePath returns the history database path, defaulting to a file
// inside the destination directory.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Destination.Dir, "rirsync.db")
}

// GetTimeout returns the per-download timeout as time.Duration
func (c *FetchConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 15 * time.Minute
	}
	return d
}

// GetFTPDialTimeout returns the FTP dial timeout as time.Duration
func (c *FetchConfig) GetFTPDialTimeout() time.Duration {
	d, _ := time.ParseDuration(c.FTPDialTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetBufferSize returns the copy buffer size in bytes
func (c *FetchConfig) GetBufferSize() int {
	if c.BufferSizeMB <= 0 {
		return 1024 * 1024 // 1MB default
	}
	return c.BufferSizeMB * 1024 * 1024
}

// GetStalePartialAge returns the stale partial-file age as time.Duration
func (c *FetchConfig) GetStalePartialAge() time.Duration {
	d, _ := time.ParseDuration(c.StalePartialAge)
	if d == 0 {
		return 24 * time.Hour
	}
	return d
}

// GetRetention returns the history retention period as time.Duration
func (c *DatabaseConfig) GetRetention() time.Duration {
	d, _ := time.ParseDuration(c.Retention)
	if d == 0 {
		return 30 * 24 * time.Hour
	}
	return d
}
