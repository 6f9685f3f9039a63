package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
	"github.com/samvad-hq/liquor-catalog/pkg/httpclient"
)

const (
	TransportResty  = "resty"
	TransportSocket = "socket"

	// ConfigFileEnv names an optional YAML config file layered under the environment.
	ConfigFileEnv = "CATALOG_CONFIG_FILE"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName         string `mapstructure:"app_name"`
	Env             string `mapstructure:"app_env"`
	LogLevel        string `mapstructure:"log_level"`
	CatalogEndpoint string `mapstructure:"catalog_endpoint"`

	HTTPUserAgent       string        `mapstructure:"http_user_agent"`
	HTTPProxy           string        `mapstructure:"http_proxy"`
	HTTPFollowLocation  bool          `mapstructure:"http_follow_location"`
	HTTPMaxRedirects    int           `mapstructure:"http_max_redirects"`
	HTTPProtocolVersion float64       `mapstructure:"http_protocol_version"`
	HTTPTimeoutSeconds  float64       `mapstructure:"http_timeout_seconds"`
	HTTPTimeout         time.Duration `mapstructure:"-"`
	HTTPIgnoreErrors    bool          `mapstructure:"http_ignore_errors"`
	HTTPRequestFullURI  bool          `mapstructure:"http_request_full_uri"`
	HTTPTransport       string        `mapstructure:"http_transport"`

	WatchlistFile       string        `mapstructure:"watchlist_file"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	PollInterval        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "liquor-catalog")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("catalog_endpoint", catalog.DefaultEndpoint)
	v.SetDefault("http_user_agent", httpclient.DefaultUserAgent)
	v.SetDefault("http_proxy", "")
	v.SetDefault("http_follow_location", true)
	v.SetDefault("http_max_redirects", httpclient.DefaultMaxRedirects)
	v.SetDefault("http_protocol_version", httpclient.HTTP11)
	v.SetDefault("http_timeout_seconds", httpclient.DefaultTimeout.Seconds())
	v.SetDefault("http_ignore_errors", false)
	v.SetDefault("http_request_full_uri", false)
	v.SetDefault("http_transport", TransportResty)
	v.SetDefault("watchlist_file", "./configs/watchlist.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("poll_interval", 3600) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/prices.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds * float64(time.Second))

	if cfg.HTTPMaxRedirects < 0 {
		return fmt.Errorf("invalid http_max_redirects (must not be negative)")
	}
	if cfg.HTTPProtocolVersion != httpclient.HTTP10 && cfg.HTTPProtocolVersion != httpclient.HTTP11 {
		return fmt.Errorf("invalid http_protocol_version %v (expected 1.0 or 1.1)", cfg.HTTPProtocolVersion)
	}

	cfg.HTTPTransport = strings.ToLower(strings.TrimSpace(cfg.HTTPTransport))
	switch cfg.HTTPTransport {
	case "", TransportResty:
		cfg.HTTPTransport = TransportResty
	case TransportSocket:
	default:
		return fmt.Errorf("unsupported http_transport %q", cfg.HTTPTransport)
	}
	return nil
}

// ClientOptions converts the HTTP settings into client options. log may be nil.
func (cfg *Config) ClientOptions(log httpclient.Logger) []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithLogger(log),
		httpclient.WithUserAgent(cfg.HTTPUserAgent),
		httpclient.WithProxy(cfg.HTTPProxy),
		httpclient.WithFollowLocation(cfg.HTTPFollowLocation),
		httpclient.WithMaxRedirects(cfg.HTTPMaxRedirects),
		httpclient.WithProtocolVersion(cfg.HTTPProtocolVersion),
		httpclient.WithTimeout(cfg.HTTPTimeout),
		httpclient.WithIgnoreErrors(cfg.HTTPIgnoreErrors),
		httpclient.WithRequestFullURI(cfg.HTTPRequestFullURI),
	}
	if cfg.HTTPTransport == TransportSocket {
		opts = append(opts, httpclient.WithTransport(httpclient.NewSocketTransport(nil)))
	}
	return opts
}
