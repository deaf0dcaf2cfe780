package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Gateway   GatewayConfig
	Sweep     SweepConfig
	Archive   ArchiveConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings.
// An empty Host disables Redis and the in-memory idempotency store is used.
type RedisConfig struct {
	Host           string
	Port           int
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// JWTConfig holds the settings used to validate admin bearer tokens.
// Tokens are issued by the storefront's identity service, not by this backend.
type JWTConfig struct {
	Secret    string
	Issuer    string
	AdminRole string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout               time.Duration
	WriteTimeout              time.Duration
	IdleTimeout               time.Duration
	MaxHeaderBytes            int
	MaxBodySize               int64
	RateLimitEnabled          bool
	RateLimitRequests         int
	RateLimitWindow           time.Duration
	InitiateRateLimitRequests int           // Max initiations per client per window
	InitiateRateLimitWindow   time.Duration // Initiation rate limit window
	CORSAllowOrigins          []string
	CORSAllowMethods          []string
	CORSAllowHeaders          []string
	TrustedProxies            []string
	SwaggerEnabled            bool     // Serve /swagger/*
	SwaggerAllowedIPs         []string // IPs or CIDRs allowed to read the docs; empty allows all
}

// GatewayConfig holds the payment gateway merchant credentials and endpoints
type GatewayConfig struct {
	MerchantID      string
	SaltKey         string
	SaltIndex       int
	BaseURL         string        // Gateway API base, e.g. https://api.phonepe.com/apis/hermes
	FrontendBaseURL string        // Storefront origin the redirect handler sends browsers to
	CallbackBaseURL string        // Public origin of this backend, used for redirectUrl/callbackUrl
	Timeout         time.Duration // Outbound request timeout, clamped to 15-30s by the adapter
	VerifyCallbacks bool          // Require X-VERIFY on webhooks and re-check redirects via status API
}

// RedirectURL is the browser return URL registered with the gateway
func (g *GatewayConfig) RedirectURL() string {
	return strings.TrimRight(g.CallbackBaseURL, "/") + "/redirect"
}

// CallbackURL is the server-to-server webhook URL registered with the gateway
func (g *GatewayConfig) CallbackURL() string {
	return strings.TrimRight(g.CallbackBaseURL, "/") + "/callback"
}

// SweepConfig holds the stuck-order sweep schedule
type SweepConfig struct {
	Enabled    bool
	Interval   time.Duration // How often the sweep runs
	StuckAfter time.Duration // Age after which an initiated order is re-checked
	BatchSize  int
}

// ArchiveConfig holds the S3-compatible bucket that keeps raw gateway payloads
type ArchiveConfig struct {
	Enabled      bool
	Endpoint     string // Empty uses the AWS endpoint for Region
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool // Required by MinIO and RustFS
	Prefix       string
	Timeout      time.Duration // Per-upload bound; the webhook response waits on it
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	LogsEnabled       bool          // Export zap logs through the OTLP log bridge
	// Continuous profiling
	ProfilingEnabled       bool
	ProfilingServerAddress string // Pyroscope server, e.g. http://pyroscope:4040
}

// defaultSaltKey is the gateway's public sandbox salt. It must never reach production.
const defaultSaltKey = "099eb0cd-02cf-4e2a-8aca-3e6c6aff0399"

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_GATEWAY_SALT_KEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bool defaults; an unset bool cannot be told apart from false later.
	v.SetDefault("gateway.verify_callbacks", true)
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("http.swagger_enabled", true)
	v.SetDefault("archive.use_ssl", true)
	v.SetDefault("archive.use_path_style", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:           v.GetString("redis.host"),
			Port:           v.GetInt("redis.port"),
			Password:       v.GetString("redis.password"),
			DB:             v.GetInt("redis.db"),
			IdempotencyTTL: v.GetDuration("redis.idempotency_ttl"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("jwt.secret"),
			Issuer:    v.GetString("jwt.issuer"),
			AdminRole: v.GetString("jwt.admin_role"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:               v.GetDuration("http.read_timeout"),
			WriteTimeout:              v.GetDuration("http.write_timeout"),
			IdleTimeout:               v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:            v.GetInt("http.max_header_bytes"),
			MaxBodySize:               v.GetInt64("http.max_body_size"),
			RateLimitEnabled:          v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:         v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:           v.GetDuration("http.rate_limit_window"),
			InitiateRateLimitRequests: v.GetInt("http.initiate_rate_limit_requests"),
			InitiateRateLimitWindow:   v.GetDuration("http.initiate_rate_limit_window"),
			CORSAllowOrigins:          v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:          v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:          v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:            v.GetStringSlice("http.trusted_proxies"),
			SwaggerEnabled:            v.GetBool("http.swagger_enabled"),
			SwaggerAllowedIPs:         v.GetStringSlice("http.swagger_allowed_ips"),
		},
		Gateway: GatewayConfig{
			MerchantID:      v.GetString("gateway.merchant_id"),
			SaltKey:         v.GetString("gateway.salt_key"),
			SaltIndex:       v.GetInt("gateway.salt_index"),
			BaseURL:         v.GetString("gateway.base_url"),
			FrontendBaseURL: v.GetString("gateway.frontend_base_url"),
			CallbackBaseURL: v.GetString("gateway.callback_base_url"),
			Timeout:         v.GetDuration("gateway.timeout"),
			VerifyCallbacks: v.GetBool("gateway.verify_callbacks"),
		},
		Sweep: SweepConfig{
			Enabled:    v.GetBool("sweep.enabled"),
			Interval:   v.GetDuration("sweep.interval"),
			StuckAfter: v.GetDuration("sweep.stuck_after"),
			BatchSize:  v.GetInt("sweep.batch_size"),
		},
		Archive: ArchiveConfig{
			Enabled:      v.GetBool("archive.enabled"),
			Endpoint:     v.GetString("archive.endpoint"),
			Region:       v.GetString("archive.region"),
			Bucket:       v.GetString("archive.bucket"),
			AccessKey:    v.GetString("archive.access_key"),
			SecretKey:    v.GetString("archive.secret_key"),
			UseSSL:       v.GetBool("archive.use_ssl"),
			UsePathStyle: v.GetBool("archive.use_path_style"),
			Prefix:       v.GetString("archive.prefix"),
			Timeout:      v.GetDuration("archive.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),

			ProfilingEnabled:       v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress: v.GetString("telemetry.profiling_server_address"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.IdempotencyTTL == 0 {
		cfg.Redis.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "storefront-identity"
	}
	if cfg.JWT.AdminRole == "" {
		cfg.JWT.AdminRole = "admin"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Initiation blocks on the gateway for up to 30s
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.InitiateRateLimitRequests == 0 {
		cfg.HTTP.InitiateRateLimitRequests = 10
	}
	if cfg.HTTP.InitiateRateLimitWindow == 0 {
		cfg.HTTP.InitiateRateLimitWindow = time.Minute
	}
	// NOTE: CORS origins have no wildcard fallback. An empty list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-VERIFY"}
	}
	if cfg.Gateway.MerchantID == "" {
		cfg.Gateway.MerchantID = "PGTESTPAYUAT"
	}
	if cfg.Gateway.SaltKey == "" {
		cfg.Gateway.SaltKey = defaultSaltKey
	}
	if cfg.Gateway.SaltIndex == 0 {
		cfg.Gateway.SaltIndex = 1
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "https://api-preprod.phonepe.com/apis/pg-sandbox"
	}
	if cfg.Gateway.FrontendBaseURL == "" {
		cfg.Gateway.FrontendBaseURL = "http://localhost:3000"
	}
	if cfg.Gateway.CallbackBaseURL == "" {
		cfg.Gateway.CallbackBaseURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = 20 * time.Second
	}
	if cfg.Sweep.Interval == 0 {
		cfg.Sweep.Interval = 5 * time.Minute
	}
	if cfg.Sweep.StuckAfter == 0 {
		cfg.Sweep.StuckAfter = 30 * time.Minute
	}
	if cfg.Sweep.BatchSize == 0 {
		cfg.Sweep.BatchSize = 50
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "gateway-payloads"
	}
	if cfg.Archive.Timeout == 0 {
		cfg.Archive.Timeout = 5 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storefront-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Gateway.SaltIndex < 1 {
		return fmt.Errorf("gateway.salt_index must be at least 1, got %d", c.Gateway.SaltIndex)
	}
	if _, err := url.ParseRequestURI(c.Gateway.BaseURL); err != nil {
		return fmt.Errorf("gateway.base_url is not a valid URL: %w", err)
	}
	if c.Sweep.BatchSize < 0 {
		return fmt.Errorf("sweep.batch_size cannot be negative")
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when the payload archive is enabled")
		}
		if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			return fmt.Errorf("archive.access_key and archive.secret_key are required when the payload archive is enabled")
		}
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Gateway.SaltKey == defaultSaltKey {
			return fmt.Errorf("gateway.salt_key must be set to the merchant's own salt in production")
		}
		if !strings.HasPrefix(c.Gateway.BaseURL, "https://") {
			return fmt.Errorf("gateway.base_url must use https in production")
		}
		if !c.Gateway.VerifyCallbacks {
			return fmt.Errorf("gateway.verify_callbacks cannot be disabled in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServerAddress == "" {
		return fmt.Errorf("telemetry.profiling_server_address is required when profiling is enabled")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
