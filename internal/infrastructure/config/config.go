// Package config loads service settings from config.toml, a .env file and
// SCHOOLPAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // Africa/Kampala must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SCHOOLPAY_DATABASE_PASSWORD
const EnvPrefix = "SCHOOLPAY"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	SchoolPay SchoolPayConfig `mapstructure:"schoolpay"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds the postgres connection and pool settings.
// The two lifetimes are in minutes.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
}

// RedisConfig holds Redis connection settings.
// When disabled the sync lock runs in-process.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
	SwaggerEnabled   bool          `mapstructure:"swagger_enabled"`
	// SwaggerAllowedIPs restricts the docs to these IPs or CIDRs; empty allows all
	SwaggerAllowedIPs []string `mapstructure:"swagger_allowed_ips"`
	// WebhookRateLimit is requests per second per client IP; 0 disables limiting
	WebhookRateLimit float64 `mapstructure:"webhook_rate_limit"`
	WebhookRateBurst int     `mapstructure:"webhook_rate_burst"`
}

// SchoolPayConfig holds provider and pipeline settings
type SchoolPayConfig struct {
	BaseURL   string             `mapstructure:"base_url"`
	Timeout   time.Duration      `mapstructure:"timeout"`
	Timezone  string             `mapstructure:"timezone"`
	Webhook   WebhookConfig      `mapstructure:"webhook"`
	Sync      SyncConfig         `mapstructure:"sync"`
	Reconcile ReconcileConfig    `mapstructure:"reconcile"`
	Schedule  SyncScheduleConfig `mapstructure:"schedule"`
}

type WebhookConfig struct {
	Path             string `mapstructure:"path"`
	EnforceSignature bool   `mapstructure:"enforce_signature"`
}

type SyncConfig struct {
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type ReconcileConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

// SyncScheduleConfig controls the daily background sync of every configured
// tenant. Hour and Minute are wall-clock time in the SchoolPay timezone.
type SyncScheduleConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Hour       int           `mapstructure:"hour"`
	Minute     int           `mapstructure:"minute"`
	Workers    int           `mapstructure:"workers"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// Location loads the provider's timezone, falling back to UTC
func (s SchoolPayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TelemetryConfig holds the OTLP settings shared by traces, metrics and logs.
// LogsEnabled only takes effect with Enabled. DBLogFullSQL puts query arguments into spans and is refused in production.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
}

// ArchiveConfig holds S3-compatible storage settings for provider response archiving
type ArchiveConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	Prefix       string `mapstructure:"prefix"`
}

// defaults lists every key. Viper only binds environment variables for keys
// it knows, so keys without a useful default are registered with a zero value.
var defaults = map[string]any{
	"app.name": "schoolpay-reconciler",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "schoolerp",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                  "",
	"jwt.access_token_expiration": 15 * time.Minute,
	"jwt.issuer":                  "schoolpay-reconciler",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout": 15 * time.Second,
	// The sync endpoint waits on the provider, so allow more than its timeout
	"http.write_timeout":       2 * time.Minute,
	"http.idle_timeout":        time.Minute,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       1 << 20,
	"http.cors_allow_origins":  []string{},
	"http.trusted_proxies":     []string{},
	"http.swagger_enabled":     false,
	"http.swagger_allowed_ips": []string{},
	"http.webhook_rate_limit":  20,
	"http.webhook_rate_burst":  40,

	"schoolpay.base_url":                  "https://schoolpay.co.ug/paymentapi",
	"schoolpay.timeout":                   30 * time.Second,
	"schoolpay.timezone":                  "Africa/Kampala",
	"schoolpay.webhook.path":              "/api/v1/schoolpay/webhook",
	"schoolpay.webhook.enforce_signature": false,
	"schoolpay.sync.lock_ttl":             10 * time.Minute,
	"schoolpay.reconcile.max_attempts":    3,
	"schoolpay.schedule.enabled":          false,
	"schoolpay.schedule.hour":             2,
	"schoolpay.schedule.minute":           0,
	"schoolpay.schedule.workers":          4,
	"schoolpay.schedule.retries":          3,
	"schoolpay.schedule.retry_delay":      time.Minute,
	"schoolpay.schedule.job_timeout":      5 * time.Minute,

	"telemetry.enabled":            false,
	"telemetry.collector_endpoint": "localhost:4317",
	"telemetry.sampling_ratio":     1.0,
	"telemetry.service_name":       "",
	"telemetry.insecure":           false,
	"telemetry.metrics_interval":   time.Minute,
	"telemetry.logs_enabled":       true,
	"telemetry.db_trace_enabled":   false,
	"telemetry.db_log_full_sql":    false,

	"archive.enabled":        false,
	"archive.endpoint":       "",
	"archive.region":         "us-east-1",
	"archive.bucket":         "",
	"archive.access_key":     "",
	"archive.secret_key":     "",
	"archive.use_ssl":        false,
	"archive.use_path_style": true,
	"archive.prefix":         "schoolpay",
}

// Load reads configuration. Later sources win:
// built-in defaults, then config.toml (in . or /app), then the environment.
// A .env file is copied into the environment first.
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	db := c.Database
	switch {
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	}

	sp := c.SchoolPay
	if _, err := url.ParseRequestURI(sp.BaseURL); err != nil {
		return fmt.Errorf("schoolpay.base_url is not a valid URL: %w", err)
	}
	if _, err := time.LoadLocation(sp.Timezone); err != nil {
		return fmt.Errorf("schoolpay.timezone %q is not a known zone: %w", sp.Timezone, err)
	}
	if sp.Reconcile.MaxAttempts < 1 {
		return errors.New("schoolpay.reconcile.max_attempts must be at least 1")
	}
	if sch := sp.Schedule; sch.Hour < 0 || sch.Hour > 23 || sch.Minute < 0 || sch.Minute > 59 {
		return fmt.Errorf("schoolpay.schedule time %02d:%02d is not a valid time of day", sch.Hour, sch.Minute)
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return errors.New("archive.bucket is required when archive.enabled is true")
		}
		if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			return errors.New("archive.access_key and archive.secret_key are required when archive.enabled is true")
		}
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

// validateProduction refuses settings that are only safe on a developer machine
func (c *Config) validateProduction() error {
	switch {
	case c.JWT.Secret == "":
		return errors.New("jwt.secret is required in production")
	case len(c.JWT.Secret) < 32:
		return errors.New("jwt.secret must be at least 32 characters in production")
	case c.Database.Password == "":
		return errors.New("database.password is required in production")
	case c.Database.SSLMode == "disable":
		return errors.New("database.sslmode cannot be 'disable' in production")
	case c.Telemetry.DBLogFullSQL:
		return errors.New("telemetry.db_log_full_sql must be false in production to keep payment data out of traces")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return errors.New("http.cors_allow_origins cannot be '*' in production")
		}
	}
	return nil
}

// DSN returns a postgres:// URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
