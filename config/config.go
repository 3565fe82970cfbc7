package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the YAML file.
const (
	EnvConfigPath       = "CONFIG_PATH"
	EnvDatabaseDSN      = "VOLTFOX_DATABASE_DSN"
	EnvJWTSecret        = "VOLTFOX_JWT_SECRET"
	EnvVAPIDPublicKey   = "VOLTFOX_VAPID_PUBLIC_KEY"
	EnvVAPIDPrivateKey  = "VOLTFOX_VAPID_PRIVATE_KEY"
	EnvSMTPPassword     = "VOLTFOX_SMTP_PASSWORD"
	EnvVisionAPIKey     = "VOLTFOX_VISION_API_KEY"
	EnvMQTTPassword     = "VOLTFOX_MQTT_PASSWORD"
	DefaultConfigPath   = "./config/config.yaml"
	defaultVisionPrompt = "Identify the battery-powered device in this photo."
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	Email      EmailConfig      `yaml:"email"`
	Vision     VisionConfig     `yaml:"vision"`
	Cache      CacheConfig      `yaml:"cache"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port               int      `yaml:"port"`
	Environment        string   `yaml:"environment"`
	RateLimitPerSec    float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds    int      `yaml:"cache_ttl_seconds"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// AuthConfig holds the bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// SMTP transport security settings for email.tls_policy.
const (
	TLSPolicyMandatory     = "mandatory"
	TLSPolicyOpportunistic = "opportunistic"
	TLSPolicySSL           = "ssl"
	TLSPolicyNone          = "none"
)

// EmailConfig holds the SMTP settings for email alerts. From may carry a
// display name, e.g. "VoltFox <alerts@voltfox.app>".
type EmailConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	From           string        `yaml:"from"`
	TLSPolicy      string        `yaml:"tls_policy"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// VisionConfig holds the settings for the device recognition API.
type VisionConfig struct {
	Enabled         bool          `yaml:"enabled"`
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	Prompt          string        `yaml:"prompt"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	CacheTTLMinutes int           `yaml:"cache_ttl_minutes"`
	CacheTTL        time.Duration `yaml:"-"`
	MaxImageBytes   int64         `yaml:"max_image_bytes"`
	HTTPProxy       string        `yaml:"http_proxy"`
}

// CacheConfig selects the shared cache backend. An empty RedisAddr keeps
// everything in process memory.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size              int `yaml:"size"`
	QueueSize         int `yaml:"queue_size"`
	FanoutConcurrency int `yaml:"fanout_concurrency"`
}

// SnapshotConfig holds the configuration for the history snapshot job.
type SnapshotConfig struct {
	Enabled              bool          `yaml:"enabled"`
	IntervalMinutes      int           `yaml:"interval_minutes"`
	Interval             time.Duration `yaml:"-"`
	WarrantyReminderDays int           `yaml:"warranty_reminder_days"`
}

// MQTTConfig holds the telemetry broker settings.
type MQTTConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Broker         string `yaml:"broker"`
	ClientID       string `yaml:"client_id"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	Topic          string `yaml:"topic"`
	QoS            byte   `yaml:"qos"`
	KeepAlive      int    `yaml:"keep_alive_seconds"`
	ConnectTimeout int    `yaml:"connect_timeout_seconds"`
}

// LoggingConfig holds the log level and optional rotating file sink.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads the configuration from the given path. A .env file next to the
// working directory is loaded first when present, and secrets found in the
// environment win over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.DSN, EnvDatabaseDSN)
	override(&cfg.Auth.JWTSecret, EnvJWTSecret)
	override(&cfg.Push.PublicKey, EnvVAPIDPublicKey)
	override(&cfg.Push.PrivateKey, EnvVAPIDPrivateKey)
	override(&cfg.Email.Password, EnvSMTPPassword)
	override(&cfg.Vision.APIKey, EnvVisionAPIKey)
	override(&cfg.MQTT.Password, EnvMQTTPassword)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Email.Port <= 0 {
		cfg.Email.Port = 587
	}
	if cfg.Email.TLSPolicy == "" {
		cfg.Email.TLSPolicy = TLSPolicyMandatory
	}
	if cfg.Email.TimeoutSeconds <= 0 {
		cfg.Email.TimeoutSeconds = 15
	}
	cfg.Email.Timeout = time.Duration(cfg.Email.TimeoutSeconds) * time.Second

	if cfg.Vision.TimeoutSeconds <= 0 {
		cfg.Vision.TimeoutSeconds = 30
	}
	cfg.Vision.Timeout = time.Duration(cfg.Vision.TimeoutSeconds) * time.Second
	if cfg.Vision.RateLimitPerSec <= 0 {
		cfg.Vision.RateLimitPerSec = 2
	}
	if cfg.Vision.CacheTTLMinutes <= 0 {
		cfg.Vision.CacheTTLMinutes = 24 * 60
	}
	cfg.Vision.CacheTTL = time.Duration(cfg.Vision.CacheTTLMinutes) * time.Minute
	if cfg.Vision.MaxImageBytes <= 0 {
		cfg.Vision.MaxImageBytes = 5 << 20
	}
	if cfg.Vision.Prompt == "" {
		cfg.Vision.Prompt = defaultVisionPrompt
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
	if cfg.WorkerPool.FanoutConcurrency <= 0 {
		cfg.WorkerPool.FanoutConcurrency = 8
	}

	if cfg.Snapshot.IntervalMinutes <= 0 {
		cfg.Snapshot.IntervalMinutes = 24 * 60
	}
	cfg.Snapshot.Interval = time.Duration(cfg.Snapshot.IntervalMinutes) * time.Minute
	if cfg.Snapshot.WarrantyReminderDays <= 0 {
		cfg.Snapshot.WarrantyReminderDays = 30
	}

	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "voltfox/+/devices/+/telemetry"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "voltfoxd"
	}
	if cfg.MQTT.KeepAlive <= 0 {
		cfg.MQTT.KeepAlive = 30
	}
	if cfg.MQTT.ConnectTimeout <= 0 {
		cfg.MQTT.ConnectTimeout = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 28
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Email.Enabled && (c.Email.Host == "" || c.Email.From == "") {
		return errors.New("email.host and email.from are required when email is enabled")
	}
	if c.Email.Enabled {
		if _, err := mail.ParseAddress(c.Email.From); err != nil {
			return fmt.Errorf("invalid email.from %q: %w", c.Email.From, err)
		}
		switch c.Email.TLSPolicy {
		case TLSPolicyMandatory, TLSPolicyOpportunistic, TLSPolicySSL, TLSPolicyNone:
		default:
			return fmt.Errorf("unsupported email.tls_policy %q", c.Email.TLSPolicy)
		}
	}
	if c.Vision.Enabled && c.Vision.BaseURL == "" {
		return errors.New("vision.base_url is required when vision is enabled")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}
