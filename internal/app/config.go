package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the LMS backend.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Email         EmailConfig         `mapstructure:"email"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Events        EventsConfig        `mapstructure:"events"`
	Seed          SeedConfig          `mapstructure:"seed"`
	Maintenance   MaintenanceConfig   `mapstructure:"maintenance"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	NodeID    int64           `mapstructure:"node_id"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig lists origins allowed to call the API. Empty allows all.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig bounds requests per client IP and route.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
	Replicas        []string      `mapstructure:"replicas"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT                         JWTSettings      `mapstructure:"jwt"`
	Tokens                      TokenConfig      `mapstructure:"tokens"`
	Password                    PasswordSettings `mapstructure:"password"`
	RequireConfirmedEmail       bool             `mapstructure:"require_confirmed_email"`
	ForgotPasswordRevealUnknown bool             `mapstructure:"forgot_password_reveal_unknown"`
}

// JWTSettings configures bearer tokens.
type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"access_token_ttl"`
}

// TokenConfig configures single-use confirmation and reset tokens.
type TokenConfig struct {
	ConfirmationTTL time.Duration `mapstructure:"confirmation_ttl"`
	ResetTTL        time.Duration `mapstructure:"reset_ttl"`
	TokenBytes      int           `mapstructure:"token_bytes"`
}

// PasswordSettings configures the password policy.
type PasswordSettings struct {
	MinLength     int  `mapstructure:"min_length"`
	RequireDigit  bool `mapstructure:"require_digit"`
	RequireLower  bool `mapstructure:"require_lower"`
	RequireUpper  bool `mapstructure:"require_upper"`
	RequireSymbol bool `mapstructure:"require_symbol"`
}

// EmailConfig captures outbound email settings and the URLs embedded in links.
type EmailConfig struct {
	SMTP        SMTPConfig `mapstructure:"smtp"`
	FrontendURL string     `mapstructure:"frontend_url"`
	APIBaseURL  string     `mapstructure:"api_base_url"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NotificationsConfig sizes the email dispatcher. Zero workers sends inline.
type NotificationsConfig struct {
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue_size"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// EventsConfig configures domain event publication.
type EventsConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig holds broker settings for the event publisher.
type KafkaConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	Brokers        []string          `mapstructure:"brokers"`
	Topic          string            `mapstructure:"topic"`
	Topics         map[string]string `mapstructure:"topics"`
	PublishTimeout time.Duration     `mapstructure:"publish_timeout"`
}

// SeedConfig describes identities created at startup.
type SeedConfig struct {
	Admin AdminSeedConfig `mapstructure:"admin"`
}

// AdminSeedConfig is the bootstrap administrator.
type AdminSeedConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"full_name"`
}

// MaintenanceConfig schedules background cleanup.
type MaintenanceConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	TokenSchedule      string `mapstructure:"token_schedule"`
	AuditSchedule      string `mapstructure:"audit_schedule"`
	CacheSchedule      string `mapstructure:"cache_schedule"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

// MonitoringConfig toggles metrics and health endpoints.
type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("LMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, fmt.Errorf("config: bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// bindLegacyEnv accepts the variable names older deployments use. The LMS_
// form wins when both are set.
func bindLegacyEnv(v *viper.Viper) error {
	legacy := map[string][]string{
		"server.port":         {"LMS_SERVER_PORT", "PORT"},
		"seed.admin.email":    {"LMS_SEED_ADMIN_EMAIL", "ADMIN_EMAIL"},
		"seed.admin.password": {"LMS_SEED_ADMIN_PASSWORD", "ADMIN_PASSWORD"},
		"auth.jwt.secret":     {"LMS_AUTH_JWT_SECRET", "JWT_SECRET"},
	}
	for key, envs := range legacy {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.node_id", 1)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/lms.sqlite")
	v.SetDefault("database.replicas", []string{})
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "lms")
	v.SetDefault("auth.jwt.audience", "lms-clients")
	v.SetDefault("auth.jwt.access_token_ttl", "3h")
	v.SetDefault("auth.tokens.confirmation_ttl", "24h")
	v.SetDefault("auth.tokens.reset_ttl", "1h")
	v.SetDefault("auth.tokens.token_bytes", 32)
	v.SetDefault("auth.password.min_length", 6)
	v.SetDefault("auth.password.require_digit", true)
	v.SetDefault("auth.password.require_lower", true)
	v.SetDefault("auth.password.require_upper", true)
	v.SetDefault("auth.password.require_symbol", true)
	v.SetDefault("auth.require_confirmed_email", false)
	v.SetDefault("auth.forgot_password_reveal_unknown", false)

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from", "no-reply@upskeel.local")
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.frontend_url", "http://localhost:5173")
	v.SetDefault("email.api_base_url", "")

	v.SetDefault("notifications.workers", 2)
	v.SetDefault("notifications.queue_size", 100)
	v.SetDefault("notifications.send_timeout", "15s")

	v.SetDefault("events.kafka.enabled", false)
	v.SetDefault("events.kafka.brokers", []string{})
	v.SetDefault("events.kafka.topic", "lms.events")
	v.SetDefault("events.kafka.publish_timeout", "2s")

	v.SetDefault("seed.admin.email", "")
	v.SetDefault("seed.admin.password", "")
	v.SetDefault("seed.admin.full_name", "System Admin")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.token_schedule", "@hourly")
	v.SetDefault("maintenance.audit_schedule", "@daily")
	v.SetDefault("maintenance.cache_schedule", "@every 10m")
	v.SetDefault("maintenance.audit_retention_days", 90)

	v.SetDefault("monitoring.metrics.enabled", true)
	v.SetDefault("monitoring.metrics.endpoint", "/metrics")
	v.SetDefault("monitoring.health.enabled", true)
	v.SetDefault("monitoring.health.timeout", "5s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
