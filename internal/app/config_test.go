package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/services"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, []string{"https://lms.example.com", "https://admin.lms.example.com"}, cfg.Server.CORS.AllowedOrigins)
	require.Equal(t, 30, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Len(t, cfg.Database.Replicas, 1)
	require.Equal(t, 20, cfg.Database.MaxOpenConns)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 2*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 48*time.Hour, cfg.Auth.Tokens.ConfirmationTTL)
	require.Equal(t, 10, cfg.Auth.Password.MinLength)
	require.True(t, cfg.Auth.Password.RequireDigit)
	require.False(t, cfg.Auth.Password.RequireSymbol)
	require.True(t, cfg.Auth.ForgotPasswordRevealUnknown)
	require.False(t, cfg.Auth.RequireConfirmedEmail)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, 4, cfg.Notifications.Workers)
	require.Equal(t, 500, cfg.Notifications.QueueSize)
	require.Equal(t, 15*time.Second, cfg.Notifications.SendTimeout)

	require.True(t, cfg.Events.Kafka.Enabled)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Kafka.Brokers)
	require.Equal(t, "lms.courses", cfg.Events.Kafka.Topics["course.published"])

	require.Equal(t, "admin@example.com", cfg.Seed.Admin.Email)
	require.Equal(t, "System Admin", cfg.Seed.Admin.FullName)

	require.Equal(t, "@every 30m", cfg.Maintenance.TokenSchedule)
	require.Equal(t, "@daily", cfg.Maintenance.AuditSchedule)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("ADMIN_EMAIL", "root@lms.test")
	t.Setenv("LMS_AUTH_JWT_ACCESS_TOKEN_TTL", "45m")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "root@lms.test", cfg.Seed.Admin.Email)
	require.Equal(t, 45*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 100, cfg.Server.RateLimit.Requests)
	require.Equal(t, "lms", cfg.Auth.JWT.Issuer)
	require.Equal(t, int64(1), cfg.Server.NodeID)
	require.Equal(t, 2*time.Second, cfg.Events.Kafka.PublishTimeout)
	require.False(t, cfg.Cache.Redis.Enabled)
}

func TestLoadConfigPrefersPrefixedEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("LMS_SERVER_PORT", "9292")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 9292, cfg.Server.Port)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			Secret:   "secret",
			Issuer:   " issuer ",
			Audience: "clients",
			TTL:      30 * time.Minute,
		},
		Tokens: TokenConfig{ResetTTL: 15 * time.Minute},
		Password: PasswordSettings{
			MinLength:    8,
			RequireDigit: true,
		},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		Audience:       "clients",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	tokens := cfg.TokenSettings()
	require.Equal(t, 15*time.Minute, tokens.ResetTTL)
	require.Equal(t, services.DefaultTokenSettings().ConfirmationTTL, tokens.ConfirmationTTL)
	require.Equal(t, services.DefaultTokenSettings().TokenBytes, tokens.TokenBytes)

	require.Equal(t, services.PasswordPolicy{MinLength: 8, RequireDigit: true}, cfg.PasswordPolicy())
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	require.Equal(t, auth.DefaultAccessTokenTTL, cfg.JWTServiceConfig().AccessTokenTTL)
	require.Equal(t, services.DefaultTokenSettings(), cfg.TokenSettings())
	require.Equal(t, services.DefaultPasswordPolicy().MinLength, cfg.PasswordPolicy().MinLength)
}

func TestEmailConfigAdapters(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     " smtp.example.com ",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
		FrontendURL: "https://lms.test/",
		APIBaseURL:  "https://api.lms.test",
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, 10*time.Second, settings.Timeout)

	links := cfg.Links()
	require.Equal(t, "https://lms.test", links.FrontendURL)
	require.Equal(t, "https://api.lms.test", links.APIBaseURL)
}

func TestDatabaseSettings(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   "PostgreSQL",
		Postgres: DBAuthConfig{Host: "db", Port: 5432, Database: "lms", Username: "lms", Password: "pw"},
		MySQL:    DBAuthConfig{Host: "mysql"},
		Replicas: []string{"", " replica-dsn "},
	}

	settings := cfg.DatabaseSettings()
	require.Equal(t, "postgres", settings.Driver)
	require.Equal(t, "db", settings.Host)
	require.Equal(t, "lms", settings.Name)
	require.Equal(t, []string{"replica-dsn"}, settings.Replicas)

	sqlite := DatabaseConfig{Path: "./data/lms.sqlite"}.DatabaseSettings()
	require.Equal(t, "sqlite", sqlite.Driver)
	require.Empty(t, sqlite.Host)
}

func TestRuntimeAdapters(t *testing.T) {
	require.Equal(t, ":8080", ServerConfig{}.Address())
	require.Equal(t, ":9000", ServerConfig{Port: 9000}.Address())

	opts := NotificationsConfig{Workers: 3, QueueSize: 10, SendTimeout: time.Second}.DispatcherOptions()
	require.Equal(t, 3, opts.Workers)
	require.Equal(t, 10, opts.QueueSize)

	kafka := EventsConfig{Kafka: KafkaConfig{Brokers: []string{" b1:9092 ", ""}, Topic: " lms.events ", PublishTimeout: time.Second}}.KafkaSettings()
	require.Equal(t, []string{"b1:9092"}, kafka.Brokers)
	require.Equal(t, "lms.events", kafka.Topic)
	require.Equal(t, time.Second, kafka.Timeout)

	redis := CacheConfig{Redis: RedisCacheConfig{Address: " redis:6379 ", Username: " lms ", DB: 2, Timeout: time.Second}}.RedisClientConfig()
	require.Equal(t, "redis:6379", redis.Address)
	require.Equal(t, "lms", redis.Username)
	require.Equal(t, 2, redis.DB)
	require.Equal(t, time.Second, redis.Timeout)

	_, ok := SeedConfig{}.AdminSeed()
	require.False(t, ok)

	seed, ok := SeedConfig{Admin: AdminSeedConfig{Email: " admin@lms.test ", Password: "Admin123!"}}.AdminSeed()
	require.True(t, ok)
	require.Equal(t, "admin@lms.test", seed.Email)
	require.Equal(t, "System Admin", seed.FullName)
}
