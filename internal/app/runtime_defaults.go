package app

import (
	"fmt"
	"strings"

	"github.com/upskeel/lms/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults fills settings that must exist even when no
// configuration file is supplied. It reports which keys were generated so
// callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.Seed.Admin.FullName) == "" {
		cfg.Seed.Admin.FullName = "System Admin"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}

	return generated, nil
}

// Validate rejects configurations the server cannot start with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		return fmt.Errorf("auth.jwt.secret must be configured")
	}
	if cfg.Events.Kafka.Enabled && len(nonBlank(cfg.Events.Kafka.Brokers)) == 0 {
		return fmt.Errorf("events.kafka.brokers must list at least one broker when kafka is enabled")
	}
	if cfg.Server.NodeID < 0 || cfg.Server.NodeID > 1023 {
		return fmt.Errorf("server.node_id must be between 0 and 1023")
	}
	if cfg.Notifications.Workers < 0 {
		return fmt.Errorf("notifications.workers must not be negative")
	}
	if cfg.Maintenance.AuditRetentionDays < 0 {
		return fmt.Errorf("maintenance.audit_retention_days must not be negative")
	}
	return nil
}
