package app

import (
	"fmt"
	"strings"

	"github.com/upskeel/lms/internal/cache"
	"github.com/upskeel/lms/internal/database"
	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/notifications"
)

// Address returns the listen address for the HTTP server.
func (c ServerConfig) Address() string {
	port := c.Port
	if port <= 0 {
		port = 8080
	}
	return fmt.Sprintf(":%d", port)
}

// DispatcherOptions converts the notifications section.
func (c NotificationsConfig) DispatcherOptions() notifications.Options {
	return notifications.Options{
		Workers:     c.Workers,
		QueueSize:   c.QueueSize,
		SendTimeout: c.SendTimeout,
	}
}

// KafkaSettings converts the Kafka section into the publisher configuration.
func (c EventsConfig) KafkaSettings() events.KafkaConfig {
	return events.KafkaConfig{
		Brokers:     nonBlank(c.Kafka.Brokers),
		Topic:       strings.TrimSpace(c.Kafka.Topic),
		TopicByType: c.Kafka.Topics,
		Timeout:     c.Kafka.PublishTimeout,
	}
}

// AdminSeed returns the bootstrap administrator, or false when none is configured.
func (c SeedConfig) AdminSeed() (database.AdminSeed, bool) {
	seed := database.AdminSeed{
		Email:    strings.TrimSpace(c.Admin.Email),
		Password: c.Admin.Password,
		FullName: strings.TrimSpace(c.Admin.FullName),
	}
	if seed.Email == "" || seed.Password == "" {
		return seed, false
	}
	if seed.FullName == "" {
		seed.FullName = "System Admin"
	}
	return seed, true
}

// RedisClientConfig converts the cache section for the Redis-backed rate limiter
// and health check. Blank addresses leave the server on the database store.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}
