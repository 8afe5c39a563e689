package app

import (
	"strings"

	"github.com/upskeel/lms/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server section.
func ConfigureLogging(server ServerConfig) error {
	level := strings.TrimSpace(server.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{
		Level:  level,
		Format: strings.ToLower(strings.TrimSpace(server.LogFormat)),
	})
}
