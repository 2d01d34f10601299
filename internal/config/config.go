package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Assistant: AssistantConfig{
			Name:           "V",
			Endpoint:       "http://localhost:8000",
			Path:           "/message",
			TimeoutSeconds: 60,
			ResponseField:  "response",
			FallbackField:  "reply",
		},
		Server: ServerConfig{
			Port:    8000,
			Bind:    "loopback",
			DelayMs: 1500,
			Store:   "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
