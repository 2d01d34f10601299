package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Assistant validation
	if strings.TrimSpace(cfg.Assistant.Name) == "" {
		issues = append(issues, ValidationIssue{
			Path:    "assistant.name",
			Message: "name is required",
		})
	}
	if u, err := url.Parse(cfg.Assistant.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, ValidationIssue{
			Path:    "assistant.endpoint",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.Assistant.Endpoint),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, ValidationIssue{
			Path:    "assistant.endpoint",
			Message: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme),
		})
	}
	if !strings.HasPrefix(cfg.Assistant.Path, "/") {
		issues = append(issues, ValidationIssue{
			Path:    "assistant.path",
			Message: fmt.Sprintf("must start with '/', got %q", cfg.Assistant.Path),
		})
	}
	if cfg.Assistant.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "assistant.timeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Assistant.TimeoutSeconds),
		})
	}
	if cfg.Assistant.ResponseField != "" && cfg.Assistant.ResponseField == cfg.Assistant.FallbackField {
		issues = append(issues, ValidationIssue{
			Path:    "assistant.fallbackField",
			Message: "must differ from responseField",
		})
	}

	// Server validation
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"lan", "loopback", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	if cfg.Server.DelayMs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "server.delayMs",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Server.DelayMs),
		})
	}

	validStores := []string{"sqlite", "memory"}
	if cfg.Server.Store != "" && !slices.Contains(validStores, cfg.Server.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "server.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Server.Store),
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
