package config

// Config is the root configuration for vchat.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant,omitempty"`
	User      UserConfig      `yaml:"user,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// AssistantConfig describes the remote assistant endpoint the chat client talks to.
type AssistantConfig struct {
	Name           string `yaml:"name,omitempty"`     // display label, also used in the transcript
	Endpoint       string `yaml:"endpoint,omitempty"` // base URL, e.g. http://localhost:8000
	Path           string `yaml:"path,omitempty"`     // request path, "/message"
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
	ResponseField  string `yaml:"responseField,omitempty"` // primary reply key
	FallbackField  string `yaml:"fallbackField,omitempty"` // consulted when the primary key is absent
}

// UserConfig pre-fills the login form.
type UserConfig struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// ServerConfig controls the development assistant endpoint.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
	DelayMs        int      `yaml:"delayMs,omitempty"` // simulated think time
	Store          string   `yaml:"store,omitempty"`   // "sqlite" | "memory"
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// TelemetryConfig toggles OpenTelemetry trace and metric export.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}
