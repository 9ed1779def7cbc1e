package reasongate

import (
	"github.com/cortexflow-ai/reasongate/internal/approach"
)

// Config holds the configuration for the reasoning gateway.
type Config struct {
	// Server controls the HTTP listener.
	Server ServerConfig `json:"server" yaml:"server"`
	// Approach is the default strategy slug applied when the request
	// carries no directive of its own.
	Approach string `json:"approach,omitempty" yaml:"approach,omitempty"`
	// Repeat is the default number of times a request's combination is
	// executed.
	Repeat int `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	// Upstream selects and authenticates the inference backend.
	Upstream UpstreamConfig `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	// Defaults are the tunable knobs handed to every strategy run.
	Defaults approach.Defaults `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	// Extensions configures manifest discovery for strategy extensions.
	Extensions ExtensionsConfig `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	// RequestLog configures persistent request accounting (optional).
	RequestLog RequestLogConfig `json:"request_log,omitempty" yaml:"request_log,omitempty"`
	// Log controls structured logging.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`
}

// ServerConfig controls the HTTP listener and client authentication.
type ServerConfig struct {
	// Port the gateway listens on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
	// APIKey, when set, requires clients to present it as a bearer token.
	// The /health endpoint stays open.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// RateLimit caps requests per second per caller. Zero disables the
	// limit. One client request can fan out into many backend calls, so
	// the cap applies at the gateway edge.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// UpstreamConfig selects the inference backend.
type UpstreamConfig struct {
	// BaseURL overrides the backend endpoint for OpenAI-compatible servers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// ExtensionsConfig configures manifest discovery.
type ExtensionsConfig struct {
	// BundledDir holds manifests shipped with the gateway.
	BundledDir string `json:"bundled_dir,omitempty" yaml:"bundled_dir,omitempty"`
	// LocalDir holds operator manifests. A slug declared here shadows a
	// bundled manifest with the same slug.
	LocalDir string `json:"local_dir,omitempty" yaml:"local_dir,omitempty"`
}

// RequestLogConfig configures persistent request accounting.
type RequestLogConfig struct {
	// Driver is "sqlite", "postgres", or empty to disable.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	// DSN is the database connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8000},
		Approach: "auto",
		Repeat:   1,
		Defaults: approach.StandardDefaults(),
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}
