package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration struct for trakka.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Runner        RunnerConfig        `mapstructure:"runner"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Trace         TraceConfig         `mapstructure:"trace"`
}

// RunnerConfig mirrors runner.Options: the knobs a plan can't set per-event
// because they govern the scheduler itself rather than any one path or task.
type RunnerConfig struct {
	KeepGoing         bool    `mapstructure:"keep_going"`
	Outdated          bool    `mapstructure:"outdated"`
	WorkerPoolSize    int     `mapstructure:"worker_pool_size"`
	DispatchRateLimit float64 `mapstructure:"dispatch_rate_limit"`
}

// ObservabilityConfig holds logging and tracing export settings.
type ObservabilityConfig struct {
	Level        string `mapstructure:"level"`
	Format       string `mapstructure:"format"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	// DiagnosticsAddr, when non-empty, is the address the `trakka run
	// --diagnostics-addr` health/ready/metrics server listens on. Empty
	// disables the server.
	DiagnosticsAddr string `mapstructure:"diagnostics_addr"`
}

// TraceConfig holds the optional run-journal settings.
type TraceConfig struct {
	Directory string        `mapstructure:"directory"`
	MaxAge    time.Duration `mapstructure:"max_age"`
	MaxSizeMB int           `mapstructure:"max_size_mb"`
	Enabled   bool          `mapstructure:"enabled"`
}

// validLogLevels lists the log/slog levels Observability.Level accepts.
var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkerPoolSize indicates a negative worker pool size.
	ErrInvalidWorkerPoolSize = errors.New("runner.worker_pool_size must be non-negative")
	// ErrInvalidDispatchRateLimit indicates a negative dispatch rate limit.
	ErrInvalidDispatchRateLimit = errors.New("runner.dispatch_rate_limit must be non-negative")
	// ErrInvalidLogLevel indicates an unrecognized observability log level.
	ErrInvalidLogLevel = errors.New("observability.level is not recognized")
	// ErrInvalidTraceMaxAge indicates a non-positive max age while tracing is enabled.
	ErrInvalidTraceMaxAge = errors.New("trace.max_age must be positive when trace.enabled is true")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	runnerErr := c.validateRunner()
	if runnerErr != nil {
		return runnerErr
	}

	obsErr := c.validateObservability()
	if obsErr != nil {
		return obsErr
	}

	return c.validateTrace()
}

func (c *Config) validateRunner() error {
	if c.Runner.WorkerPoolSize < 0 {
		return ErrInvalidWorkerPoolSize
	}

	if c.Runner.DispatchRateLimit < 0 {
		return ErrInvalidDispatchRateLimit
	}

	return nil
}

func (c *Config) validateObservability() error {
	if _, ok := validLogLevels[c.Observability.Level]; !ok {
		return ErrInvalidLogLevel
	}

	return nil
}

func (c *Config) validateTrace() error {
	if c.Trace.Enabled && c.Trace.MaxAge <= 0 {
		return ErrInvalidTraceMaxAge
	}

	return nil
}
