package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".trakka"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for trakka settings.
const envPrefix = "TRAKKA"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// defaultWorkerPoolSize is unbounded: one goroutine per dispatched task.
const defaultWorkerPoolSize = 0

// defaultDispatchRateLimit is unlimited dispatch throughput.
const defaultDispatchRateLimit = 0

// defaultTraceMaxAge bounds how long a run-journal file is kept.
const defaultTraceMaxAge = 24 * time.Hour

// defaultTraceMaxSizeMB bounds the run-journal file size before rotation.
const defaultTraceMaxSizeMB = 100

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("runner.keep_going", false)
	viperCfg.SetDefault("runner.outdated", false)
	viperCfg.SetDefault("runner.worker_pool_size", defaultWorkerPoolSize)
	viperCfg.SetDefault("runner.dispatch_rate_limit", defaultDispatchRateLimit)

	viperCfg.SetDefault("observability.level", "info")
	viperCfg.SetDefault("observability.format", "json")
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.diagnostics_addr", "")

	viperCfg.SetDefault("trace.enabled", false)
	viperCfg.SetDefault("trace.directory", "/tmp/trakka-trace")
	viperCfg.SetDefault("trace.max_age", defaultTraceMaxAge.String())
	viperCfg.SetDefault("trace.max_size_mb", defaultTraceMaxSizeMB)
}
