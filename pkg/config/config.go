// Package config loads gitorigin settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidBackend     = errors.New("invalid repository backend")
	ErrInvalidDateFormat  = errors.New("date format must not be empty")
	ErrInvalidMaxHops     = errors.New("max hops must not be negative")
	ErrInvalidWorkers     = errors.New("batch workers must not be negative")
	ErrInvalidOutput      = errors.New("invalid batch output format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

const (
	configName = ".gitorigin"
	envPrefix  = "GITORIGIN"
)

// Config holds all gitorigin settings.
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// RepositoryConfig selects the repository and how it is read.
type RepositoryConfig struct {
	Path      string `mapstructure:"path"`
	Backend   string `mapstructure:"backend"`
	GitBinary string `mapstructure:"git_binary"`
}

// ResolverConfig tunes creation-date resolution.
type ResolverConfig struct {
	DateFormat string `mapstructure:"date_format"`
	MaxHops    int    `mapstructure:"max_hops"`
}

// BatchConfig tunes the batch command.
type BatchConfig struct {
	Workers int    `mapstructure:"workers"`
	Output  string `mapstructure:"output"`
}

// LoggingConfig holds logging settings. QueryLog, when set, names a file
// that receives every history query and its output.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	JSON     bool   `mapstructure:"json"`
	QueryLog string `mapstructure:"query_log"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`

	// DiagnosticsAddr, when set, makes the mcp command serve /healthz,
	// /readyz and Prometheus /metrics on this address.
	DiagnosticsAddr string `mapstructure:"diagnostics_addr"`
}

// LoadConfig reads configPath, or .gitorigin.yaml from the working directory
// or the home directory when configPath is empty. GITORIGIN_* environment
// variables override file values, e.g. GITORIGIN_RESOLVER_DATE_FORMAT.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("repository.path", DefaultRepositoryPath)
	viperCfg.SetDefault("repository.backend", DefaultBackend)
	viperCfg.SetDefault("repository.git_binary", DefaultGitBinary)

	viperCfg.SetDefault("resolver.date_format", DefaultDateFormat)
	viperCfg.SetDefault("resolver.max_hops", DefaultMaxHops)

	viperCfg.SetDefault("batch.workers", DefaultBatchWorkers)
	viperCfg.SetDefault("batch.output", DefaultBatchOutput)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)
	viperCfg.SetDefault("logging.query_log", "")

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.diagnostics_addr", "")
}

// Validate checks value ranges. It is called by LoadConfig and again after
// command-line flags are applied.
func (c *Config) Validate() error {
	if !slices.Contains([]string{BackendLibgit2, BackendGit}, c.Repository.Backend) {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Repository.Backend)
	}

	if c.Resolver.DateFormat == "" {
		return ErrInvalidDateFormat
	}

	if c.Resolver.MaxHops < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxHops, c.Resolver.MaxHops)
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Batch.Workers)
	}

	if !slices.Contains([]string{OutputTable, OutputJSON, OutputYAML, OutputHTML}, c.Batch.Output) {
		return fmt.Errorf("%w: %q", ErrInvalidOutput, c.Batch.Output)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}
