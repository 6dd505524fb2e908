package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitorigin/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".gitorigin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultRepositoryPath, cfg.Repository.Path)
	assert.Equal(t, config.BackendLibgit2, cfg.Repository.Backend)
	assert.Equal(t, config.DefaultGitBinary, cfg.Repository.GitBinary)
	assert.Equal(t, "%Y", cfg.Resolver.DateFormat)
	assert.Zero(t, cfg.Resolver.MaxHops)
	assert.Zero(t, cfg.Batch.Workers)
	assert.Equal(t, config.OutputTable, cfg.Batch.Output)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.QueryLog)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.InDelta(t, config.DefaultSampleRatio, cfg.Telemetry.SampleRatio, 0.0001)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
repository:
  path: /srv/joomla
  backend: git
resolver:
  date_format: "%Y-%m-%d"
  max_hops: 20
batch:
  workers: 4
  output: json
logging:
  level: debug
  json: true
  query_log: /tmp/gitorigin.log
telemetry:
  otlp_endpoint: localhost:4317
  otlp_insecure: true
  sample_ratio: 0.25
  diagnostics_addr: 127.0.0.1:9464
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/joomla", cfg.Repository.Path)
	assert.Equal(t, config.BackendGit, cfg.Repository.Backend)
	assert.Equal(t, "%Y-%m-%d", cfg.Resolver.DateFormat)
	assert.Equal(t, 20, cfg.Resolver.MaxHops)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, config.OutputJSON, cfg.Batch.Output)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "/tmp/gitorigin.log", cfg.Logging.QueryLog)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.True(t, cfg.Telemetry.OTLPInsecure)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 0.0001)
	assert.Equal(t, "127.0.0.1:9464", cfg.Telemetry.DiagnosticsAddr)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("GITORIGIN_RESOLVER_DATE_FORMAT", "%Y-%m")
	t.Setenv("GITORIGIN_REPOSITORY_BACKEND", "git")

	cfg, err := config.LoadConfig(writeConfig(t, "resolver:\n  date_format: \"%d\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "%Y-%m", cfg.Resolver.DateFormat)
	assert.Equal(t, config.BackendGit, cfg.Repository.Backend)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "resolver: [unclosed"))
	require.Error(t, err)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "repository:\n  backend: svn\n"))
	require.ErrorIs(t, err, config.ErrInvalidBackend)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() config.Config {
		return config.Config{
			Repository: config.RepositoryConfig{Backend: config.BackendLibgit2},
			Resolver:   config.ResolverConfig{DateFormat: "%Y"},
			Batch:      config.BatchConfig{Output: config.OutputTable},
			Telemetry:  config.TelemetryConfig{SampleRatio: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "backend", mutate: func(c *config.Config) { c.Repository.Backend = "hg" }, wantErr: config.ErrInvalidBackend},
		{name: "date format", mutate: func(c *config.Config) { c.Resolver.DateFormat = "" }, wantErr: config.ErrInvalidDateFormat},
		{name: "max hops", mutate: func(c *config.Config) { c.Resolver.MaxHops = -1 }, wantErr: config.ErrInvalidMaxHops},
		{name: "workers", mutate: func(c *config.Config) { c.Batch.Workers = -2 }, wantErr: config.ErrInvalidWorkers},
		{name: "output", mutate: func(c *config.Config) { c.Batch.Output = "xml" }, wantErr: config.ErrInvalidOutput},
		{name: "sample ratio", mutate: func(c *config.Config) { c.Telemetry.SampleRatio = 1.5 }, wantErr: config.ErrInvalidSampleRatio},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
