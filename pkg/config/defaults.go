package config

// Repository backends.
const (
	BackendLibgit2 = "libgit2"
	BackendGit     = "git"
)

// Batch output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputHTML  = "html"
)

// Repository defaults.
const (
	DefaultRepositoryPath = "."
	DefaultBackend        = BackendLibgit2
	DefaultGitBinary      = "git"
)

// Resolver defaults.
const (
	DefaultDateFormat = "%Y"
	DefaultMaxHops    = 0
)

// Batch defaults. Zero workers means one per CPU.
const (
	DefaultBatchWorkers = 0
	DefaultBatchOutput  = OutputTable
)

// Logging defaults.
const (
	DefaultLogLevel = "warn"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultSampleRatio = 1.0
)
