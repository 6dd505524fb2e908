package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitorigin/pkg/config"
)

// Flag names shared by every subcommand.
const (
	flagRepo    = "repo"
	flagFormat  = "format"
	flagBackend = "backend"
	flagConfig  = "config"
	flagLogFile = "log-file"
	flagMaxHops = "max-hops"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
)

// rootOptions holds the persistent flags. A flag overrides the matching
// config value only when it was set on the command line.
type rootOptions struct {
	repo       string
	format     string
	backend    string
	configPath string
	logFile    string
	maxHops    int
	verbose    bool
	quiet      bool
	explain    bool
}

func (o *rootOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&o.repo, flagRepo, "C", config.DefaultRepositoryPath, "repository (or any directory inside it)")
	flags.StringVar(&o.format, flagFormat, config.DefaultDateFormat, "strftime format of the printed date")
	flags.StringVar(&o.backend, flagBackend, config.DefaultBackend, "history backend: libgit2 or git")
	flags.StringVar(&o.configPath, flagConfig, "", "config file (default .gitorigin.yaml in . or $HOME)")
	flags.StringVar(&o.logFile, flagLogFile, "", "append every history query and its output to this file")
	flags.IntVar(&o.maxHops, flagMaxHops, config.DefaultMaxHops, "maximum renames to follow, 0 for no limit")
	flags.BoolVarP(&o.verbose, flagVerbose, "v", false, "verbose output")
	flags.BoolVarP(&o.quiet, flagQuiet, "q", false, "log errors only")

	cmd.Flags().BoolVar(&o.explain, "explain", false, "describe the renames followed on stderr")
}

// settings loads the configuration and applies command-line overrides.
func (o *rootOptions) settings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed(flagRepo) {
		cfg.Repository.Path = o.repo
	}

	if flags.Changed(flagBackend) {
		cfg.Repository.Backend = o.backend
	}

	if flags.Changed(flagFormat) {
		cfg.Resolver.DateFormat = o.format
	}

	if flags.Changed(flagMaxHops) {
		cfg.Resolver.MaxHops = o.maxHops
	}

	if flags.Changed(flagLogFile) {
		cfg.Logging.QueryLog = o.logFile
	}

	switch {
	case o.verbose:
		cfg.Logging.Level = "debug"
	case o.quiet:
		cfg.Logging.Level = "error"
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
