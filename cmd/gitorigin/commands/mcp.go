package commands

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitorigin/pkg/config"
	"github.com/Sumatoshi-tech/gitorigin/pkg/gitcli"
	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
	"github.com/Sumatoshi-tech/gitorigin/pkg/mcp"
	"github.com/Sumatoshi-tech/gitorigin/pkg/observability"
)

const flagDiagnosticsAddr = "diagnostics-addr"

func newMCPCommand(opts *rootOptions) *cobra.Command {
	var diagnosticsAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server on stdio",
		Long: `Start a Model Context Protocol server on stdio. The server exposes
gitorigin_creation_date and gitorigin_creation_dates; every call names its own
repository, so --repo is ignored here.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.settings(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed(flagDiagnosticsAddr) {
				cfg.Telemetry.DiagnosticsAddr = diagnosticsAddr
			}

			return runMCP(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&diagnosticsAddr, flagDiagnosticsAddr, "",
		"serve /healthz, /readyz and Prometheus /metrics on this address")

	return cmd
}

func runMCP(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	obsCfg, err := observabilityConfig(cfg, observability.ModeMCP)
	if err != nil {
		return err
	}

	// Stdout carries the protocol, so logs are always JSON on stderr.
	obsCfg.LogJSON = true
	obsCfg.Prometheus = cfg.Telemetry.DiagnosticsAddr != ""

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	sess := &session{cfg: cfg, providers: providers, logger: providers.Logger}
	defer sess.Close(ctx)

	sess.metrics, err = observability.NewResolverMetrics(providers.Meter)
	if err != nil {
		return err
	}

	toolMetrics, err := observability.NewToolMetrics(providers.Meter)
	if err != nil {
		return err
	}

	if cfg.Logging.QueryLog != "" {
		var closer io.Closer

		sess.queryLog, closer, err = observability.OpenQueryLog(cfg.Logging.QueryLog)
		if err != nil {
			return err
		}

		sess.closers = append(sess.closers, closer)
	}

	if cfg.Telemetry.DiagnosticsAddr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(ctx, cfg.Telemetry.DiagnosticsAddr,
			providers.MetricsHandler, providers.Logger, backendReady(cfg.Repository))
		if diagErr != nil {
			return diagErr
		}
		defer diag.Close(ctx)

		providers.Logger.InfoContext(ctx, "diagnostics server listening", "addr", diag.Addr())
	}

	server := mcp.NewServer(mcp.ServerDeps{
		Logger:      providers.Logger,
		Metrics:     toolMetrics,
		Tracer:      providers.Tracer,
		OpenQuerier: sess.openerFor(cfg.Repository),
		Resolver:    sess.resolverOptions(),
	})

	providers.Logger.InfoContext(ctx, "mcp server started", "tools", server.ListToolNames())

	return server.Run(ctx)
}

// openerFor returns the MCP querier opener for the configured backend, with
// every query routed through the query log.
func (s *session) openerFor(repoCfg config.RepositoryConfig) mcp.QuerierOpener {
	return func(repoPath string) (history.Querier, func(), error) {
		if repoCfg.Backend == config.BackendGit {
			querier, err := gitcli.New(repoPath, repoCfg.GitBinary)
			if err != nil {
				return nil, nil, err
			}

			return history.TraceQuerier(querier, s.queryLog), func() {}, nil
		}

		querier, release, err := mcp.OpenLibgit2Querier(repoPath)
		if err != nil {
			return nil, nil, err
		}

		return history.TraceQuerier(querier, s.queryLog), release, nil
	}
}

// backendReady reports the git backend unavailable when its binary cannot be
// found. The libgit2 backend is linked in and always ready.
func backendReady(repoCfg config.RepositoryConfig) observability.ReadyCheck {
	return func(context.Context) error {
		if repoCfg.Backend != config.BackendGit {
			return nil
		}

		_, err := exec.LookPath(repoCfg.GitBinary)

		return err
	}
}
