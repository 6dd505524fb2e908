package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/gitorigin/pkg/config"
	"github.com/Sumatoshi-tech/gitorigin/pkg/gitcli"
	"github.com/Sumatoshi-tech/gitorigin/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
	"github.com/Sumatoshi-tech/gitorigin/pkg/observability"
	"github.com/Sumatoshi-tech/gitorigin/pkg/version"
)

// ErrOutsideRepository is returned for absolute paths outside the work tree.
var ErrOutsideRepository = errors.New("path is outside the repository")

const envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

// session is the per-invocation runtime shared by the commands: telemetry,
// the optional query log and the repository work tree.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	metrics   *observability.ResolverMetrics
	queryLog  *slog.Logger
	closers   []io.Closer
	workdir   string
}

func openSession(ctx context.Context, cfg *config.Config, mode observability.AppMode) (*session, error) {
	obsCfg, err := observabilityConfig(cfg, mode)
	if err != nil {
		return nil, err
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	sess := &session{cfg: cfg, providers: providers, logger: providers.Logger}

	sess.metrics, err = observability.NewResolverMetrics(providers.Meter)
	if err != nil {
		sess.Close(ctx)

		return nil, err
	}

	if cfg.Logging.QueryLog != "" {
		queryLog, closer, logErr := observability.OpenQueryLog(cfg.Logging.QueryLog)
		if logErr != nil {
			sess.Close(ctx)

			return nil, logErr
		}

		sess.queryLog = queryLog
		sess.closers = append(sess.closers, closer)
	}

	sess.workdir, err = findWorkdir(ctx, cfg.Repository)
	if err != nil {
		sess.Close(ctx)

		return nil, err
	}

	return sess, nil
}

func observabilityConfig(cfg *config.Config, mode observability.AppMode) (observability.Config, error) {
	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON

	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv(envOTLPEndpoint)
	}

	return obsCfg, nil
}

func findWorkdir(ctx context.Context, repoCfg config.RepositoryConfig) (string, error) {
	if repoCfg.Backend == config.BackendGit {
		querier, err := gitcli.New(repoCfg.Path, repoCfg.GitBinary)
		if err != nil {
			return "", err
		}

		return querier.Toplevel(ctx)
	}

	repo, err := gitlib.OpenRepository(repoCfg.Path)
	if err != nil {
		return "", err
	}
	defer repo.Free()

	workdir, err := repo.Workdir()
	if err != nil {
		return "", err
	}

	return filepath.Clean(workdir), nil
}

// newQuerier opens a backend on the work tree. It satisfies
// history.QuerierFactory; every call returns an independent handle.
func (s *session) newQuerier() (history.Querier, func(), error) {
	if s.cfg.Repository.Backend == config.BackendGit {
		querier, err := gitcli.New(s.workdir, s.cfg.Repository.GitBinary)
		if err != nil {
			return nil, nil, err
		}

		return history.TraceQuerier(querier, s.queryLog), func() {}, nil
	}

	repo, err := gitlib.OpenRepository(s.workdir)
	if err != nil {
		return nil, nil, err
	}

	return history.TraceQuerier(gitlib.NewQuerier(repo), s.queryLog), repo.Free, nil
}

func (s *session) resolverOptions() history.Options {
	return history.Options{
		DateFormat: s.cfg.Resolver.DateFormat,
		MaxHops:    s.cfg.Resolver.MaxHops,
		Logger:     s.logger,
		Tracer:     s.providers.Tracer,
		Metrics:    s.metrics,
	}
}

// noteOutcome records an unresolved path in the process log and, when one
// is open, the query log.
func (s *session) noteOutcome(ctx context.Context, path string, found bool, err error) {
	var malformed *history.MalformedRecordError

	switch {
	case errors.As(err, &malformed):
		s.logger.ErrorContext(ctx, "unexpected change record",
			"path", malformed.Path, "commit", string(malformed.Commit), "record", malformed.Raw)

		if s.queryLog != nil {
			s.queryLog.ErrorContext(ctx, "unexpected change record",
				"path", malformed.Path, "commit", string(malformed.Commit), "record", malformed.Raw)
		}
	case err == nil && !found:
		s.logger.InfoContext(ctx, "not under version control", "path", path)

		if s.queryLog != nil {
			s.queryLog.InfoContext(ctx, "not under version control", "path", path)
		}
	}
}

// repoRelative turns a command-line path into a slash-separated path
// relative to the work tree root. Relative paths are taken from the current
// directory when it lies inside the work tree, and from the root otherwise.
func (s *session) repoRelative(arg string) (string, error) {
	root := canonical(s.workdir)

	if filepath.IsAbs(arg) {
		rel, ok := within(root, canonical(arg))
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrOutsideRepository, arg)
		}

		return rel, nil
	}

	cwd, err := os.Getwd()
	if err == nil {
		if rel, ok := within(root, canonical(filepath.Join(cwd, arg))); ok {
			return rel, nil
		}
	}

	return filepath.ToSlash(filepath.Clean(arg)), nil
}

func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

// canonical resolves symlinks in the longest existing prefix of path, so a
// deleted file still maps onto the real work tree location.
func canonical(path string) string {
	path = filepath.Clean(path)

	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path
	}

	return filepath.Join(canonical(parent), filepath.Base(path))
}

// Close flushes telemetry and closes the query log.
func (s *session) Close(ctx context.Context) {
	for _, closer := range s.closers {
		closeErr := closer.Close()
		if closeErr != nil {
			s.logger.WarnContext(ctx, "close query log failed", "error", closeErr)
		}
	}

	shutdownErr := s.providers.Shutdown(ctx)
	if shutdownErr != nil {
		s.logger.WarnContext(ctx, "observability shutdown failed", "error", shutdownErr)
	}
}
