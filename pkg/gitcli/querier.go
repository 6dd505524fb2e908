// Package gitcli answers history queries by running the git binary.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
)

// DefaultBinary is the git executable looked up in PATH.
const DefaultBinary = "git"

// Sentinel errors.
var (
	ErrGitNotFound     = errors.New("git executable not found")
	ErrCommandFailed   = errors.New("git command failed")
	ErrInvalidRevision = errors.New("invalid revision")
)

// CommandError is returned when git exits unsuccessfully.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: git %s: %v", ErrCommandFailed, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// Unwrap exposes both ErrCommandFailed and the underlying exec error.
func (e *CommandError) Unwrap() []error {
	return []error{ErrCommandFailed, e.Err}
}

// Querier runs git in a repository directory. It holds no handles and is
// safe for concurrent use.
type Querier struct {
	dir    string
	binary string
}

var _ history.Querier = (*Querier)(nil)

// New returns a Querier running binary (DefaultBinary when empty) in dir.
func New(dir, binary string) (*Querier, error) {
	if binary == "" {
		binary = DefaultBinary
	}

	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGitNotFound, binary, err)
	}

	return &Querier{dir: dir, binary: resolved}, nil
}

// CommitsTouching runs `git log --pretty=format:%H <boundary|HEAD> -- path`
// and returns the hashes earliest first.
func (q *Querier) CommitsTouching(ctx context.Context, path string, boundary history.CommitID) ([]history.CommitID, error) {
	rev := "HEAD"

	if boundary == "" {
		born, err := q.headExists(ctx)
		if err != nil || !born {
			return nil, err
		}
	} else {
		var err error

		rev, err = revision(boundary)
		if err != nil {
			return nil, err
		}
	}

	out, err := q.run(ctx, "log", "--pretty=format:%H", "--end-of-options", rev, "--", path)
	if err != nil {
		return nil, err
	}

	lines := strings.Fields(out)
	slices.Reverse(lines)

	commits := make([]history.CommitID, len(lines))
	for i, line := range lines {
		commits[i] = history.CommitID(line)
	}

	return commits, nil
}

// ChangeRecord runs `git show -M -C --follow --name-status -z` for the
// commit, diffing merges against their first parent. The NUL-separated
// output keeps paths verbatim; history.ParseChangeRecord reads it.
func (q *Querier) ChangeRecord(ctx context.Context, commit history.CommitID, path string) (string, error) {
	rev, err := revision(commit)
	if err != nil {
		return "", err
	}

	out, err := q.run(ctx, "show", "-M", "-C", "--follow", "-m", "--first-parent",
		"--name-status", "-z", "--format=", "--end-of-options", rev, "--", path)
	if err != nil {
		return "", err
	}

	return strings.Trim(out, "\n"), nil
}

// CommitDate runs `git log -1 --date=format:<format> --pretty=format:%cd`.
func (q *Querier) CommitDate(ctx context.Context, commit history.CommitID, path, format string) (string, error) {
	rev, err := revision(commit)
	if err != nil {
		return "", err
	}

	out, err := q.run(ctx, "log", "-1", "--date=format:"+format, "--pretty=format:%cd",
		"--end-of-options", rev, "--", path)
	if err != nil {
		return "", err
	}

	return lastLine(out), nil
}

// Toplevel returns the root of the working tree containing the directory.
func (q *Querier) Toplevel(ctx context.Context) (string, error) {
	out, err := q.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}

func (q *Querier) headExists(ctx context.Context) (bool, error) {
	out, err := q.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD^{commit}")
	if err == nil {
		return strings.TrimSpace(out) != "", nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}

	return false, err
}

// revision rejects commit names git would read as options.
func revision(commit history.CommitID) (string, error) {
	rev := string(commit)
	if rev == "" || strings.HasPrefix(rev, "-") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRevision, rev)
	}

	return rev, nil
}

// run executes git in the repository. Pathspecs are literal, so paths
// holding *, ? or [ name exactly one file.
func (q *Querier) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", q.dir, "-c", "core.quotepath=off", "--literal-pathspecs"}, args...)

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, q.binary, full...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return "", ctxErr
		}

		return "", &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	return stdout.String(), nil
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}

	return ""
}
