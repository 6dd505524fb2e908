package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
)

// Tool name constants.
const (
	ToolNameCreationDate  = "gitorigin_creation_date"
	ToolNameCreationDates = "gitorigin_creation_dates"
)

// MaxBatchPaths bounds the paths accepted by one gitorigin_creation_dates call.
const MaxBatchPaths = 1000

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
	// ErrEmptyFilePath indicates the path parameter is empty.
	ErrEmptyFilePath = errors.New("path parameter is required and must not be empty")
	// ErrFilePathNotRelative indicates a file path escapes the repository.
	ErrFilePathNotRelative = errors.New("path must be relative to the repository root")
	// ErrTooManyPaths indicates the paths parameter exceeds MaxBatchPaths.
	ErrTooManyPaths = errors.New("too many paths")
)

// Input types (auto-generate JSON schemas via struct tags).

// CreationDateInput is the input schema for the gitorigin_creation_date tool.
type CreationDateInput struct {
	DateFormat string `json:"date_format,omitempty" jsonschema:"strftime format for the date (default: %Y)"`
	FromCommit string `json:"from_commit,omitempty" jsonschema:"only search history reachable from this revision"`
	Path       string `json:"path"                  jsonschema:"file path relative to the repository root"`
	RepoPath   string `json:"repo_path"             jsonschema:"absolute path to a Git repository"`
}

// CreationDatesInput is the input schema for the gitorigin_creation_dates tool.
type CreationDatesInput struct {
	DateFormat string   `json:"date_format,omitempty" jsonschema:"strftime format for the dates (default: %Y)"`
	Paths      []string `json:"paths"                 jsonschema:"file paths relative to the repository root"`
	RepoPath   string   `json:"repo_path"             jsonschema:"absolute path to a Git repository"`
	Workers    int      `json:"workers,omitempty"     jsonschema:"parallel resolvers (default: one per CPU)"`
}

// Output types.

// CreationDateOutput is the answer for one path. Creation is nil when the
// path has no history.
type CreationDateOutput struct {
	Path     string            `json:"path"`
	Found    bool              `json:"found"`
	Creation *history.Creation `json:"creation,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateRepoPath(repoPath string) error {
	if repoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(repoPath) {
		return ErrRepoPathNotAbsolute
	}

	info, err := os.Stat(repoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repoPath)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoNotFound, repoPath)
	}

	_, err = os.Stat(filepath.Join(repoPath, ".git"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, repoPath)
	}

	return nil
}

// cleanFilePath returns p as a clean slash-separated repository path.
func cleanFilePath(p string) (string, error) {
	if p == "" {
		return "", ErrEmptyFilePath
	}

	cleaned := path.Clean(filepath.ToSlash(p))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrFilePathNotRelative, p)
	}

	return cleaned, nil
}
