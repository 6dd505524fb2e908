package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
)

// handleCreationDate processes gitorigin_creation_date tool calls.
func (s *Server) handleCreationDate(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CreationDateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRepoPath(input.RepoPath)
	if err != nil {
		return errorResult(err)
	}

	filePath, err := cleanFilePath(input.Path)
	if err != nil {
		return errorResult(err)
	}

	querier, release, err := s.openQuerier(input.RepoPath)
	if err != nil {
		return errorResult(fmt.Errorf("%w: %w", ErrNotGitRepo, err))
	}

	if release != nil {
		defer release()
	}

	resolver := history.NewResolver(querier, s.resolverOptions(input.DateFormat))

	creation, found, err := resolver.ResolveFrom(ctx, filePath, history.CommitID(input.FromCommit))
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(newOutput(filePath, creation, found, nil))
}

// handleCreationDates processes gitorigin_creation_dates tool calls.
func (s *Server) handleCreationDates(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CreationDatesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRepoPath(input.RepoPath)
	if err != nil {
		return errorResult(err)
	}

	if len(input.Paths) > MaxBatchPaths {
		return errorResult(fmt.Errorf("%w: %d (max %d)", ErrTooManyPaths, len(input.Paths), MaxBatchPaths))
	}

	paths := make([]string, len(input.Paths))

	for i, p := range input.Paths {
		paths[i], err = cleanFilePath(p)
		if err != nil {
			return errorResult(err)
		}
	}

	results, err := history.ResolveAll(ctx, paths, history.BatchOptions{
		Workers: input.Workers,
		NewQuerier: func() (history.Querier, func(), error) {
			return s.openQuerier(input.RepoPath)
		},
		Resolver: s.resolverOptions(input.DateFormat),
	})
	if err != nil {
		return errorResult(err)
	}

	outputs := make([]CreationDateOutput, len(results))
	for i, res := range results {
		outputs[i] = newOutput(res.Path, res.Creation, res.Found, res.Err)
	}

	return jsonResult(outputs)
}

func (s *Server) resolverOptions(dateFormat string) history.Options {
	opts := s.resolver
	if dateFormat != "" {
		opts.DateFormat = dateFormat
	}

	return opts
}

func newOutput(filePath string, creation history.Creation, found bool, err error) CreationDateOutput {
	out := CreationDateOutput{Path: filePath, Found: found}

	if err != nil {
		out.Error = err.Error()

		return out
	}

	if found {
		out.Creation = &creation
	}

	return out
}
