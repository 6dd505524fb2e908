package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/src-d/enry/v2"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/gitorigin/pkg/config"
	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
	"github.com/Sumatoshi-tech/gitorigin/pkg/observability"
)

// ErrBatchFailures is returned when at least one path could not be resolved.
var ErrBatchFailures = errors.New("some paths could not be resolved")

const (
	flagWorkers = "workers"
	flagOutput  = "output"
)

// batchRecord is one output row.
type batchRecord struct {
	Path     string        `json:"path"               yaml:"path"`
	Language string        `json:"language,omitempty" yaml:"language,omitempty"`
	Found    bool          `json:"found"              yaml:"found"`
	Date     string        `json:"date,omitempty"     yaml:"date,omitempty"`
	Origin   string        `json:"origin,omitempty"   yaml:"origin,omitempty"`
	Commit   string        `json:"commit,omitempty"   yaml:"commit,omitempty"`
	Hops     []history.Hop `json:"hops,omitempty"     yaml:"hops,omitempty"`
	Error    string        `json:"error,omitempty"    yaml:"error,omitempty"`
}

func newBatchCommand(opts *rootOptions) *cobra.Command {
	var (
		workers int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "batch [paths...]",
		Short: "Resolve creation dates for many paths",
		Long: `Resolve creation dates for many paths in parallel. Paths are read from the
arguments, or one per line from stdin when no arguments are given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed(flagWorkers) {
				cfg.Batch.Workers = workers
			}

			if cmd.Flags().Changed(flagOutput) {
				cfg.Batch.Output = output
			}

			err = cfg.Validate()
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				paths, err = readPaths(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			return runBatch(cmd, cfg, paths)
		},
	}

	cmd.Flags().IntVar(&workers, flagWorkers, config.DefaultBatchWorkers, "parallel resolvers, 0 for one per CPU")
	cmd.Flags().StringVarP(&output, flagOutput, "o", config.DefaultBatchOutput, "output format: table, json, yaml or html")

	return cmd
}

func readPaths(r io.Reader) ([]string, error) {
	var paths []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}

	return paths, nil
}

func runBatch(cmd *cobra.Command, cfg *config.Config, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx, cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	paths := make([]string, len(args))

	for i, arg := range args {
		paths[i], err = sess.repoRelative(arg)
		if err != nil {
			return err
		}
	}

	results, err := history.ResolveAll(ctx, paths, history.BatchOptions{
		Workers:    cfg.Batch.Workers,
		NewQuerier: sess.newQuerier,
		Resolver:   sess.resolverOptions(),
	})
	if err != nil {
		return err
	}

	records := make([]batchRecord, len(results))
	failures := 0

	for i, res := range results {
		sess.noteOutcome(ctx, res.Path, res.Found, res.Err)

		records[i] = toRecord(res)
		if res.Err != nil {
			failures++
		}
	}

	err = writeRecords(cmd.OutOrStdout(), cfg.Batch.Output, records)
	if err != nil {
		return err
	}

	if failures > 0 {
		return fmt.Errorf("%w: %d of %d", ErrBatchFailures, failures, len(records))
	}

	return nil
}

func toRecord(res history.BatchResult) batchRecord {
	record := batchRecord{
		Path:     res.Path,
		Language: enry.GetLanguage(path.Base(res.Path), nil),
		Found:    res.Found,
	}

	if res.Err != nil {
		record.Error = res.Err.Error()

		return record
	}

	if res.Found {
		record.Date = res.Creation.Date
		record.Origin = res.Creation.Origin
		record.Commit = string(res.Creation.Commit)
		record.Hops = res.Creation.Hops
	}

	return record
}

func writeRecords(w io.Writer, format string, records []batchRecord) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(records)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case config.OutputHTML:
		return renderChart(w, records)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()

		err := enc.Encode(records)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return nil
	default:
		_, err := io.WriteString(w, renderTable(records)+"\n")

		return err
	}
}

func renderTable(records []batchRecord) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"Path", "Language", "Date", "Origin", "Renames", "Commit"})

	var found, untracked, failed int

	for _, rec := range records {
		switch {
		case rec.Error != "":
			failed++

			tbl.AppendRow(table.Row{rec.Path, rec.Language, "error", rec.Error, "", ""})
		case !rec.Found:
			untracked++

			tbl.AppendRow(table.Row{rec.Path, rec.Language, "-", "untracked", "", ""})
		default:
			found++

			tbl.AppendRow(table.Row{rec.Path, rec.Language, rec.Date, rec.Origin, len(rec.Hops), shortHash(history.CommitID(rec.Commit))})
		}
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%s resolved, %s untracked, %s failed",
		humanize.Comma(int64(found)), humanize.Comma(int64(untracked)), humanize.Comma(int64(failed)))})

	return tbl.Render()
}
