// Package commands implements the gitorigin command line.
package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
	"github.com/Sumatoshi-tech/gitorigin/pkg/observability"
)

const shortHashLen = 10

// NewRootCommand builds the gitorigin command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gitorigin [flags] <path>",
		Short: "Print the date a file was first added to its git repository",
		Long: `gitorigin prints when a file entered its git repository, following the
file back through every rename so that moved files report their original
creation date, not the date of the move.

Paths are resolved against the current directory when it lies inside the
repository and against the repository root otherwise. Untracked paths print
nothing and exit successfully.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrigin(cmd, opts, args[0])
		},
	}

	opts.register(cmd)

	cmd.AddCommand(newBatchCommand(opts))
	cmd.AddCommand(newMCPCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func runOrigin(cmd *cobra.Command, opts *rootOptions, arg string) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	sess, err := openSession(ctx, cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	path, err := sess.repoRelative(arg)
	if err != nil {
		return err
	}

	querier, release, err := sess.newQuerier()
	if err != nil {
		return err
	}
	defer release()

	creation, found, err := history.NewResolver(querier, sess.resolverOptions()).Resolve(ctx, path)
	sess.noteOutcome(ctx, path, found, err)

	if err != nil || !found {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), creation.Date)

	if opts.explain {
		writeExplanation(cmd.ErrOrStderr(), creation)
	}

	return nil
}

func writeExplanation(w io.Writer, creation history.Creation) {
	color.New(color.Bold).Fprintf(w, "%s\n", creation.Path)

	for _, hop := range creation.Hops {
		color.New(color.FgYellow).Fprintf(w, "  renamed from %s in %s\n", hop.From, shortHash(hop.Commit))
	}

	color.New(color.FgGreen).Fprintf(w, "  %s as %s in %s on %s\n",
		creation.Change, creation.Origin, shortHash(creation.Commit), creation.Date)
}

func shortHash(id history.CommitID) string {
	s := string(id)
	if len(s) > shortHashLen {
		return s[:shortHashLen]
	}

	return s
}
