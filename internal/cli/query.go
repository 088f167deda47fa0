package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/minigraph/internal/compiler"
	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/ir"
	"github.com/roach88/minigraph/internal/snapshot"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Commit   string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <pattern>",
		Short: "Evaluate a pattern against a snapshot commit",
		Long: `Restore a snapshot commit into a fresh graph and evaluate a pattern
against it. The pattern is a CUE list of template rows using the same field
syntax as programs.

Examples:
  minigraph query --db ./graph.db '[["?s", "likes", "?o"]]'
  minigraph query --db ./graph.db --commit abc123 '[["?x", "is", "mortal"]]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to snapshot database (required)")
	cmd.Flags().StringVar(&opts.Commit, "commit", "head", `commit id to query ("head" for latest)`)
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *QueryOptions, pattern string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	tmpls, err := compiler.CompileTemplates(pattern)
	if err != nil {
		out.Error(ErrCodeCompile, err.Error(), nil)
		return WrapExitError(ExitCommandError, "bad pattern", err)
	}

	store, err := snapshot.Open(opts.Database)
	if err != nil {
		out.Error(ErrCodeSnapshot, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open snapshot store", err)
	}
	defer store.Close()

	id, err := resolveCommit(cmd, store, opts.Commit)
	if err != nil {
		out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "resolve commit", err)
	}

	g := graph.New()
	if err := store.Restore(cmd.Context(), g, id); err != nil {
		out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "restore commit", err)
	}

	envs, err := g.Query(ir.Pattern{Templates: tmpls})
	if err != nil {
		out.Error(ErrCodeExecute, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	result := compiler.QueryResult{Name: "query", Bindings: envs}
	if opts.Format == "json" {
		return out.Success(queryReports([]compiler.QueryResult{result})[0])
	}
	fmt.Fprintf(out.Writer, "commit %s: %d bindings\n", id, len(envs))
	for _, env := range envs {
		fmt.Fprintf(out.Writer, "  %s\n", env.Display())
	}
	return nil
}
