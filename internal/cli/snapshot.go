package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/snapshot"
)

// SnapshotOptions holds flags shared by the log and restore commands.
type SnapshotOptions struct {
	*RootOptions
	Database string
}

// CommitReport is one commit in JSON log output.
type CommitReport struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	HeadSeq   int64  `json:"head_seq"`
	QuadCount int    `json:"quad_count"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List snapshot commits, newest first",
		Long: `List every commit in a snapshot database.

Examples:
  minigraph log --db ./graph.db
  minigraph log --db ./graph.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to snapshot database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLog(opts *SnapshotOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	store, err := snapshot.Open(opts.Database)
	if err != nil {
		out.Error(ErrCodeSnapshot, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open snapshot store", err)
	}
	defer store.Close()

	commits, err := store.Log(cmd.Context())
	if err != nil {
		out.Error(ErrCodeSnapshot, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read log", err)
	}

	if opts.Format == "json" {
		reports := make([]CommitReport, 0, len(commits))
		for _, c := range commits {
			reports = append(reports, CommitReport{
				ID: c.ID, CreatedAt: c.CreatedAt, HeadSeq: c.HeadSeq, QuadCount: c.QuadCount,
			})
		}
		return out.Success(reports)
	}

	if len(commits) == 0 {
		fmt.Fprintln(out.Writer, "no commits")
		return nil
	}
	for _, c := range commits {
		fmt.Fprintf(out.Writer, "%s  %s  %d facts (head seq %d)\n",
			c.ID, c.CreatedAt, c.QuadCount, c.HeadSeq)
	}
	return nil
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore <commit>",
		Short: "Restore a commit and print its fact log",
		Long: `Restore a snapshot commit into a fresh graph and print every fact in
log order. Use "head" as the commit to restore the most recent one.

Examples:
  minigraph restore head --db ./graph.db
  minigraph restore abc123 --db ./graph.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to snapshot database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// FactReport is one fact in JSON restore output.
type FactReport struct {
	Seq       int64  `json:"seq"`
	Source    string `json:"source"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Context   string `json:"context"`
}

func runRestore(opts *SnapshotOptions, ref string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	store, err := snapshot.Open(opts.Database)
	if err != nil {
		out.Error(ErrCodeSnapshot, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open snapshot store", err)
	}
	defer store.Close()

	id, err := resolveCommit(cmd, store, ref)
	if err != nil {
		out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "resolve commit", err)
	}

	g := graph.New()
	if err := store.Restore(cmd.Context(), g, id); err != nil {
		out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "restore commit", err)
	}

	if opts.Format == "json" {
		facts := make([]FactReport, 0, g.Len())
		for _, q := range g.Facts() {
			facts = append(facts, FactReport{
				Seq:       q.Seq,
				Source:    q.Source.Display(),
				Attribute: q.Attribute.Display(),
				Value:     q.Value.Display(),
				Context:   q.Context.Display(),
			})
		}
		return out.Success(facts)
	}

	fmt.Fprintf(out.Writer, "commit %s: %d facts\n", id, g.Len())
	for _, q := range g.Facts() {
		fmt.Fprintf(out.Writer, "  [%d] %s\n", q.Seq, q.Display())
	}
	return nil
}
