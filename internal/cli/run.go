package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/minigraph/internal/compiler"
	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/rules"
	"github.com/roach88/minigraph/internal/snapshot"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	From     string
}

// RunReport is the run command's output payload.
type RunReport struct {
	Facts   int           `json:"facts"`
	Rules   []string      `json:"rules,omitempty"`
	Commit  string        `json:"commit,omitempty"`
	Queries []QueryReport `json:"queries,omitempty"`
}

// QueryReport renders one query's bindings with display-form values.
type QueryReport struct {
	Name     string              `json:"name"`
	Bindings []map[string]string `json:"bindings"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program.cue>",
		Short: "Execute a program against a fresh graph",
		Long: `Compile a CUE program and execute it: register its rules, append its
inserts (chaining through the rules), apply its disables, and evaluate its
queries.

With --db, the final fact log is saved as a snapshot commit. With --from,
the graph is first restored from an existing commit ("head" for the most
recent) before the program runs.

Examples:
  minigraph run ./program.cue
  minigraph run ./program.cue --db ./graph.db
  minigraph run ./program.cue --db ./graph.db --from head --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to snapshot database")
	cmd.Flags().StringVar(&opts.From, "from", "", `commit id to restore before running ("head" for latest)`)

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	src, err := os.ReadFile(path)
	if err != nil {
		out.Error(ErrCodeNotFound, fmt.Sprintf("cannot read program: %v", err), nil)
		return WrapExitError(ExitCommandError, "cannot read program", err)
	}

	p, err := compiler.CompileString(string(src), path)
	if err != nil {
		out.Error(ErrCodeCompile, err.Error(), nil)
		return WrapExitError(ExitCommandError, "compile failed", err)
	}

	g := graph.New()

	var store *snapshot.Store
	if opts.Database != "" {
		store, err = snapshot.Open(opts.Database)
		if err != nil {
			out.Error(ErrCodeSnapshot, err.Error(), nil)
			return WrapExitError(ExitCommandError, "open snapshot store", err)
		}
		defer store.Close()
	}

	if opts.From != "" {
		if store == nil {
			return NewExitError(ExitCommandError, "--from requires --db")
		}
		id, err := resolveCommit(cmd, store, opts.From)
		if err != nil {
			out.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "resolve commit", err)
		}
		if err := store.Restore(cmd.Context(), g, id); err != nil {
			out.Error(ErrCodeSnapshot, err.Error(), nil)
			return WrapExitError(ExitCommandError, "restore commit", err)
		}
		slog.Info("restored commit", "commit", id, "facts", g.Len())
	}

	// The registry's meta-watch must outlive any restore: Restore clears
	// the graph and drops every watch with it.
	reg, err := rules.NewRegistry(g)
	if err != nil {
		return WrapExitError(ExitCommandError, "create registry", err)
	}
	defer reg.Close()

	results, err := compiler.Execute(g, reg, p)
	if err != nil {
		out.Error(ErrCodeExecute, err.Error(), nil)
		return WrapExitError(ExitFailure, "execute failed", err)
	}

	report := RunReport{
		Facts:   g.Len(),
		Rules:   reg.Active(),
		Queries: queryReports(results),
	}

	if store != nil {
		id, err := store.Save(cmd.Context(), g)
		if err != nil {
			out.Error(ErrCodeSnapshot, err.Error(), nil)
			return WrapExitError(ExitCommandError, "save snapshot", err)
		}
		report.Commit = id
	}

	if opts.Format == "json" {
		return out.Success(report)
	}
	printRunReport(out, report, g)
	return nil
}

func printRunReport(out *OutputFormatter, report RunReport, g *graph.Graph) {
	fmt.Fprintf(out.Writer, "facts: %d\n", report.Facts)
	if out.Verbose {
		for _, q := range g.Facts() {
			fmt.Fprintf(out.Writer, "  [%d] %s\n", q.Seq, q.Display())
		}
	}
	for _, qr := range report.Queries {
		fmt.Fprintf(out.Writer, "query %s: %d\n", qr.Name, len(qr.Bindings))
		for _, b := range qr.Bindings {
			fmt.Fprintf(out.Writer, "  %v\n", b)
		}
	}
	if report.Commit != "" {
		fmt.Fprintf(out.Writer, "commit: %s\n", report.Commit)
	}
}

func queryReports(results []compiler.QueryResult) []QueryReport {
	out := make([]QueryReport, 0, len(results))
	for _, qr := range results {
		bindings := make([]map[string]string, 0, len(qr.Bindings))
		for _, env := range qr.Bindings {
			m := make(map[string]string, len(env))
			for _, name := range env.Names() {
				m[name] = env[name].Display()
			}
			bindings = append(bindings, m)
		}
		out = append(out, QueryReport{Name: qr.Name, Bindings: bindings})
	}
	return out
}

// resolveCommit maps "head" to the newest commit id and passes explicit
// ids through untouched.
func resolveCommit(cmd *cobra.Command, store *snapshot.Store, ref string) (string, error) {
	if ref != "head" {
		return ref, nil
	}
	head, err := store.Head(cmd.Context())
	if err != nil {
		return "", err
	}
	return head.ID, nil
}
