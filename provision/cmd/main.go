// Command repoprov creates a repository on GitHub,
// GitLab or Bitbucket Server and commits a rendered
// Streamlit starter set into it, one commit per file.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := newRootCmd(&app{
		out:    os.Stdout,
		errOut: os.Stderr,
		getenv: os.Getenv,
	})
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}

// app carries the process environment so commands can
// be exercised in tests.
type app struct {
	out     io.Writer
	errOut  io.Writer
	getenv  func(string) string
	verbose bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "repoprov",
		Short: "Provision a repository with a starter application",
		Long: `repoprov creates a new repository on a source-control host and
commits a rendered Streamlit starter set into it, one commit per file.

The run stops at the first failed step. Nothing is rolled back: the
report names the failed step and the files already committed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(
				a.errOut,
				&slog.HandlerOptions{Level: level},
			)))
		},
	}

	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().BoolVarP(
		&a.verbose, "verbose", "v", false,
		"Enable debug logging",
	)

	root.AddCommand(
		newProvisionCmd(a),
		newRenderCmd(a),
	)

	return root
}
