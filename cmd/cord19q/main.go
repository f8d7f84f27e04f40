// Package main provides the cord19q CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its error to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(stderr, "Error: %s\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "cord19q <corpus-root>",
		Short: "Build articles.db from a CORD-19 corpus",
		Long: `cord19q rebuilds a SQLite database of articles and sections from a
CORD-19 corpus root containing metadata.csv and an articles/ directory of
full-text JSON documents.

The output database is replaced on every run. Its location comes from the
global config (~/.config/cord19q/config.yml) or CORD19Q_OUTPUT_DIR, and
defaults to ~/.cord19/models/articles.db.`,
		Args:          cobra.ExactArgs(1),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), args[0], stdout, stderr)
		},
	}
}
