// Package cli implements the classlite command line: serve runs the review
// server, render previews a review bundle in the terminal.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/andukdahacker/classlite-sub004/internal/config"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "classlite",
		Short: "Anchored feedback review server",
		Long: `classlite keeps teacher feedback anchored to a student's essay.

It validates each annotation's anchor against the current text, splits the
text into highlightable segments and keeps the highlight in sync between the
text and the feedback panel.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to the YAML configuration file")

	root.AddCommand(newServeCommand(), newRenderCommand(), newVersionCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads --config, or returns the defaults when it is unset.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newLogger returns a text logger on w whose level follows lv.
func newLogger(w io.Writer, lv *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv}))
}
