package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/editstream/internal/config"
	"github.com/vango-dev/editstream/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "editstream",
		Short: "Drive and inspect edit-stream renderers",
		Long: `editstream moves UI updates between a model and a renderer as
ordered streams of stack-machine edits.

  • apply and validate stream files offline
  • record sample sessions from the demo counter
  • serve the demo counter over WebSocket
  • connect an in-memory renderer to a running server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to editstream.json (default: ./editstream.json when present)")

	load := func() (*config.Config, error) {
		return config.Resolve(configPath)
	}

	rootCmd.AddCommand(
		applyCmd(load),
		validateCmd(),
		recordCmd(),
		serveCmd(load),
		connectCmd(load),
		configCmd(load),
		versionCmd(),
	)
	return rootCmd
}

type configLoader func() (*config.Config, error)

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
