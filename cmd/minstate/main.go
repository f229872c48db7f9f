package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/minstate/internal/config"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "minstate",
		Short: "A minimal observable-state container",
		Long: `minstate is a small observable state container for Go.

Writes to a state notify the listeners of the written key and the
wildcard listeners. This tool runs the bundled todo example:

  • demo replays a scripted session and prints every render
  • inspect serves the live state over HTTP and websocket`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: minstate.yaml or minstate.json in the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "Log every state write")

	rootCmd.AddCommand(
		demoCmd(flags),
		inspectCmd(flags),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig reads the config named by --config, or the one in the
// working directory, falling back to defaults when there is none.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(".")
		if errors.Is(err, config.ErrNotFound) {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if flags.debug {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := cfg.Logger(w)
	slog.SetDefault(logger)
	return logger
}
