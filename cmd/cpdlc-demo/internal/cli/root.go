// Package cli implements the cpdlc-demo terminal tool: a small cobra
// program that exercises the client and msglist packages end to end,
// grounded on doublezero's telemetry-data CLI (rootCmd / PersistentFlags /
// subcommand layout, newLogger's tint handler).
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// Run builds and executes the root command, returning the process exit
// code.
func Run() ExitCode {
	rootCmd := &cobra.Command{
		Use:   "cpdlc-demo",
		Short: "Exercise a CPDLC client and message list from a terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("show help: %w", err)
			}
			return nil
		},
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	rootCmd.AddCommand(
		newLogonCmd().Command(),
		newSendCmd().Command(),
		newWatchCmd().Command(),
	)

	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func flagString(cmd *cobra.Command, name string) (string, error) {
	v, err := cmd.Root().PersistentFlags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("get %s flag: %w", name, err)
	}
	return v, nil
}

func flagBool(cmd *cobra.Command, name string) (bool, error) {
	v, err := cmd.Root().PersistentFlags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("get %s flag: %w", name, err)
	}
	return v, nil
}
