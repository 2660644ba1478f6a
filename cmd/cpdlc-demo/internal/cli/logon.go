package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skiselkov/cpdlc/cmd/cpdlc-demo/internal/config"
)

type logonCmd struct{}

func newLogonCmd() *logonCmd { return &logonCmd{} }

func (c *logonCmd) Command() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "logon",
		Short: "Connect and perform a LOGON exchange, then hold the link open.",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := flagBool(cmd, "verbose")
			if err != nil {
				return err
			}
			configPath, err := flagString(cmd, "config")
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(verbose)
			cl := buildClient(cfg, logger)
			defer cl.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cl.Logon(ctx, cfg.LogonData, cfg.Callsign, cfg.Authority)

			if err := waitForLogon(ctx, cl, wait); err != nil {
				return err
			}
			logger.Info("logon complete", "callsign", cfg.Callsign, "authority", cfg.Authority)

			<-ctx.Done()
			logger.Info("shutting down")
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for LOGON to complete")
	return cmd
}
