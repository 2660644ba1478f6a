package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skiselkov/cpdlc"
	"github.com/skiselkov/cpdlc/cmd/cpdlc-demo/internal/config"
	"github.com/skiselkov/cpdlc/msglist"
)

type watchCmd struct{}

func newWatchCmd() *watchCmd { return &watchCmd{} }

func (c *watchCmd) Command() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Log on and print every thread update as it happens.",
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

			list := msglist.New(cl, cpdlc.NewRealClock(), cpdlc.DefaultCatalog)
			list.SetUpdateCb(func(ids []msglist.ThrID) {
				for _, id := range ids {
					logThread(logger, list, id)
				}
			})

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cl.Logon(ctx, cfg.LogonData, cfg.Callsign, cfg.Authority)
			if err := waitForLogon(ctx, cl, wait); err != nil {
				return err
			}
			logger.Info("watching for thread updates, press ctrl-c to stop")

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					list.Update()
				}
			}
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for LOGON to complete")
	return cmd
}

func logThread(logger *slog.Logger, list *msglist.List, id msglist.ThrID) {
	status, dirty := list.GetThrStatus(id)
	n := list.GetThrMsgCount(id)
	if n == 0 {
		return
	}
	msg, _, hour, minute, sent, ok := list.GetThrMsg(id, n-1)
	if !ok {
		return
	}
	direction := "received"
	if sent {
		direction = "sent"
	}
	logger.Info("thread update",
		"thread", id,
		"status", status,
		"dirty", dirty,
		"last_direction", direction,
		"stamp", time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04"),
		"from", msg.From,
		"to", msg.To,
	)
}
