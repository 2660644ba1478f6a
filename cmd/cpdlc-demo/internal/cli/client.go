package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/skiselkov/cpdlc/client"

	"github.com/skiselkov/cpdlc/cmd/cpdlc-demo/internal/config"
)

// buildClient translates cfg into a client.Client configured with a
// real clock and a freshly registered metrics set, grounded on the demo
// binary's role as the one place spec 9's "instantiate with a config
// struct" CLI surface actually lives.
func buildClient(cfg *config.Config, logger *slog.Logger) *client.Client {
	ccfg := client.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		ARINC622: cfg.ARINC622,
		Logger:   logger,
		Metrics:  client.NewMetrics(prometheus.NewRegistry(), nil),
		TLS: client.TLSConfig{
			CAFile:              cfg.TLS.CAFile,
			CertFile:            cfg.TLS.CertFile,
			KeyFile:             cfg.TLS.KeyFile,
			CertPEM:             []byte(cfg.TLS.CertPEM),
			KeyPEM:              []byte(cfg.TLS.KeyPEM),
			KeyPassword:         cfg.TLS.KeyPassword,
			SkipVerify:          cfg.TLS.SkipVerify,
			UnencryptedLoopback: cfg.TLS.UnencryptedLoopback,
		},
	}
	return client.New(ccfg, cfg.IsATC)
}

// waitForLogon polls cl's logon status until it reaches client.Complete,
// the logon is denied, the status returns to client.None after having
// started (a failure), or timeout elapses.
func waitForLogon(ctx context.Context, cl *client.Client, timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	started := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			status, reason := cl.LogonStatusInfo()
			return fmt.Errorf("timed out waiting for logon (status=%s reason=%q)", status, reason)
		case <-ticker.C:
			status, reason := cl.LogonStatusInfo()
			if status == client.Complete {
				return nil
			}
			if status != client.None {
				started = true
			} else if started {
				return fmt.Errorf("link failed before logon completed: %q", reason)
			}
			if status == client.LinkAvail && reason == "Logon denied" {
				return fmt.Errorf("logon failed: %s", reason)
			}
		}
	}
}
