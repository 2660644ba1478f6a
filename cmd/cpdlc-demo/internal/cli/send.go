package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skiselkov/cpdlc"
	"github.com/skiselkov/cpdlc/client"
	"github.com/skiselkov/cpdlc/cmd/cpdlc-demo/internal/config"
)

type sendCmd struct{}

func newSendCmd() *sendCmd { return &sendCmd{} }

func (c *sendCmd) Command() *cobra.Command {
	var typeCode, text string
	var altitudeFeet int
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Log on, send one message, and report its send status.",
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

			dir, key, err := parseTypeCode(typeCode)
			if err != nil {
				return err
			}
			tmpl, ok := cpdlc.DefaultCatalog.Lookup(dir, key)
			if !ok {
				return fmt.Errorf("unknown message type %q", typeCode)
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

			msg := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
			segIdx, err := msg.AppendSegment(cpdlc.DefaultCatalog, dir, key)
			if err != nil {
				return fmt.Errorf("build segment: %w", err)
			}
			if err := fillArgs(msg, segIdx, tmpl, text, altitudeFeet); err != nil {
				return err
			}

			tok := cl.SendMsg(msg)
			logger.Info("enqueued", "type", typeCode, "token", tok)

			for i := 0; i < 50; i++ {
				switch cl.GetMsgStatus(tok) {
				case client.Sending:
					time.Sleep(100 * time.Millisecond)
					continue
				case client.Sent:
					logger.Info("sent")
					return nil
				case client.SendFailed:
					return fmt.Errorf("send failed")
				default:
					return nil
				}
			}
			return fmt.Errorf("timed out waiting for send to resolve")
		},
	}
	cmd.Flags().StringVar(&typeCode, "type", "UM3", "message type code, e.g. UM20 or DM0")
	cmd.Flags().StringVar(&text, "text", "", "freetext argument, if the type takes one")
	cmd.Flags().IntVar(&altitudeFeet, "altitude-feet", 0, "altitude argument in feet, if the type takes one")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for LOGON to complete")
	return cmd
}

// parseTypeCode mirrors the core codec's own DATA type-code grammar
// ("UM20", "DM67b") for the --type flag.
func parseTypeCode(s string) (cpdlc.MsgDirection, cpdlc.TypeKey, error) {
	if len(s) < 3 {
		return 0, cpdlc.TypeKey{}, fmt.Errorf("short type code %q", s)
	}
	var dir cpdlc.MsgDirection
	switch s[:2] {
	case "UM":
		dir = cpdlc.Uplink
	case "DM":
		dir = cpdlc.Downlink
	default:
		return 0, cpdlc.TypeKey{}, fmt.Errorf("bad direction prefix in %q", s)
	}
	rest := s[2:]
	end := len(rest)
	var subtype byte
	if end > 0 {
		last := rest[end-1]
		if last < '0' || last > '9' {
			subtype = last
			end--
		}
	}
	num, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, cpdlc.TypeKey{}, fmt.Errorf("bad type number in %q", s)
	}
	return dir, cpdlc.TypeKey{Num: num, Subtype: subtype}, nil
}

func fillArgs(msg *cpdlc.Message, segIdx int, tmpl *cpdlc.Template, text string, altitudeFeet int) error {
	switch len(tmpl.ArgKinds) {
	case 0:
		return nil
	case 1:
		switch tmpl.ArgKinds[0] {
		case cpdlc.ArgFreetext:
			return msg.SetArg(segIdx, 0, cpdlc.Arg{Kind: cpdlc.ArgFreetext, Freetext: text})
		case cpdlc.ArgAltitude:
			return msg.SetArg(segIdx, 0, cpdlc.Arg{Kind: cpdlc.ArgAltitude, Altitude: cpdlc.Altitude{Feet: altitudeFeet}})
		}
	}
	return fmt.Errorf("message type %s%s needs arguments this demo doesn't build; use the library directly", tmpl.Dir, tmpl.TypeKey)
}
