package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/skiselkov/cpdlc"
)

var (
	keyEndSvc  = cpdlc.TypeKey{Num: 161}
	keyNDA     = cpdlc.TypeKey{Num: 160}
	keyNCDA    = cpdlc.TypeKey{Num: 63}
	keyVersion = cpdlc.TypeKey{Num: 79}
)

// errPeerClosed signals a clean peer-initiated close: spec 4.5.9 says
// this sets logon_status = None with NO failure text, unlike every other
// path through this loop.
var errPeerClosed = errors.New("peer closed connection")

// runWorker is the client's single background goroutine: it reconnects
// with exponential backoff, grounded on gnmitunnel.Client.Run's own
// "connect, backoff on failure, reset on success" loop.
func (c *Client) runWorker(ctx context.Context) {
	defer c.wg.Done()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff
	bo.MaxElapsedTime = 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := c.connectAndServe(ctx, bo)

		c.mu.Lock()
		if errors.Is(err, errPeerClosed) {
			c.failureText = ""
		} else if err != nil {
			c.failureText = err.Error()
		}
		c.logonStatus = None
		c.cfg.Metrics.setLinkState(None)
		c.mu.Unlock()

		if err == nil {
			return // ctx cancelled cleanly
		}
		c.cfg.Metrics.incReconnect()
		c.cfg.Logger.Warn("cpdlc link dropped", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(bo.NextBackOff()):
		}
	}
}

// connectAndServe resolves the configured host, connects, optionally
// performs TLS, logs on, and then runs the send/receive loop until the
// link drops or ctx is cancelled. Once the link is up it resets bo, so
// the next reconnect starts again from the initial backoff interval. A
// nil return means ctx was cancelled cleanly; any other return is a
// reconnect-worthy failure.
func (c *Client) connectAndServe(ctx context.Context, bo backoff.BackOff) error {
	c.mu.Lock()
	c.logonStatus = ConnectingLink
	c.cfg.Metrics.setLinkState(ConnectingLink)
	c.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	conn, err := dialOrdered(connectCtx, c.cfg.Host, c.cfg.Port)
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.logonStatus = HandshakingLink
	c.cfg.Metrics.setLinkState(HandshakingLink)
	c.mu.Unlock()

	var rw net.Conn = conn
	if wantsTLS(c.cfg.Host, c.cfg.TLS) {
		tlsCfg, err := buildTLSConfig(c.cfg.Host, c.cfg.TLS)
		if err != nil {
			return fmt.Errorf("tls config: %w", err)
		}
		hsCtx, hsCancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		tc, err := tlsHandshake(hsCtx, conn, tlsCfg)
		hsCancel()
		if err != nil {
			return fmt.Errorf("tls handshake: %w", err)
		}
		rw = tc
	}
	bo.Reset()

	c.mu.Lock()
	c.logonStatus = LinkAvail
	c.lastIO = c.cfg.Clock.Now()
	c.cfg.Metrics.setLinkState(LinkAvail)
	if c.wantLogon {
		logon := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
		logon.SetFrom(c.from)
		logon.SetTo(c.to)
		logon.SetLogon(c.logonData)
		c.enqueueLocked(logon, false)
		c.logonStatus = InProg
		c.cfg.Metrics.setLinkState(InProg)
	}
	c.mu.Unlock()

	return c.serve(ctx, rw)
}

type readResult struct {
	data []byte
	err  error
}

// readerLoop feeds raw read chunks to out, applying RX bitrate pacing if
// configured (spec 4.5.5). It owns no client state and needs no lock.
func readerLoop(conn net.Conn, cfg Config, out chan<- readResult) {
	const maxChunk = 4096
	buf := make([]byte, maxChunk)
	for {
		n := len(buf)
		if cfg.RXBitrate >= 0 {
			capBytes := cfg.RXBitrate * 40 / 1000 / 8
			if capBytes < 1 {
				capBytes = 1
			}
			if capBytes < n {
				n = capBytes
			}
			cfg.Clock.Sleep(40 * time.Millisecond)
		}
		read, err := conn.Read(buf[:n])
		if read > 0 {
			chunk := make([]byte, read)
			copy(chunk, buf[:read])
			out <- readResult{data: chunk}
		}
		if err != nil {
			out <- readResult{err: err}
			return
		}
	}
}

// serve runs the send/receive loop for one established link (spec
// 4.5.5-4.5.8). It returns when the link should be dropped.
func (c *Client) serve(ctx context.Context, conn net.Conn) error {
	readCh := make(chan readResult, 8)
	go readerLoop(conn, c.cfg, readCh)

	ticker := c.cfg.Clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var inbuf []byte

	for {
		select {
		case <-ctx.Done():
			return nil

		case r := <-readCh:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					return errPeerClosed
				}
				return fmt.Errorf("read: %w", r.err)
			}
			if !sanitizeASCII(r.data) {
				return errors.New("bad data on link")
			}
			c.mu.Lock()
			c.lastIO = c.cfg.Clock.Now()
			c.keepalivePending = false
			c.mu.Unlock()
			inbuf = append(inbuf, r.data...)
			for {
				msg, consumed, err := cpdlc.Decode(inbuf, c.cfg.Catalog)
				if errors.Is(err, cpdlc.ErrIncomplete) {
					break
				}
				if err != nil {
					return fmt.Errorf("bad data on link: %w", err)
				}
				inbuf = inbuf[consumed:]
				if drop := c.handleFrame(msg); drop {
					return errors.New("bad data on link")
				}
			}

		case <-ticker.Chan():
			if err := c.drainWrites(conn); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			if drop := c.checkKeepalive(); drop {
				return errors.New("keepalive timeout")
			}
		}
	}
}

// sanitizeASCII reports whether every byte is printable ASCII or one of
// \n \r \t, per spec 4.5.5's input sanitation rule.
func sanitizeASCII(b []byte) bool {
	for _, c := range b {
		if c == '\n' || c == '\r' || c == '\t' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// handleFrame classifies and applies one decoded message (spec 4.5.5,
// 4.5.7, 4.5.8). It returns true if the link should be dropped.
func (c *Client) handleFrame(msg *cpdlc.Message) bool {
	c.mu.Lock()

	switch msg.PacketType {
	case cpdlc.PacketPing, cpdlc.PacketPong:
		c.mu.Unlock()
		return false
	}

	switch c.logonStatus {
	case LinkAvail:
		c.mu.Unlock()
		return false // pre-logon chatter discarded

	case InProg:
		if !msg.IsLogon {
			c.mu.Unlock()
			return false
		}
		if msg.LogonData == "SUCCESS" {
			c.logonStatus = Complete
			c.wantLogon = false
			c.cfg.Metrics.setLinkState(Complete)
			var announce *cpdlc.Message
			if c.cfg.ARINC622 && !c.cfg.IsATC {
				announce = c.buildVersionAnnounceLocked()
			}
			c.mu.Unlock()
			if announce != nil {
				c.mu.Lock()
				c.enqueueLocked(announce, false)
				c.mu.Unlock()
			}
			return false
		}
		c.failureText = "Logon denied"
		c.logonStatus = LinkAvail
		c.cfg.Metrics.setLinkState(LinkAvail)
		c.mu.Unlock()
		return false

	case Complete:
		return c.handleCompleteFrameLocked(msg)

	default:
		c.mu.Unlock()
		return false
	}
}

// handleCompleteFrameLocked implements the current-data-authority gating
// and END_SVC/NDA handover handling. Called with mu held; always unlocks
// before returning.
func (c *Client) handleCompleteFrameLocked(msg *cpdlc.Message) bool {
	if !c.cfg.IsATC && c.to != "" && msg.From != c.to {
		reply := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
		reply.SetFrom(c.from)
		reply.SetTo(msg.From)
		reply.SetMRN(msg.MIN)
		if _, err := reply.AppendSegment(c.cfg.Catalog, cpdlc.Downlink, keyNCDA); err == nil {
			c.enqueueLocked(reply, false)
		}
		c.mu.Unlock()
		return false
	}

	dropLink := false
	if !c.cfg.IsATC {
		for _, seg := range msg.Segments {
			if seg.Template.Dir != cpdlc.Uplink {
				continue
			}
			switch seg.TypeKey() {
			case keyEndSvc:
				if c.nda != "" {
					c.to = c.nda
					c.nda = ""
					c.logonStatus = LinkAvail
					c.wantLogon = true
					c.cfg.Metrics.setLinkState(LinkAvail)
				} else {
					dropLink = true
				}
			case keyNDA:
				if len(seg.Args) > 0 {
					name := icaoNameText(seg.Args[0])
					if name != c.to {
						c.nda = name
					}
				}
			}
		}
	}

	// END_SVC and NDA are still queued for display even when they also
	// tear the link down.
	c.inbox = append(c.inbox, msg)
	cb := c.recvCb
	c.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
	return dropLink
}

func icaoNameText(a cpdlc.Arg) string {
	if a.ICAOName.Function == "" {
		return a.ICAOName.Facility
	}
	return a.ICAOName.Facility + " " + a.ICAOName.Function
}

func (c *Client) buildVersionAnnounceLocked() *cpdlc.Message {
	msg := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	msg.SetFrom(c.from)
	msg.SetTo(c.to)
	segIdx, err := msg.AppendSegment(c.cfg.Catalog, cpdlc.Downlink, keyVersion)
	if err != nil {
		return nil
	}
	if err := msg.SetArg(segIdx, 0, cpdlc.Arg{Kind: cpdlc.ArgVersion, Version: "1"}); err != nil {
		return nil
	}
	return msg
}

// drainWrites writes as much of the head of the sending queue as the
// configured TX bitrate allows (spec 4.5.5), moving fully-drained
// entries to Sent and firing the sent callback with the lock released.
func (c *Client) drainWrites(conn net.Conn) error {
	c.mu.Lock()
	if len(c.sendingQ) == 0 {
		c.mu.Unlock()
		return nil
	}
	if c.cfg.TXBitrate >= 0 {
		if c.cfg.Clock.Now().Sub(c.lastWriteBatch) < 40*time.Millisecond {
			c.mu.Unlock()
			return nil
		}
		c.lastWriteBatch = c.cfg.Clock.Now()
	}
	entry := c.sendingQ[0]
	remaining := entry.payload[entry.sent:]
	n := len(remaining)
	if c.cfg.TXBitrate >= 0 {
		capBytes := c.cfg.TXBitrate * 40 / 1000 / 8
		if capBytes < 1 {
			capBytes = 1
		}
		if capBytes < n {
			n = capBytes
		}
	}
	c.mu.Unlock()

	written, err := conn.Write(remaining[:n])
	c.cfg.Metrics.addBytesSent(written)

	c.mu.Lock()
	c.lastIO = c.cfg.Clock.Now()
	if err != nil {
		entry.status = SendFailed
		c.sendingQ = c.sendingQ[1:]
		cb := c.sentCb
		tok, tracked := entry.token, entry.tracked
		c.mu.Unlock()
		if tracked && cb != nil {
			cb(tok, SendFailed)
		}
		return err
	}
	entry.sent += written
	done := entry.sent >= len(entry.payload)
	if done {
		entry.status = Sent
		c.sendingQ = c.sendingQ[1:]
	}
	cb := c.sentCb
	tok, tracked := entry.token, entry.tracked
	c.mu.Unlock()
	if done && tracked && cb != nil {
		cb(tok, Sent)
	}
	return nil
}

// checkKeepalive enqueues a PING after KeepaliveIdle quiet seconds and
// reports whether the link has been quiet for KeepaliveDrop seconds with
// that PING still unanswered (spec 4.5.6).
func (c *Client) checkKeepalive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logonStatus != Complete {
		return false
	}
	idle := c.cfg.Clock.Now().Sub(c.lastIO)
	if c.keepalivePending && idle >= c.cfg.KeepaliveDrop {
		return true
	}
	if !c.keepalivePending && idle >= c.cfg.KeepaliveIdle {
		ping := cpdlc.AllocMessage(cpdlc.PacketPing)
		c.enqueueLocked(ping, false)
		c.keepalivePending = true
	}
	return false
}

// dialOrdered resolves host to an ordered address list and dials each in
// turn until one succeeds (spec 4.5.3).
func dialOrdered(ctx context.Context, host string, port int) (net.Conn, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %s: no addresses", host)
	}
	var dialer net.Dialer
	var lastErr error
	for _, addr := range addrs {
		target := net.JoinHostPort(addr.IP.String(), strconv.Itoa(port))
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all addresses failed, last error: %w", lastErr)
}
