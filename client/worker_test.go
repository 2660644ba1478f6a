package client

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/skiselkov/cpdlc"
	"github.com/stretchr/testify/require"
)

func loggedOnClient(isATC bool, clk clockwork.Clock) *Client {
	cfg := Config{
		Host:  "localhost",
		Port:  17622,
		Clock: clk,
	}
	c := New(cfg, isATC)
	c.mu.Lock()
	c.logonStatus = Complete
	c.from, c.to = "N12345", "KZOA"
	c.mu.Unlock()
	return c
}

func uplinkMsg(from string, build func(*cpdlc.Message)) *cpdlc.Message {
	m := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	m.SetFrom(from)
	m.SetTo("N12345")
	m.SetMIN(1)
	build(m)
	return m
}

func TestHandleCompleteFrameLockedRepliesNCDAWhenNotFromCurrentAuthority(t *testing.T) {
	c := loggedOnClient(false, clockwork.NewFakeClock())
	msg := uplinkMsg("KOAK", func(m *cpdlc.Message) {
		_, err := m.AppendSegment(c.cfg.Catalog, cpdlc.Uplink, cpdlc.TypeKey{Num: 3}) // ROGER
		require.NoError(t, err)
	})

	c.mu.Lock()
	drop := c.handleCompleteFrameLocked(msg)
	require.False(t, drop)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.sendingQ, 1, "a NOT CURRENT DATA AUTHORITY reply must be queued")
	require.Empty(t, c.inbox, "a gated message must not reach the inbox")
}

func TestHandleCompleteFrameLockedEndServiceSwapsToStagedNDA(t *testing.T) {
	c := loggedOnClient(false, clockwork.NewFakeClock())
	c.mu.Lock()
	c.nda = "KOAK"
	c.mu.Unlock()

	msg := uplinkMsg("KZOA", func(m *cpdlc.Message) {
		_, err := m.AppendSegment(c.cfg.Catalog, cpdlc.Uplink, keyEndSvc)
		require.NoError(t, err)
	})

	c.mu.Lock()
	drop := c.handleCompleteFrameLocked(msg)
	require.False(t, drop)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, "KOAK", c.to)
	require.Empty(t, c.nda)
	require.Equal(t, LinkAvail, c.logonStatus)
	require.True(t, c.wantLogon)
}

func TestHandleCompleteFrameLockedEndServiceWithoutNDADropsLink(t *testing.T) {
	c := loggedOnClient(false, clockwork.NewFakeClock())
	received := make(chan *cpdlc.Message, 1)
	c.SetMsgRecvCb(func(m *cpdlc.Message) { received <- m })

	msg := uplinkMsg("KZOA", func(m *cpdlc.Message) {
		_, err := m.AppendSegment(c.cfg.Catalog, cpdlc.Uplink, keyEndSvc)
		require.NoError(t, err)
	})

	c.mu.Lock()
	drop := c.handleCompleteFrameLocked(msg)
	require.True(t, drop)

	select {
	case got := <-received:
		require.Equal(t, msg, got, "END_SVC must still be delivered for display even when it drops the link")
	case <-time.After(time.Second):
		t.Fatal("recv callback never fired for the terminating END_SVC")
	}

	m, ok := c.RecvMsg()
	require.True(t, ok)
	require.Equal(t, msg, m)
}

func TestHandleCompleteFrameLockedTracksNextDataAuthority(t *testing.T) {
	c := loggedOnClient(false, clockwork.NewFakeClock())
	msg := uplinkMsg("KZOA", func(m *cpdlc.Message) {
		segIdx, err := m.AppendSegment(c.cfg.Catalog, cpdlc.Uplink, keyNDA)
		require.NoError(t, err)
		require.NoError(t, m.SetArg(segIdx, 0, cpdlc.Arg{Kind: cpdlc.ArgICAOName, ICAOName: cpdlc.ICAOName{Facility: "KOAK", Function: "CTR"}}))
	})

	c.mu.Lock()
	drop := c.handleCompleteFrameLocked(msg)
	require.False(t, drop)

	require.Equal(t, "KOAK CTR", c.GetNDA())
	require.Equal(t, "KZOA", c.GetCDA(), "NDA announcement must not change the current authority")
}

func TestHandleCompleteFrameLockedDeliversToInboxAndCallback(t *testing.T) {
	c := loggedOnClient(false, clockwork.NewFakeClock())
	received := make(chan *cpdlc.Message, 1)
	c.SetMsgRecvCb(func(m *cpdlc.Message) { received <- m })

	msg := uplinkMsg("KZOA", func(m *cpdlc.Message) {
		_, err := m.AppendSegment(c.cfg.Catalog, cpdlc.Uplink, cpdlc.TypeKey{Num: 3}) // ROGER
		require.NoError(t, err)
	})

	c.mu.Lock()
	drop := c.handleCompleteFrameLocked(msg)
	require.False(t, drop)

	select {
	case got := <-received:
		require.Equal(t, msg, got)
	case <-time.After(time.Second):
		t.Fatal("recv callback never fired")
	}

	m, ok := c.RecvMsg()
	require.True(t, ok)
	require.Equal(t, msg, m)
}

func TestCheckKeepalivePingsThenDropsAfterSilence(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := loggedOnClient(false, clk)
	c.cfg.KeepaliveIdle = 300 * time.Second
	c.cfg.KeepaliveDrop = 1800 * time.Second
	c.mu.Lock()
	c.lastIO = clk.Now()
	c.mu.Unlock()

	require.False(t, c.checkKeepalive(), "must not ping before the idle threshold")

	clk.Advance(c.cfg.KeepaliveIdle)
	require.False(t, c.checkKeepalive(), "must not drop, only ping, at the idle threshold")

	c.mu.Lock()
	pingQueued := len(c.sendingQ) == 1 && c.keepalivePending
	c.mu.Unlock()
	require.True(t, pingQueued, "a PING must be enqueued once idle")

	clk.Advance(c.cfg.KeepaliveDrop - c.cfg.KeepaliveIdle)
	require.True(t, c.checkKeepalive(), "must drop once KeepaliveDrop has elapsed with the PING unanswered")
}

func TestCheckKeepaliveResetsOnTraffic(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := loggedOnClient(false, clk)
	c.mu.Lock()
	c.lastIO = clk.Now()
	c.mu.Unlock()

	clk.Advance(c.cfg.KeepaliveIdle)
	require.False(t, c.checkKeepalive())

	c.mu.Lock()
	c.lastIO = clk.Now()
	c.keepalivePending = false
	c.mu.Unlock()

	clk.Advance(c.cfg.KeepaliveDrop)
	require.False(t, c.checkKeepalive(), "fresh traffic resets the keepalive clock")
}

func TestDrainWritesRespectsTXBitratePacing(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := loggedOnClient(false, clk)
	c.cfg.TXBitrate = 2000 // 10 bytes per 40ms batch

	server, clientConn := net.Pipe()
	defer server.Close()
	defer clientConn.Close()

	msg := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	msg.SetFrom("N123456789") // long enough that one capped batch can't finish it
	c.mu.Lock()
	c.enqueueLocked(msg, false)
	entry := c.sendingQ[0]
	c.mu.Unlock()

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := server.Read(buf)
		readDone <- buf[:n]
	}()

	require.NoError(t, c.drainWrites(clientConn))

	select {
	case got := <-readDone:
		require.LessOrEqual(t, len(got), 10, "a single batch must not exceed the bitrate cap")
	case <-time.After(time.Second):
		t.Fatal("drainWrites never wrote anything")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, Sending, entry.status, "a capped batch must not finish the message in one call")
}

func TestDrainWritesMarksSentAndFiresCallback(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c := loggedOnClient(false, clk)

	server, clientConn := net.Pipe()
	defer server.Close()
	defer clientConn.Close()
	go discardReads(server)

	msg := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	msg.SetFrom("N12345")
	var tok uint64
	c.mu.Lock()
	tok = c.enqueueLocked(msg, true)
	c.mu.Unlock()

	sent := make(chan MsgSendStatus, 1)
	c.SetMsgSentCb(func(token uint64, status MsgSendStatus) {
		require.Equal(t, tok, token)
		sent <- status
	})

	require.NoError(t, c.drainWrites(clientConn))

	select {
	case st := <-sent:
		require.Equal(t, Sent, st)
	case <-time.After(time.Second):
		t.Fatal("sent callback never fired")
	}
}

func discardReads(c net.Conn) {
	buf := make([]byte, 4096)
	for {
		if _, err := c.Read(buf); err != nil {
			return
		}
	}
}

func TestDialOrderedConnectsToLoopbackListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := dialOrdered(ctx, "127.0.0.1", port)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case s := <-accepted:
		s.Close()
	case <-time.After(time.Second):
		t.Fatal("listener never accepted the dial")
	}
}

func TestWantsTLSRequiresEncryptionExceptExplicitLoopback(t *testing.T) {
	require.True(t, wantsTLS("cpdlc.example.net", TLSConfig{}))
	require.True(t, wantsTLS("localhost", TLSConfig{}))
	require.False(t, wantsTLS("localhost", TLSConfig{UnencryptedLoopback: true}))
}
