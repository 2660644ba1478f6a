package client

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/skiselkov/cpdlc"
	"github.com/stretchr/testify/require"
)

func newTestClient(isATC bool) *Client {
	cfg := Config{
		Host:  "localhost",
		Port:  17622,
		Clock: clockwork.NewFakeClock(),
	}
	return New(cfg, isATC)
}

func TestLogonStatusString(t *testing.T) {
	require.Equal(t, "None", None.String())
	require.Equal(t, "Complete", Complete.String())
	require.Equal(t, "Unknown", LogonStatus(99).String())
}

func TestSendMsgBeforeLogonReturnsInvalidToken(t *testing.T) {
	c := newTestClient(false)
	msg := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	require.Equal(t, InvalidSendToken, c.SendMsg(msg))
}

func TestGetMsgStatusUnknownTokenIsInvalid(t *testing.T) {
	c := newTestClient(false)
	require.Equal(t, InvalidToken, c.GetMsgStatus(12345))
}

func TestRecvMsgEmptyInbox(t *testing.T) {
	c := newTestClient(false)
	_, ok := c.RecvMsg()
	require.False(t, ok)
}

func TestIsATCReflectsConfig(t *testing.T) {
	require.True(t, newTestClient(true).IsATC())
	require.False(t, newTestClient(false).IsATC())
}

func TestEnqueueLockedAssignsMonotonicMIN(t *testing.T) {
	c := newTestClient(false)
	c.mu.Lock()
	m1 := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	c.enqueueLocked(m1, false)
	m2 := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	c.enqueueLocked(m2, false)
	c.mu.Unlock()

	require.Equal(t, uint32(1), m1.MIN)
	require.Equal(t, uint32(2), m2.MIN)
}

func TestSendMsgStampsFromAndToFromCurrentAuthority(t *testing.T) {
	c := newTestClient(false)
	c.mu.Lock()
	c.logonStatus = Complete
	c.from = "N12345"
	c.to = "KZOA"
	c.mu.Unlock()

	msg := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	tok := c.SendMsg(msg)
	require.NotEqual(t, InvalidSendToken, tok)

	c.mu.Lock()
	require.Len(t, c.sendingQ, 1)
	entry := c.sendingQ[0]
	c.mu.Unlock()
	require.True(t, entry.tracked)
	require.Equal(t, Sending, entry.status)

	sent, _, err := cpdlc.Decode(entry.payload, cpdlc.DefaultCatalog)
	require.NoError(t, err)
	require.Equal(t, "N12345", sent.From)
	require.Equal(t, "KZOA", sent.To)
}

func TestGetMsgStatusResolvesOnceThenInvalid(t *testing.T) {
	c := newTestClient(false)
	c.mu.Lock()
	c.logonStatus = Complete
	c.from, c.to = "N12345", "KZOA"
	c.mu.Unlock()

	tok := c.SendMsg(cpdlc.AllocMessage(cpdlc.PacketCPDLC))
	require.NotEqual(t, InvalidSendToken, tok)

	c.mu.Lock()
	c.sentTrack[tok].status = Sent
	c.mu.Unlock()

	require.Equal(t, Sent, c.GetMsgStatus(tok))
	require.Equal(t, InvalidToken, c.GetMsgStatus(tok), "status must be consumed after resolving")
}

func TestLogoffWithFromSendsSoftLogoff(t *testing.T) {
	c := newTestClient(false)
	c.mu.Lock()
	c.logonStatus = Complete
	c.to = "KZOA"
	c.mu.Unlock()

	c.Logoff("N12345")

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.sendingQ, 1)
	require.Equal(t, Complete, c.logonStatus, "soft logoff must not tear down the worker")
}

func TestLogoffWithoutFromTearsDown(t *testing.T) {
	c := newTestClient(false)
	c.mu.Lock()
	c.logonStatus = Complete
	c.mu.Unlock()

	c.Logoff("")

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, None, c.logonStatus)
}
