package client

import (
	"context"
	"sync"
	"time"

	"github.com/skiselkov/cpdlc"
)

// LogonStatus is the connection state machine (spec 4.5.2).
type LogonStatus int

const (
	None LogonStatus = iota
	ConnectingLink
	HandshakingLink
	LinkAvail
	InProg
	Complete
)

func (s LogonStatus) String() string {
	switch s {
	case None:
		return "None"
	case ConnectingLink:
		return "ConnectingLink"
	case HandshakingLink:
		return "HandshakingLink"
	case LinkAvail:
		return "LinkAvail"
	case InProg:
		return "InProg"
	case Complete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// MsgSendStatus is the lifecycle of one enqueued outbound message,
// queried by SendMsg's returned token (spec 4.5.1).
type MsgSendStatus int

const (
	Sending MsgSendStatus = iota
	Sent
	SendFailed
	InvalidToken
)

// InvalidSendToken is returned by SendMsg when the client is not logged on.
const InvalidSendToken uint64 = 0

// AutoFrom, passed to SendMsg, means "stamp From with the logged-on
// identity" rather than a literal sender string.
const AutoFrom = ""

type outboxEntry struct {
	token   uint64
	payload []byte
	sent    int // bytes_sent cursor
	status  MsgSendStatus
	tracked bool
}

// Client is the CPDLC connection worker (spec 4.5). All exported methods
// are safe for concurrent use; state is serialized by mu the way the
// source's single recursive mutex is, except Go's sync.Mutex is not
// reentrant, so internal helpers that assume the lock is already held are
// named with a "Locked" suffix and never call back into a public,
// lock-acquiring method.
type Client struct {
	cfg Config

	mu          sync.Mutex
	logonStatus LogonStatus
	failureText string

	from, to string // identity / current data authority
	nda      string // staged next data authority

	logonData string
	wantLogon bool

	minCounter uint32
	tokenCtr   uint64
	sendingQ   []*outboxEntry
	sentTrack  map[uint64]*outboxEntry
	inbox      []*cpdlc.Message

	sentCb func(token uint64, status MsgSendStatus)
	recvCb func(msg *cpdlc.Message)

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Keepalive and bitrate-pacing bookkeeping, touched only by the
	// worker goroutine under mu.
	lastIO           time.Time
	keepalivePending bool
	lastWriteBatch   time.Time
}

// New allocates a Client with the given configuration. isATC is written
// into cfg.IsATC, replacing whatever value cfg carried.
func New(cfg Config, isATC bool) *Client {
	cfg.IsATC = isATC
	cfg.setDefaults()
	return &Client{
		cfg:       cfg,
		sentTrack: make(map[uint64]*outboxEntry),
	}
}

// SetMsgSentCb installs the callback fired when an outbound message's
// status resolves to Sent or SendFailed. Invoked with the client lock
// released (spec 5).
func (c *Client) SetMsgSentCb(cb func(token uint64, status MsgSendStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentCb = cb
}

// SetMsgRecvCb installs the callback fired for every inbound CPDLC
// message delivered to the inbox. Invoked with the client lock released.
func (c *Client) SetMsgRecvCb(cb func(msg *cpdlc.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvCb = cb
}

// LogonStatusInfo reports the current state and, if set, the
// human-readable reason the link most recently failed or was denied
// (spec 4.5.1, 4.5.9; the reason text is the supplemented
// LastFailure feature from the original implementation).
func (c *Client) LogonStatusInfo() (LogonStatus, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logonStatus, c.failureText
}

// LastFailure returns the most recent human-readable failure reason, or
// "" if the link has never failed.
func (c *Client) LastFailure() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failureText
}

// IsATC reports whether this client was configured for ATC-side gating
// (spec 4.5.7), consulted by msglist's thread status engine (rule 3).
func (c *Client) IsATC() bool {
	return c.cfg.IsATC
}

// GetCDA returns the current data authority.
func (c *Client) GetCDA() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.to
}

// GetNDA returns the staged next data authority, or "" if none.
func (c *Client) GetNDA() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nda
}

// Logon records credentials and starts the worker goroutine if it is not
// already running, then requests a logon exchange (spec 4.5.1).
func (c *Client) Logon(ctx context.Context, logonData, from, to string) {
	c.mu.Lock()
	c.logonData = logonData
	c.from = from
	c.to = to
	c.wantLogon = true
	needStart := !c.started
	if needStart {
		c.started = true
		c.logonStatus = ConnectingLink
	}
	c.mu.Unlock()

	if needStart {
		workerCtx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		c.cancel = cancel
		c.mu.Unlock()
		c.wg.Add(1)
		go c.runWorker(workerCtx)
	}
}

// Logoff tears down the session. If from is non-empty, it sends a soft
// LOGOFF message and keeps the transport up; if empty, the link is torn
// down entirely and the worker exits (spec 4.5.1).
func (c *Client) Logoff(from string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if from != "" {
		msg := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
		msg.SetFrom(from)
		msg.SetTo(c.to)
		msg.SetLogoff()
		c.enqueueLocked(msg, false)
		return
	}
	c.teardownLocked()
}

// Close stops the worker and releases the transport, equivalent to
// Logoff("").
func (c *Client) Close() {
	c.Logoff("")
	c.wg.Wait()
}

func (c *Client) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.logonStatus = None
}

// SendMsg deep-copies msg, stamps From (unless already set to something
// other than AutoFrom) and To (from the current data authority unless
// already set), assigns a token, and enqueues it for transmission.
// Returns InvalidSendToken if the client is not logged on.
func (c *Client) SendMsg(msg *cpdlc.Message) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logonStatus != Complete {
		return InvalidSendToken
	}
	out := msg.Clone()
	if out.From == AutoFrom {
		out.From = c.from
	}
	if out.To == "" {
		out.To = c.to
	}
	return c.enqueueLocked(out, true)
}

// enqueueLocked assigns a MIN (if unset), a send token if tracked, and
// encodes the message onto the sending queue. Called with mu held.
func (c *Client) enqueueLocked(msg *cpdlc.Message, tracked bool) uint64 {
	if msg.MIN == cpdlc.InvalidSeq {
		c.minCounter++
		msg.SetMIN(c.minCounter)
	}
	payload, err := cpdlc.Encode(msg)
	if err != nil {
		return InvalidSendToken
	}
	var token uint64
	if tracked {
		c.tokenCtr++
		token = c.tokenCtr
	}
	entry := &outboxEntry{token: token, payload: payload, tracked: tracked, status: Sending}
	c.sendingQ = append(c.sendingQ, entry)
	if tracked {
		c.sentTrack[token] = entry
	}
	return token
}

// GetMsgStatus reports the status of a previously issued token. Once a
// token resolves to Sent or SendFailed, a subsequent call returns
// InvalidToken (spec 4.5.1).
func (c *Client) GetMsgStatus(token uint64) MsgSendStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sentTrack[token]
	if !ok {
		return InvalidToken
	}
	st := e.status
	if st == Sent || st == SendFailed {
		delete(c.sentTrack, token)
	}
	return st
}

// RecvMsg pops the next inbound message, if any.
func (c *Client) RecvMsg() (*cpdlc.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return nil, false
	}
	m := c.inbox[0]
	c.inbox = c.inbox[1:]
	return m, true
}
