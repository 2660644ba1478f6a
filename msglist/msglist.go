// Package msglist implements the thread tracker that sits on top of a
// client.Client: it groups messages into conversational threads by
// MIN/MRN linkage, computes a per-thread status, honors per-segment
// response timeouts by auto-emitting error replies, and exposes a
// thread-oriented API to a user interface (spec 4.6).
package msglist

import (
	"sync"
	"time"

	"github.com/skiselkov/cpdlc"
	"github.com/skiselkov/cpdlc/client"
)

// ThrID is a thread identifier, monotonic within one List.
type ThrID uint64

// NoThrID means "no thread": passed to Send to request a new thread, and
// never a valid id returned by the list.
const NoThrID ThrID = 0

// Client is the subset of client.Client the message list drives. Declared
// as an interface, grounded on the teacher's own small-interface style at
// package boundaries (e.g. gnmitunnel's transport seams), so tests can
// substitute a fake client instead of a live TLS connection.
type Client interface {
	SendMsg(msg *cpdlc.Message) uint64
	GetMsgStatus(token uint64) client.MsgSendStatus
	SetMsgRecvCb(cb func(msg *cpdlc.Message))
	LogonStatusInfo() (client.LogonStatus, string)
	IsATC() bool
}

type bucket struct {
	msg     *cpdlc.Message
	token   uint64
	sent    bool
	hours   int
	minutes int
	stamp   time.Time // monotonic clock reading, for timeout math
}

type thread struct {
	id          ThrID
	buckets     []*bucket
	status      Status
	dirty       bool
	reviewed    bool
	modInserted bool
	modExecd    bool
}

// List is the thread tracker (spec 4.6). All exported methods are safe
// for concurrent use, serialized by mu the way client.Client is by its
// own mutex; the update callback is always invoked with mu released
// (spec 5).
type List struct {
	cl  Client
	clk cpdlc.Clock
	cat *cpdlc.Catalog

	mu      sync.Mutex
	threads []*thread
	nextID  ThrID
	minCtr  uint32
	metrics *Metrics

	updateCb func(ids []ThrID)
}

// New builds a List on top of cl. clk defaults to a real clock if nil;
// cat (the catalog used to build the auto-timeout DM62 ERROR reply)
// defaults to cpdlc.DefaultCatalog if nil.
func New(cl Client, clk cpdlc.Clock, cat *cpdlc.Catalog) *List {
	if clk == nil {
		clk = cpdlc.NewRealClock()
	}
	l := &List{cl: cl, clk: clk, cat: cat, nextID: 1}
	cl.SetMsgRecvCb(l.handleRecv)
	return l
}

// SetMetrics installs the Metrics instance this list reports open/final
// thread counts through. Optional; a nil Metrics is a silent no-op.
func (l *List) SetMetrics(m *Metrics) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = m
}

// SetUpdateCb installs the callback invoked (with the list's lock
// released) with the set of thread ids that changed as a result of the
// most recent receive or Update call (spec 4.6.3).
func (l *List) SetUpdateCb(cb func(ids []ThrID)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updateCb = cb
}

func (l *List) findThreadLocked(id ThrID) *thread {
	for _, t := range l.threads {
		if t.id == id {
			return t
		}
	}
	return nil
}

// newThreadLocked allocates and registers a fresh thread.
func (l *List) newThreadLocked() *thread {
	t := &thread{id: l.nextID}
	l.nextID++
	l.threads = append(l.threads, t)
	return t
}

// segDir reports the direction implied by a message's first segment, and
// whether the message carries any segment at all.
func segDir(msg *cpdlc.Message) (cpdlc.MsgDirection, bool) {
	if len(msg.Segments) == 0 {
		return 0, false
	}
	return msg.Segments[0].Template.Dir, true
}

// bucketMatches implements original_source's msg_matches_bucket: an
// inbound message with MRN=r matches a bucket whose own MIN equals r,
// with the sent/disregard XOR spec 4.6.1 describes. original_source keys
// this off the DISREGARD family specifically (not off END_SVC/NDA,
// despite how a literal reading of this repository's own distilled spec
// text might be construed); original_source is authoritative per spec
// 9's own guidance on resolving ambiguity (see DESIGN.md).
func bucketMatches(msg *cpdlc.Message, b *bucket) bool {
	if msg.MRN != b.msg.MIN {
		return false
	}
	if msgIsDisregard(msg) {
		return !b.sent
	}
	return b.sent
}

// findThreadByMRNLocked scans threads newest-first and buckets
// newest-first for the most recent match, skipping threads already
// Closed so a UI can force a message into a fresh thread (spec 4.6.1).
func (l *List) findThreadByMRNLocked(msg *cpdlc.Message) *thread {
	if msg.MRN == cpdlc.InvalidSeq {
		return nil
	}
	for i := len(l.threads) - 1; i >= 0; i-- {
		t := l.threads[i]
		if t.status == Closed {
			continue
		}
		for j := len(t.buckets) - 1; j >= 0; j-- {
			if bucketMatches(msg, t.buckets[j]) {
				return t
			}
		}
	}
	return nil
}

// handleRecv is installed as the client's msg_recv_cb (spec 4.6, grounded
// on original_source's msg_recv_cb): it drains every inbound message,
// links it to a thread, recomputes status, and fires the update callback
// outside the lock.
func (l *List) handleRecv(msg *cpdlc.Message) {
	l.mu.Lock()

	t := l.findThreadByMRNLocked(msg)
	if t == nil {
		t = l.newThreadLocked()
	}
	h, m := cpdlc.UTCHourMinute(l.clk)
	t.buckets = append(t.buckets, &bucket{
		msg: msg, token: 0, sent: false,
		hours: h, minutes: m, stamp: l.clk.Now(),
	})
	t.dirty = true
	t.reviewed = false
	l.recomputeStatusLocked(t)

	cb := l.updateCb
	ids := []ThrID{t.id}
	l.mu.Unlock()

	if cb != nil {
		cb(ids)
	}
}

// Send attaches msg to thrID (or starts a new thread if thrID is
// NoThrID), assigns MIN/MRN, enqueues it on the client, and returns the
// thread id (spec 4.6.1, 4.6.3).
func (l *List) Send(msg *cpdlc.Message, thrID ThrID) ThrID {
	l.mu.Lock()
	defer l.mu.Unlock()

	var t *thread
	if thrID == NoThrID {
		t = l.newThreadLocked()
		t.status = Open
	} else {
		t = l.findThreadLocked(thrID)
		if t == nil {
			t = l.newThreadLocked()
			t.status = Open
		}
	}

	if dir, ok := segDir(msg); ok {
		for i := len(t.buckets) - 1; i >= 0; i-- {
			b := t.buckets[i]
			if bd, ok := segDir(b.msg); ok && bd != dir {
				msg.SetMRN(b.msg.MIN)
				break
			}
		}
	}
	l.minCtr++
	msg.SetMIN(l.minCtr)

	token := l.cl.SendMsg(msg)
	h, m := cpdlc.UTCHourMinute(l.clk)
	t.buckets = append(t.buckets, &bucket{
		msg: msg, token: token, sent: true,
		hours: h, minutes: m, stamp: l.clk.Now(),
	})
	l.recomputeStatusLocked(t)
	return t.id
}

// GetThrIDs returns the ids of threads the UI should currently display
// (spec 4.6.3). A thread already in a final status is omitted once it is
// no longer dirty and either ignoreClosed is set or staleTimeout has
// elapsed since its last bucket; staleTimeout == 0 disables the age
// check.
func (l *List) GetThrIDs(ignoreClosed bool, staleTimeout time.Duration) []ThrID {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []ThrID
	now := l.clk.Now()
	for _, t := range l.threads {
		stale := staleTimeout != 0 && len(t.buckets) > 0 &&
			now.Sub(t.buckets[len(t.buckets)-1].stamp) > staleTimeout
		if (ignoreClosed || stale) && !t.dirty && statusIsFinal(t.status) {
			continue
		}
		ids = append(ids, t.id)
	}
	return ids
}

// GetThrStatus returns a thread's current status and dirty flag.
func (l *List) GetThrStatus(id ThrID) (Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.findThreadLocked(id)
	if t == nil {
		return 0, false
	}
	return t.status, t.dirty
}

// MarkSeen clears a thread's dirty flag. Idempotent (spec 8's testable
// property: repeated calls are no-ops).
func (l *List) MarkSeen(id ThrID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t := l.findThreadLocked(id); t != nil {
		t.dirty = false
	}
}

// GetThrMsgCount returns the number of messages (buckets) in a thread.
func (l *List) GetThrMsgCount(id ThrID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.findThreadLocked(id)
	if t == nil {
		return 0
	}
	return len(t.buckets)
}

// GetThrMsg returns the i-th message in a thread along with its send
// token (InvalidSendToken if it was never sent by this endpoint), the
// UTC hour/minute it was stamped at, and whether this endpoint sent it.
// The returned *cpdlc.Message is owned by the list and must not be
// mutated; it is valid until the thread is removed or the list is
// discarded (spec 5's shared-resource policy).
func (l *List) GetThrMsg(id ThrID, i int) (msg *cpdlc.Message, token uint64, hour, minute int, sent bool, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.findThreadLocked(id)
	if t == nil || i < 0 || i >= len(t.buckets) {
		return nil, 0, 0, 0, false, false
	}
	b := t.buckets[i]
	return b.msg, b.token, b.hours, b.minutes, b.sent, true
}

// GetRemoteCallsign returns the other endpoint's identifier, read off the
// thread's first message (original_source's
// cpdlc_msglist_get_remote_callsign): From if that message was received,
// To if it was sent.
func (l *List) GetRemoteCallsign(id ThrID) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.findThreadLocked(id)
	if t == nil || len(t.buckets) == 0 {
		return "", false
	}
	b := t.buckets[0]
	if b.sent {
		return b.msg.To, b.msg.To != ""
	}
	return b.msg.From, b.msg.From != ""
}

// RemoveThr permanently discards a thread.
func (l *List) RemoveThr(id ThrID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, t := range l.threads {
		if t.id == id {
			l.threads = append(l.threads[:i], l.threads[i+1:]...)
			l.metrics.forgetThread(id)
			return
		}
	}
}

// ThrClose forces a non-final thread to Closed, letting the UI reclaim a
// conversation (e.g. so a subsequent inbound message starts a fresh
// thread per spec 4.6.1's skip-closed-threads rule).
func (l *List) ThrClose(id ThrID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t := l.findThreadLocked(id); t != nil && !statusIsFinal(t.status) {
		t.status = Closed
	}
}

// ThrIsDone reports whether a thread has reached a final status.
func (l *List) ThrIsDone(id ThrID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.findThreadLocked(id)
	return t != nil && statusIsFinal(t.status)
}

// MarkReviewed/MarkModInserted/MarkModExecd and their Is* readers expose
// the three UI flags spec 3 calls "opaque to core": the message list
// stores them but never consults them itself (original_source's
// cpdlc_msglist_thr_mark_reviewed/mod_inserted/mod_execd).
func (l *List) MarkReviewed(id ThrID)    { l.setFlag(id, func(t *thread) { t.reviewed = true }) }
func (l *List) MarkModInserted(id ThrID) { l.setFlag(id, func(t *thread) { t.modInserted = true }) }
func (l *List) MarkModExecd(id ThrID)    { l.setFlag(id, func(t *thread) { t.modExecd = true }) }

func (l *List) setFlag(id ThrID, set func(*thread)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t := l.findThreadLocked(id); t != nil {
		set(t)
	}
}

func (l *List) IsReviewed(id ThrID) bool    { return l.getFlag(id, func(t *thread) bool { return t.reviewed }) }
func (l *List) IsModInserted(id ThrID) bool { return l.getFlag(id, func(t *thread) bool { return t.modInserted }) }
func (l *List) IsModExecd(id ThrID) bool    { return l.getFlag(id, func(t *thread) bool { return t.modExecd }) }

func (l *List) getFlag(id ThrID, get func(*thread) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.findThreadLocked(id)
	return t != nil && get(t)
}

// Update recomputes every thread's status, the external tick spec 4.6.2
// names as driving rule 6's timeout check even absent new traffic.
func (l *List) Update() {
	l.mu.Lock()
	var changed []ThrID
	for _, t := range l.threads {
		before := t.status
		l.recomputeStatusLocked(t)
		if t.status != before {
			changed = append(changed, t.id)
		}
	}
	cb := l.updateCb
	l.mu.Unlock()

	if cb != nil && len(changed) > 0 {
		cb(changed)
	}
}
