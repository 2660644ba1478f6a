package msglist

import (
	"time"

	"github.com/skiselkov/cpdlc"
	"github.com/skiselkov/cpdlc/client"
)

// Status is a thread's computed state (spec 4.6.2).
type Status int

const (
	Open Status = iota
	Pending
	Standby
	Accepted
	Rejected
	TimedOut
	Closed
	Disregard
	ErrorStatus
	Failed
	ConnEnded
)

func (s Status) String() string {
	switch s {
	case Open:
		return "Open"
	case Pending:
		return "Pending"
	case Standby:
		return "Standby"
	case Accepted:
		return "Accepted"
	case Rejected:
		return "Rejected"
	case TimedOut:
		return "TimedOut"
	case Closed:
		return "Closed"
	case Disregard:
		return "Disregard"
	case ErrorStatus:
		return "Error"
	case Failed:
		return "Failed"
	case ConnEnded:
		return "ConnEnded"
	default:
		return "Unknown"
	}
}

// statusIsFinal reports whether a thread in this status is immutable
// except for UI flags (spec 3, 4.6.2 rule 1).
func statusIsFinal(s Status) bool {
	switch s {
	case Closed, Accepted, Rejected, TimedOut, Disregard, Failed, ErrorStatus, ConnEnded:
		return true
	default:
		return false
	}
}

// msgReqResp reports whether any segment of msg expects a reply: every
// RespCategory except RespNotRequired (original_source's msg_req_resp,
// which checks resp != CPDLC_RESP_N && resp != CPDLC_RESP_NE).
func msgReqResp(msg *cpdlc.Message) bool {
	for _, seg := range msg.Segments {
		if seg.Template.RespCat != cpdlc.RespNotRequired {
			return true
		}
	}
	return false
}

// msgIsDLReq generalizes original_source's msg_is_dl_req (a hardcoded
// list of downlink REQUEST type ranges) structurally: a downlink segment
// awaiting a wilco/unable or affirm/negative reply that is not itself one
// of those replies. WILCO/UNABLE/AFFIRM/NEGATIVE all carry
// RespNotRequired, so they are excluded without a separate check.
func msgIsDLReq(msg *cpdlc.Message) bool {
	if len(msg.Segments) == 0 {
		return false
	}
	seg := msg.Segments[0]
	if seg.Template.Dir != cpdlc.Downlink {
		return false
	}
	return seg.Template.RespCat == cpdlc.RespWilcoUnable ||
		seg.Template.RespCat == cpdlc.RespAffirmNegative
}

func firstSegHas(msg *cpdlc.Message, pred func(*cpdlc.Template) bool) bool {
	if len(msg.Segments) == 0 {
		return false
	}
	return pred(msg.Segments[0].Template)
}

func msgIsStandby(msg *cpdlc.Message) bool {
	return firstSegHas(msg, func(t *cpdlc.Template) bool { return t.IsStandby })
}

func msgIsAccept(msg *cpdlc.Message) bool {
	return firstSegHas(msg, func(t *cpdlc.Template) bool { return t.IsAccept })
}

func msgIsReject(msg *cpdlc.Message) bool {
	return firstSegHas(msg, func(t *cpdlc.Template) bool { return t.IsReject })
}

func msgIsLinkMgmt(msg *cpdlc.Message) bool {
	return firstSegHas(msg, func(t *cpdlc.Template) bool { return t.IsLinkMgmt })
}

func msgIsDisregard(msg *cpdlc.Message) bool {
	return firstSegHas(msg, func(t *cpdlc.Template) bool { return t.IsDisregard })
}

func msgIsErrorSeg(msg *cpdlc.Message) bool {
	return firstSegHas(msg, func(t *cpdlc.Template) bool { return t.IsErrorSeg })
}

// threadTimeout returns the smallest nonzero template timeout across
// every segment of every bucket in the thread, or 0 if none has one
// (original_source's thr_get_timeout).
func threadTimeout(t *thread) time.Duration {
	var min time.Duration
	for _, b := range t.buckets {
		for _, seg := range b.msg.Segments {
			if seg.Template.Timeout > 0 && (min == 0 || seg.Template.Timeout < min) {
				min = seg.Template.Timeout
			}
		}
	}
	return min
}

// recomputeStatusLocked applies spec 4.6.2's rules in order, first match
// wins. Called with l.mu held.
func (l *List) recomputeStatusLocked(t *thread) {
	if statusIsFinal(t.status) {
		return
	}
	if len(t.buckets) == 0 {
		return
	}
	first := t.buckets[0]
	last := t.buckets[len(t.buckets)-1]

	if first == last && !msgReqResp(first.msg) {
		t.status = Closed
		l.metrics.setThreadStatus(t.id, t.status)
		return
	}

	// Rule 3 only terminates the chain while the send itself hasn't
	// resolved yet; once it has (Sent, or no longer tracked), the thread
	// falls through to the remaining rules so a resolved-but-unanswered
	// request can still reach the timeout check below.
	if last.sent && !l.cl.IsATC() && msgIsDLReq(last.msg) {
		switch l.cl.GetMsgStatus(last.token) {
		case client.Sending:
			t.status = Pending
			l.metrics.setThreadStatus(t.id, t.status)
			return
		case client.SendFailed:
			t.status = Failed
			l.metrics.setThreadStatus(t.id, t.status)
			return
		}
	}

	switch {
	case msgIsStandby(last.msg):
		t.status = Standby

	case msgIsAccept(last.msg):
		t.status = Accepted

	case t.status != Standby && threadTimeout(t) > 0 &&
		l.clk.Now().Sub(last.stamp) > threadTimeout(t):
		l.sendTimeoutErrorLocked(t, last)
		t.status = TimedOut
		t.dirty = false

	case msgIsReject(last.msg):
		t.status = Rejected

	case msgIsLinkMgmt(last.msg):
		t.status = Closed

	case msgIsDisregard(last.msg):
		t.status = Disregard

	case msgIsErrorSeg(last.msg):
		t.status = ErrorStatus
		t.dirty = false

	default:
		if st, _ := l.cl.LogonStatusInfo(); st != client.Complete {
			t.dirty = false
			t.status = ConnEnded
		} else {
			t.status = Open
		}
	}

	l.metrics.setThreadStatus(t.id, t.status)
}

// sendTimeoutErrorLocked auto-replies DM62 ERROR(APP_ERROR) referencing
// the timed-out bucket's MIN (spec 4.6.2 rule 6, original_source's
// thr_status_upd). The reply is always a downlink segment, matching
// original_source's hardcoded is_dl=true — the timeout-reply path
// predates ATC-side use of this tracker.
func (l *List) sendTimeoutErrorLocked(t *thread, last *bucket) {
	reply := cpdlc.AllocMessage(cpdlc.PacketCPDLC)
	reply.SetMRN(last.msg.MIN)
	segIdx, err := reply.AppendSegment(l.errorCatalog(), cpdlc.Downlink, errorTypeKey)
	if err != nil {
		return
	}
	if err := reply.SetArg(segIdx, 0, cpdlc.Arg{Kind: cpdlc.ArgErrInfo, ErrInfo: cpdlc.ErrInfoAppError}); err != nil {
		return
	}
	l.minCtr++
	reply.SetMIN(l.minCtr)
	token := l.cl.SendMsg(reply)
	h, m := cpdlc.UTCHourMinute(l.clk)
	t.buckets = append(t.buckets, &bucket{
		msg: reply, token: token, sent: true,
		hours: h, minutes: m, stamp: l.clk.Now(),
	})
}

var errorTypeKey = cpdlc.TypeKey{Num: 62}

// errorCatalog returns the catalog to resolve the DM62 ERROR template
// from: l.cat if the owner supplied one via New, else the process default.
func (l *List) errorCatalog() *cpdlc.Catalog {
	if l.cat != nil {
		return l.cat
	}
	return cpdlc.DefaultCatalog
}
