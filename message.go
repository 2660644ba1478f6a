package cpdlc

import "fmt"

// PacketType is the outermost kind of a wire packet (spec 3, PKT= token).
type PacketType int

const (
	PacketCPDLC PacketType = iota
	PacketPing
	PacketPong
)

func (p PacketType) String() string {
	switch p {
	case PacketCPDLC:
		return "CPDLC"
	case PacketPing:
		return "PING"
	case PacketPong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

func parsePacketType(s string) (PacketType, bool) {
	switch s {
	case "CPDLC":
		return PacketCPDLC, true
	case "PING":
		return PacketPing, true
	case "PONG":
		return PacketPong, true
	default:
		return 0, false
	}
}

// InvalidSeq is the sentinel MIN/MRN value meaning "unset".
const InvalidSeq uint32 = 0

// MaxSegments bounds how many segments a single message may carry
// (spec 3: "0 to 8").
const MaxSegments = 8

// Segment is one catalog-backed piece of a message: a template reference
// plus a concrete argument value per template.ArgKinds slot.
type Segment struct {
	Template *Template
	Args     []Arg
}

// TypeKey reports the segment's (type, subtype); the direction is on
// s.Template.Dir.
func (s Segment) TypeKey() TypeKey { return s.Template.TypeKey }

// Message is the owning container for one wire packet: header fields plus
// an ordered list of segments (spec 3, 4.4).
type Message struct {
	PacketType PacketType
	From, To   string
	MIN, MRN   uint32
	IsLogon    bool
	LogonData  string
	IsLogoff   bool
	Options    []Option
	Segments   []Segment

	// Transport-format toggles (spec 3). Encode does not read them and
	// the connection client does not set them; Encode always writes the
	// plain KEY=VALUE text form.
	PlainTextOutput bool
	ARINC622Output  bool
}

// Option is one OPT=name[=value] token.
type Option struct {
	Name  string
	Value string // "" if the option carries no value
}

// AllocMessage constructs an empty message of the given packet type. This
// is the only constructor; all other message state is built through the
// mutators below, mirroring the alloc()-then-mutate shape of the original
// message object (spec 4.4).
func AllocMessage(pt PacketType) *Message {
	return &Message{PacketType: pt}
}

// SetFrom sets the sender identifier.
func (m *Message) SetFrom(from string) { m.From = from }

// SetTo sets the recipient identifier.
func (m *Message) SetTo(to string) { m.To = to }

// SetMIN sets this message's own sequence number.
func (m *Message) SetMIN(min uint32) { m.MIN = min }

// SetMRN sets the sequence number of the message this one replies to.
func (m *Message) SetMRN(mrn uint32) { m.MRN = mrn }

// SetLogon marks the message as a LOGON exchange carrying opaque
// credential data. Per spec 6, a LOGON message carries zero segments;
// neither this setter nor the codec checks that.
func (m *Message) SetLogon(data string) {
	m.IsLogon = true
	m.LogonData = data
}

// SetLogoff marks the message as tearing down an identity on the link.
func (m *Message) SetLogoff() { m.IsLogoff = true }

// AddOption appends an OPT= token. val may be empty for a bare option
// name such as PLAIN.
func (m *Message) AddOption(name, val string) {
	m.Options = append(m.Options, Option{Name: name, Value: val})
}

// HasOption reports whether an option with the given name is present.
func (m *Message) HasOption(name string) bool {
	for _, o := range m.Options {
		if o.Name == name {
			return true
		}
	}
	return false
}

// AppendSegment looks up (dir, key) in cat and appends a new segment with
// zero-valued arguments of the template's declared kinds, returning the
// segment's index so the caller can fill it with SetArg. Returns
// ErrUnknownSegment if the catalog has no such entry, or
// ErrTooManySegments once the message already holds MaxSegments.
func (m *Message) AppendSegment(cat *Catalog, dir MsgDirection, key TypeKey) (int, error) {
	if len(m.Segments) >= MaxSegments {
		return -1, ErrTooManySegments
	}
	tmpl, ok := cat.Lookup(dir, key)
	if !ok {
		return -1, fmt.Errorf("%w: %s%s", ErrUnknownSegment, dir, key)
	}
	seg := Segment{
		Template: tmpl,
		Args:     make([]Arg, len(tmpl.ArgKinds)),
	}
	for i, k := range tmpl.ArgKinds {
		seg.Args[i] = Arg{Kind: k}
	}
	m.Segments = append(m.Segments, seg)
	return len(m.Segments) - 1, nil
}

// SetArg installs val into segment segIdx's argIdx-th argument slot. It is
// an error for val.Kind to differ from the template's declared kind at
// that position (spec 4.4's invariant that the argument's variant tag
// equals template.args[i]).
func (m *Message) SetArg(segIdx, argIdx int, val Arg) error {
	if segIdx < 0 || segIdx >= len(m.Segments) {
		return fmt.Errorf("%w: segment index %d out of range", ErrArgMismatch, segIdx)
	}
	seg := &m.Segments[segIdx]
	if argIdx < 0 || argIdx >= len(seg.Args) {
		return fmt.Errorf("%w: argument index %d out of range", ErrArgMismatch, argIdx)
	}
	want := seg.Template.ArgKinds[argIdx]
	if val.Kind != want {
		return fmt.Errorf("%w: segment %s expects %v at position %d, got %v",
			ErrArgMismatch, seg.Template.TypeKey, want, argIdx, val.Kind)
	}
	seg.Args[argIdx] = val
	return nil
}

// Clone deep-copies the message. The connection client uses this when it
// must re-stamp a caller-supplied message (overriding To with the current
// data authority, or From with the logged-on identity) without mutating
// the caller's copy.
func (m *Message) Clone() *Message {
	out := *m
	if m.Options != nil {
		out.Options = append([]Option(nil), m.Options...)
	}
	if m.Segments != nil {
		out.Segments = make([]Segment, len(m.Segments))
		for i, seg := range m.Segments {
			out.Segments[i] = Segment{
				Template: seg.Template,
				Args:     append([]Arg(nil), seg.Args...),
			}
		}
	}
	return &out
}
