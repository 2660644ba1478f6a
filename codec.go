package cpdlc

import (
	"fmt"
	"strconv"
	"strings"
)

// wireKeys are the recognized top-level token prefixes (spec 4.3). The
// tokenizer only splits a line on a '/' that is immediately followed by
// one of these or by some other upper-case KEY= name (an unknown key,
// which Decode ignores), because a DATA= segment's own argument text may
// itself contain '/' (place-bearing-distance positions, whose parts after
// a '/' start with a digit).
var wireKeys = []string{
	"PKT=", "FROM=", "TO=", "MIN=", "MRN=", "LOGON=", "LOGOFF", "OPT=", "DATA=",
}

func startsWithWireKey(s string) bool {
	for _, k := range wireKeys {
		if strings.HasPrefix(s, k) {
			return true
		}
	}
	return false
}

// tokenizeLine splits one frame (without its trailing newline) into its
// top-level KEY=VALUE tokens.
func tokenizeLine(line string) ([]string, error) {
	if line == "" {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	if !startsWithWireKey(line) {
		return nil, fmt.Errorf("%w: frame does not start with a recognized token", ErrMalformed)
	}
	var starts []int
	for i := 0; i < len(line); i++ {
		if i == 0 || line[i-1] == '/' {
			j := i
			for j < len(line) && (line[j] >= 'A' && line[j] <= 'Z' ||
				j > i && (line[j] >= '0' && line[j] <= '9' || line[j] == '_')) {
				j++
			}
			unknownKey := i > 0 && j > i && j < len(line) && line[j] == '='
			if startsWithWireKey(line[i:]) || unknownKey {
				starts = append(starts, i)
			}
		}
	}
	toks := make([]string, 0, len(starts))
	for i, s := range starts {
		end := len(line)
		if i+1 < len(starts) {
			end = starts[i+1] - 1 // back off the separating '/'
		}
		toks = append(toks, line[s:end])
	}
	return toks, nil
}

// Encode renders m as a single newline-terminated wire frame.
func Encode(m *Message) ([]byte, error) {
	var toks []string
	toks = append(toks, "PKT="+m.PacketType.String())
	if m.From != "" {
		toks = append(toks, "FROM="+m.From)
	}
	if m.To != "" {
		toks = append(toks, "TO="+m.To)
	}
	if m.MIN != InvalidSeq {
		toks = append(toks, "MIN="+strconv.FormatUint(uint64(m.MIN), 10))
	}
	if m.MRN != InvalidSeq {
		toks = append(toks, "MRN="+strconv.FormatUint(uint64(m.MRN), 10))
	}
	if m.IsLogon {
		toks = append(toks, "LOGON="+m.LogonData)
	}
	if m.IsLogoff {
		toks = append(toks, "LOGOFF")
	}
	for _, opt := range m.Options {
		if opt.Value == "" {
			toks = append(toks, "OPT="+opt.Name)
		} else {
			toks = append(toks, "OPT="+opt.Name+"="+opt.Value)
		}
	}
	if len(m.Segments) > MaxSegments {
		return nil, fmt.Errorf("%w: %d segments", ErrTooManySegments, len(m.Segments))
	}
	for _, seg := range m.Segments {
		segText, err := encodeSegment(seg)
		if err != nil {
			return nil, err
		}
		toks = append(toks, "DATA="+segText)
	}
	line := strings.Join(toks, "/")
	return []byte(line + "\n"), nil
}

func encodeSegment(seg Segment) (string, error) {
	tk := seg.Template.TypeKey
	var b strings.Builder
	b.WriteString(seg.Template.Dir.String())
	b.WriteString(strconv.Itoa(tk.Num))
	if tk.Subtype != 0 {
		b.WriteByte(tk.Subtype)
	}
	if len(seg.Args) != len(seg.Template.ArgKinds) {
		return "", fmt.Errorf("%w: segment %s%s has %d args, template wants %d",
			ErrArgMismatch, seg.Template.Dir, tk, len(seg.Args), len(seg.Template.ArgKinds))
	}
	for i, a := range seg.Args {
		if a.Kind != seg.Template.ArgKinds[i] {
			return "", fmt.Errorf("%w: segment %s%s arg %d kind mismatch",
				ErrArgMismatch, seg.Template.Dir, tk, i)
		}
		text, err := a.EncodeText()
		if err != nil {
			return "", err
		}
		b.WriteByte(' ')
		b.WriteString(text)
	}
	return b.String(), nil
}

// argTokenCount reports how many whitespace-delimited wire fields one
// argument of this kind occupies: -1 means "consumes the rest of the
// segment text" (Route, PosReport — variable-length nested grammars; PDC's
// clearance/freetext pair also rides this, since EncodeText omits the
// freetext field entirely when empty). ICAOName gets its own sentinel:
// its optional Function sub-field makes its width self-describing rather
// than fixed, see decodeSegment.
func argTokenCount(k ArgKind) int {
	switch k {
	case ArgRoute, ArgPosReport, ArgPDC:
		return -1
	case ArgICAOName:
		return icaoNameTokens
	default:
		return 1
	}
}

const icaoNameTokens = -2

// startsNextArg reports whether tok already looks like the wire encoding
// of an argument of kind, used to tell whether a non-final ICAOName
// argument consumed its optional Function field or left it blank.
func startsNextArg(kind ArgKind, tok string) bool {
	switch kind {
	case ArgFrequency:
		_, err := strconv.ParseFloat(tok, 64)
		return err == nil
	default:
		return false
	}
}

// Decode attempts to pull one complete frame out of buf. If buf contains
// no newline yet it returns (nil, 0, ErrIncomplete); the caller should
// retain buf and retry once more bytes arrive. On success it returns the
// parsed Message and the number of bytes consumed from the front of buf.
func Decode(buf []byte, cat *Catalog) (*Message, int, error) {
	nl := indexByte(buf, '\n')
	if nl < 0 {
		return nil, 0, ErrIncomplete
	}
	consumed := nl + 1
	line := string(buf[:nl])
	line = strings.TrimSuffix(line, "\r")

	toks, err := tokenizeLine(line)
	if err != nil {
		return nil, consumed, err
	}
	if !strings.HasPrefix(toks[0], "PKT=") {
		return nil, consumed, fmt.Errorf("%w: PKT must be first", ErrMalformed)
	}

	m := &Message{}
	seenMIN, seenMRN, seenPKT := false, false, false
	for _, t := range toks {
		switch {
		case strings.HasPrefix(t, "PKT="):
			if seenPKT {
				return nil, consumed, fmt.Errorf("%w: duplicate PKT", ErrMalformed)
			}
			seenPKT = true
			pt, ok := parsePacketType(strings.TrimPrefix(t, "PKT="))
			if !ok {
				return nil, consumed, fmt.Errorf("%w: bad PKT value", ErrMalformed)
			}
			m.PacketType = pt
		case strings.HasPrefix(t, "FROM="):
			m.From = strings.TrimPrefix(t, "FROM=")
		case strings.HasPrefix(t, "TO="):
			m.To = strings.TrimPrefix(t, "TO=")
		case strings.HasPrefix(t, "MIN="):
			if seenMIN {
				return nil, consumed, fmt.Errorf("%w: duplicate MIN", ErrMalformed)
			}
			seenMIN = true
			n, err := strconv.ParseUint(strings.TrimPrefix(t, "MIN="), 10, 32)
			if err != nil {
				return nil, consumed, fmt.Errorf("%w: bad MIN: %v", ErrMalformed, err)
			}
			m.MIN = uint32(n)
		case strings.HasPrefix(t, "MRN="):
			if seenMRN {
				return nil, consumed, fmt.Errorf("%w: duplicate MRN", ErrMalformed)
			}
			seenMRN = true
			n, err := strconv.ParseUint(strings.TrimPrefix(t, "MRN="), 10, 32)
			if err != nil {
				return nil, consumed, fmt.Errorf("%w: bad MRN: %v", ErrMalformed, err)
			}
			m.MRN = uint32(n)
		case strings.HasPrefix(t, "LOGON="):
			m.IsLogon = true
			m.LogonData = strings.TrimPrefix(t, "LOGON=")
		case t == "LOGOFF":
			m.IsLogoff = true
		case strings.HasPrefix(t, "OPT="):
			opt := strings.TrimPrefix(t, "OPT=")
			if eq := strings.IndexByte(opt, '='); eq >= 0 {
				m.Options = append(m.Options, Option{Name: opt[:eq], Value: opt[eq+1:]})
			} else {
				m.Options = append(m.Options, Option{Name: opt})
			}
		case strings.HasPrefix(t, "DATA="):
			if len(m.Segments) >= MaxSegments {
				return nil, consumed, fmt.Errorf("%w", ErrTooManySegments)
			}
			seg, err := decodeSegment(strings.TrimPrefix(t, "DATA="), cat)
			if err != nil {
				return nil, consumed, err
			}
			m.Segments = append(m.Segments, seg)
		default:
			// Unknown key: ignored for forward compatibility (spec 4.3).
		}
	}
	return m, consumed, nil
}

func decodeSegment(text string, cat *Catalog) (Segment, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Segment{}, fmt.Errorf("%w: empty DATA segment", ErrMalformed)
	}
	dir, key, err := parseTypeCode(fields[0])
	if err != nil {
		return Segment{}, err
	}
	tmpl, ok := cat.Lookup(dir, key)
	if !ok {
		return Segment{}, fmt.Errorf("%w: %s%s", ErrUnknownSegment, dir, key)
	}
	rest := fields[1:]
	args := make([]Arg, len(tmpl.ArgKinds))
	for i, kind := range tmpl.ArgKinds {
		n := argTokenCount(kind)
		last := i == len(tmpl.ArgKinds)-1
		var argText string
		switch {
		case kind == ArgICAOName && !last:
			if len(rest) < 1 {
				return Segment{}, fmt.Errorf("%w: %s%s missing argument %d",
					ErrArgMismatch, dir, key, i)
			}
			if len(rest) >= 2 && !startsNextArg(tmpl.ArgKinds[i+1], rest[1]) {
				argText = strings.Join(rest[:2], " ")
				rest = rest[2:]
			} else {
				argText = rest[0]
				rest = rest[1:]
			}
		case n < 0:
			if len(rest) < 1 {
				return Segment{}, fmt.Errorf("%w: %s%s missing argument %d",
					ErrArgMismatch, dir, key, i)
			}
			argText = strings.Join(rest, " ")
			rest = nil
		case n == 1:
			if len(rest) < 1 {
				return Segment{}, fmt.Errorf("%w: %s%s missing argument %d",
					ErrArgMismatch, dir, key, i)
			}
			argText = rest[0]
			rest = rest[1:]
		default:
			if len(rest) < n {
				return Segment{}, fmt.Errorf("%w: %s%s missing argument %d",
					ErrArgMismatch, dir, key, i)
			}
			argText = strings.Join(rest[:n], " ")
			rest = rest[n:]
		}
		a, err := DecodeArgText(kind, argText)
		if err != nil {
			return Segment{}, fmt.Errorf("%w: %s%s argument %d: %v", ErrArgMismatch, dir, key, i, err)
		}
		args[i] = a
	}
	if len(rest) != 0 {
		return Segment{}, fmt.Errorf("%w: %s%s has trailing arguments", ErrArgMismatch, dir, key)
	}
	return Segment{Template: tmpl, Args: args}, nil
}

// parseTypeCode splits a DATA type code like "UM20" or "DM67b" into its
// direction and (num, subtype) pair.
func parseTypeCode(s string) (MsgDirection, TypeKey, error) {
	if len(s) < 3 {
		return 0, TypeKey{}, fmt.Errorf("%w: short type code %q", ErrMalformed, s)
	}
	var dir MsgDirection
	switch s[:2] {
	case "UM":
		dir = Uplink
	case "DM":
		dir = Downlink
	default:
		return 0, TypeKey{}, fmt.Errorf("%w: bad direction prefix in %q", ErrMalformed, s)
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
		return 0, TypeKey{}, fmt.Errorf("%w: bad type number in %q", ErrMalformed, s)
	}
	return dir, TypeKey{Num: num, Subtype: subtype}, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
