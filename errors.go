package cpdlc

import "errors"

// Errors surfaced by the codec and catalog. Callers distinguish them with
// errors.Is; none of them ever escape as panics (see DESIGN.md).
var (
	// ErrIncomplete is returned by Decode when the supplied buffer does
	// not yet contain a full newline-terminated frame.
	ErrIncomplete = errors.New("cpdlc: incomplete frame")

	// ErrMalformed is returned by Decode when a frame is present but
	// cannot be parsed: a caller should treat the owning stream as
	// corrupted and drop the link (spec 4.3).
	ErrMalformed = errors.New("cpdlc: malformed frame")

	// ErrUnknownSegment is returned when a DATA= token names a
	// (direction, type, subtype) triple absent from the catalog.
	ErrUnknownSegment = errors.New("cpdlc: unknown message type")

	// ErrArgMismatch is returned when a segment's argument count or
	// types don't match its catalog template.
	ErrArgMismatch = errors.New("cpdlc: argument count or type mismatch")

	// ErrTooManySegments is returned by AppendSegment once a message
	// already holds the maximum of 8 segments.
	ErrTooManySegments = errors.New("cpdlc: message already holds 8 segments")

	// ErrBadArgValue is returned when an argument's textual form cannot
	// be parsed (e.g. an altitude that isn't FLnnn or nnnn).
	ErrBadArgValue = errors.New("cpdlc: malformed argument value")
)
