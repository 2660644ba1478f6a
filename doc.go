// Package cpdlc implements the message model and text wire codec for a
// Controller-Pilot Data Link Communications (CPDLC) stack: a catalog of
// uplink and downlink message templates, a tagged-union argument value
// model, and the framed KEY=VALUE/ wire format that carries them between
// an aircraft and a ground facility.
//
// The connection worker lives in the client subpackage and the
// conversation/thread tracker lives in the msglist subpackage; both build
// on the types defined here.
package cpdlc
