package cpdlc

import (
	"fmt"
	"strconv"
	"time"
)

// MsgDirection distinguishes uplink (ATC to aircraft) from downlink
// (aircraft to ATC) segment templates.
type MsgDirection int

const (
	Uplink MsgDirection = iota
	Downlink
)

func (d MsgDirection) String() string {
	if d == Uplink {
		return "UM"
	}
	return "DM"
}

// RespCategory is the response category a segment template expects, per
// spec 3's enumerated list.
type RespCategory int

const (
	RespWilcoUnable RespCategory = iota
	RespAffirmNegative
	RespRoger
	RespOperational
	RespRequired
	RespNotRequired
)

// TypeKey identifies a catalog entry: a numeric message type plus an
// optional subtype letter for the DL67 family. Per spec 9's "open
// question", (Num, Subtype) is always treated as a pair, never recovered
// by splitting a string after the fact.
type TypeKey struct {
	Num     int
	Subtype byte // 0 if the type has no subtype
}

func (k TypeKey) String() string {
	if k.Subtype == 0 {
		return strconv.Itoa(k.Num)
	}
	return fmt.Sprintf("%d%c", k.Num, k.Subtype)
}

// catalogKey is the full lookup key: direction plus TypeKey.
type catalogKey struct {
	Dir MsgDirection
	TypeKey
}

// Template is the immutable metadata for one catalog entry: direction,
// type code, argument signature, response category, and timeout. This is
// the compile-time-constant table spec 4.1 requires; it never mutates
// after catalog construction.
type Template struct {
	Dir            MsgDirection
	TypeKey        TypeKey
	Name           string // human label, e.g. "CLIMB TO", never transmitted
	ArgKinds       []ArgKind
	RespCat        RespCategory
	Timeout        time.Duration
	IsLinkMgmt     bool      // END_SVC/NDA/ROGER family: rule 8 closes these
	ValidResponses []TypeKey // opposite-direction types that may validly reply

	// The following tag a segment's role in msglist's thread status
	// engine (spec 4.6.2), grounded on original_source's
	// msg_is_stby/msg_is_accept/msg_is_reject/is_disregard_msg helpers.
	// Tagging the catalog entry keeps the status engine free of type-code
	// literals, the same way IsLinkMgmt already does for rule 8.
	IsStandby   bool // STANDBY family: rule 4
	IsAccept    bool // WILCO/AFFIRM family: rule 5
	IsReject    bool // UNABLE/NEGATIVE/ERROR family: rule 7
	IsDisregard bool // DISREGARD: rule 9, and original_source's bucket-matching rule
	IsErrorSeg  bool // ERROR(errorinfo): rule 10
}

// Catalog is a read-only registry of Templates, looked up by
// (direction, type, subtype). DefaultCatalog is built once at init time
// from defaultTemplates; no Catalog is mutated after NewCatalog returns.
type Catalog struct {
	byKey map[catalogKey]*Template
	all   []*Template
}

// NewCatalog builds a Catalog from a list of templates. Used both for the
// built-in DefaultCatalog and by tests that want a reduced table.
func NewCatalog(templates []*Template) *Catalog {
	c := &Catalog{
		byKey: make(map[catalogKey]*Template, len(templates)),
		all:   make([]*Template, len(templates)),
	}
	copy(c.all, templates)
	for _, t := range templates {
		k := catalogKey{Dir: t.Dir, TypeKey: t.TypeKey}
		if _, dup := c.byKey[k]; dup {
			panic(fmt.Sprintf("cpdlc: duplicate catalog entry %s%s", t.Dir, t.TypeKey))
		}
		c.byKey[k] = t
	}
	return c
}

// Lookup returns the template for (dir, key), and whether it was found.
func (c *Catalog) Lookup(dir MsgDirection, key TypeKey) (*Template, bool) {
	t, ok := c.byKey[catalogKey{Dir: dir, TypeKey: key}]
	return t, ok
}

// All returns every template in the catalog, in registration order, for
// callers (such as tests) that enumerate the table. The decoder uses
// Lookup, not All.
func (c *Catalog) All() []*Template {
	return c.all
}

// DefaultCatalog is the process-wide message catalog used unless a caller
// passes another one (Decode's cat argument, client.Config.Catalog, or
// msglist.New's catalog argument). Per spec 9, a single
// immutable process-wide catalog is an acceptable global; nothing else in
// this module uses package-level mutable state.
var DefaultCatalog = NewCatalog(defaultTemplates)
