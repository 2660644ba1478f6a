// Package client implements the CPDLC connection worker: a background
// goroutine that owns a TLS (or plaintext-loopback) transport, performs
// LOGON, retries across resolved addresses, enforces keepalive,
// serializes outbound messages, parses inbound framed messages, and
// surfaces send/receive events to the owner via callbacks.
package client

import (
	"log/slog"
	"time"

	"github.com/skiselkov/cpdlc"
)

// TLSConfig holds the transport's TLS settings. TLS is mandatory unless
// Host is "localhost" and UnencryptedLoopback is set. A client
// certificate/key may be supplied as files or as in-memory PEM; CertPEM/
// KeyPEM win if both forms are set. KeyPassword decrypts a PKCS#8
// encrypted private key, whichever form it arrived in.
type TLSConfig struct {
	ServerName          string // SNI override; defaults to Host
	CAFile              string // PEM CA bundle; defaults to system trust store
	CertFile, KeyFile   string // optional client certificate for mTLS, as files
	CertPEM, KeyPEM     []byte // optional client certificate for mTLS, in memory
	KeyPassword         string // decryption password for an encrypted private key
	SkipVerify          bool   // dev only
	UnencryptedLoopback bool   // permit plaintext when Host == "localhost"
}

// Config configures a Client before its first Logon call. Unset fields
// are defaulted by setDefaults the way gnmitunnel.Config.setDefaults
// does it.
type Config struct {
	Host string
	Port int
	TLS  TLSConfig

	// ARINC622 makes an aircraft-side client send a CPDLC version
	// announcement (DM79) once logon completes. Outbound frames are always
	// written in the plain text form; no ARINC-622 envelope is applied.
	ARINC622 bool

	// IsATC selects ATC-side handling: no current-data-authority gating,
	// no END_SVC/NDA handling (spec 4.5.7, 4.5.8).
	IsATC bool

	Catalog *cpdlc.Catalog
	Clock   cpdlc.Clock
	Logger  *slog.Logger
	Metrics *Metrics

	ConnectTimeout time.Duration
	KeepaliveIdle  time.Duration // quiet period before a PING (default 300s)
	KeepaliveDrop  time.Duration // quiet period before dropping the link (default 1800s)

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// RXBitrate/TXBitrate, if > 0, simulate a bandwidth cap in bits per
	// second for realism in UI testing (spec 4.5.5). Zero (the unset
	// value) and negative values disable pacing.
	RXBitrate int
	TXBitrate int
}

func (c *Config) setDefaults() {
	if c.Catalog == nil {
		c.Catalog = cpdlc.DefaultCatalog
	}
	if c.Clock == nil {
		c.Clock = cpdlc.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.KeepaliveIdle <= 0 {
		c.KeepaliveIdle = 300 * time.Second
	}
	if c.KeepaliveDrop <= 0 {
		c.KeepaliveDrop = 1800 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.RXBitrate == 0 {
		c.RXBitrate = -1
	}
	if c.TXBitrate == 0 {
		c.TXBitrate = -1
	}
}
