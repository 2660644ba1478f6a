// Package config loads the demo binary's TOML configuration file. The
// core client and message list packages take configuration through Go
// setters; a file is strictly an outer-surface convenience for this
// terminal demo.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TLS holds the demo binary's transport settings, translated into
// client.TLSConfig by the cli package. CertPEM/KeyPEM let a config file
// embed the client keypair inline (key_mem) instead of naming files on
// disk; KeyPassword decrypts either form if the key is encrypted.
type TLS struct {
	CAFile              string `toml:"ca_file"`
	CertFile            string `toml:"cert_file"`
	KeyFile             string `toml:"key_file"`
	CertPEM             string `toml:"cert_pem"`
	KeyPEM              string `toml:"key_pem"`
	KeyPassword         string `toml:"key_password"`
	SkipVerify          bool   `toml:"skip_verify"`
	UnencryptedLoopback bool   `toml:"unencrypted_loopback"`
}

// Config is the complete demo configuration.
type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	TLS  TLS    `toml:"tls"`

	ARINC622 bool `toml:"arinc622"`
	IsATC    bool `toml:"is_atc"`

	Callsign  string `toml:"callsign"`   // this endpoint's identity (FROM)
	Authority string `toml:"authority"`  // current data authority (TO)
	LogonData string `toml:"logon_data"` // opaque LOGON= payload
}

// Default returns a Config with the demo's baseline values.
func Default() *Config {
	return &Config{
		Host: "localhost",
		Port: 17622,
		TLS: TLS{
			UnencryptedLoopback: true,
		},
	}
}

// Load reads path (if non-empty) as TOML over top of Default, then applies
// a handful of environment overrides the way
// controlplane/s3-uploader/internal/config does.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse TOML config: %w", err)
		}
	}

	if v := os.Getenv("CPDLC_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("CPDLC_CALLSIGN"); v != "" {
		cfg.Callsign = v
	}

	return cfg, nil
}

// Validate checks that the fields a logon exchange needs are present.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("port must be positive")
	}
	if c.Callsign == "" {
		return fmt.Errorf("callsign is required")
	}
	return nil
}
