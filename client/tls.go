package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"

	"github.com/youmark/pkcs8"
)

// buildTLSConfig translates cfg.TLS into a *tls.Config, grounded on
// gnmitunnel.Config.makeTransportCredentials' CA-file / client-keypair
// loading.
func buildTLSConfig(host string, t TLSConfig) (*tls.Config, error) {
	serverName := t.ServerName
	if serverName == "" {
		serverName = host
	}
	cfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: t.SkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if t.CAFile != "" {
		b, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file %s: %w", t.CAFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(b) {
			return nil, fmt.Errorf("ca file %s: no valid certificates found", t.CAFile)
		}
		cfg.RootCAs = pool
	}
	if hasClientCert(t) {
		cert, err := loadClientCert(t)
		if err != nil {
			return nil, fmt.Errorf("load client keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

func hasClientCert(t TLSConfig) bool {
	return len(t.CertPEM) > 0 || len(t.KeyPEM) > 0 || t.CertFile != "" || t.KeyFile != ""
}

// loadClientCert resolves a client cert/key pair from t, preferring the
// in-memory PEM form over files, then decrypts the key if KeyPassword is
// set. This is the key_mem/key_file-with-password half of the transport's
// contract.
func loadClientCert(t TLSConfig) (tls.Certificate, error) {
	certPEM, keyPEM, err := clientCertKeyPEM(t)
	if err != nil {
		return tls.Certificate{}, err
	}
	if t.KeyPassword == "" {
		return tls.X509KeyPair(certPEM, keyPEM)
	}
	return decryptedKeyPair(certPEM, keyPEM, t.KeyPassword)
}

func clientCertKeyPEM(t TLSConfig) (certPEM, keyPEM []byte, err error) {
	if len(t.CertPEM) > 0 || len(t.KeyPEM) > 0 {
		if len(t.CertPEM) == 0 || len(t.KeyPEM) == 0 {
			return nil, nil, fmt.Errorf("both cert and key PEM required for mTLS")
		}
		return t.CertPEM, t.KeyPEM, nil
	}
	if t.CertFile == "" || t.KeyFile == "" {
		return nil, nil, fmt.Errorf("both cert and key required for mTLS (cert=%q key=%q)", t.CertFile, t.KeyFile)
	}
	certPEM, err = os.ReadFile(t.CertFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read cert file %s: %w", t.CertFile, err)
	}
	keyPEM, err = os.ReadFile(t.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read key file %s: %w", t.KeyFile, err)
	}
	return certPEM, keyPEM, nil
}

// decryptedKeyPair decrypts an encrypted PKCS#8 private key with password,
// re-encodes it in the clear, and builds a tls.Certificate from it.
func decryptedKeyPair(certPEM, keyPEM []byte, password string) (tls.Certificate, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return tls.Certificate{}, fmt.Errorf("no PEM block found in client key")
	}
	key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(password))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decrypt client key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("re-encode decrypted client key: %w", err)
	}
	plainKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	return tls.X509KeyPair(certPEM, plainKeyPEM)
}

// wantsTLS reports whether the configured transport requires TLS: always,
// unless the host is localhost and unencrypted loopback was explicitly
// enabled.
func wantsTLS(host string, t TLSConfig) bool {
	if host == "localhost" && t.UnencryptedLoopback {
		return false
	}
	return true
}

// tlsHandshake wraps conn in a TLS client connection and performs the
// handshake, bounded by ctx. A cancelled/expired ctx surfaces as a
// handshake error; Go's net/tls collapses libcpdlc's retry-until-fatal-or-
// timeout loop into one context-bounded call.
func tlsHandshake(ctx context.Context, conn net.Conn, cfg *tls.Config) (*tls.Conn, error) {
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tc, nil
}
