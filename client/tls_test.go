package client

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

func selfSignedKeyPair(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "cpdlc-test-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func encryptedKeyPEM(t *testing.T, keyPEM []byte, password string) []byte {
	t.Helper()
	block, _ := pem.Decode(keyPEM)
	require.NotNil(t, block)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	der, err := pkcs8.MarshalPrivateKey(key, []byte(password), nil)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
}

func TestLoadClientCertFromPEM(t *testing.T) {
	certPEM, keyPEM := selfSignedKeyPair(t)
	cert, err := loadClientCert(TLSConfig{CertPEM: certPEM, KeyPEM: keyPEM})
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)
}

func TestLoadClientCertPrefersPEMOverFiles(t *testing.T) {
	certPEM, keyPEM := selfSignedKeyPair(t)
	cert, err := loadClientCert(TLSConfig{
		CertPEM:  certPEM,
		KeyPEM:   keyPEM,
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	})
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)
}

func TestLoadClientCertRejectsMismatchedPEMPair(t *testing.T) {
	certPEM, _ := selfSignedKeyPair(t)
	_, err := loadClientCert(TLSConfig{CertPEM: certPEM})
	require.Error(t, err)
}

func TestLoadClientCertDecryptsPasswordProtectedKey(t *testing.T) {
	certPEM, keyPEM := selfSignedKeyPair(t)
	encKeyPEM := encryptedKeyPEM(t, keyPEM, "hunter2")

	cert, err := loadClientCert(TLSConfig{
		CertPEM:     certPEM,
		KeyPEM:      encKeyPEM,
		KeyPassword: "hunter2",
	})
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)
}

func TestLoadClientCertWrongPasswordFails(t *testing.T) {
	certPEM, keyPEM := selfSignedKeyPair(t)
	encKeyPEM := encryptedKeyPEM(t, keyPEM, "hunter2")

	_, err := loadClientCert(TLSConfig{
		CertPEM:     certPEM,
		KeyPEM:      encKeyPEM,
		KeyPassword: "wrong",
	})
	require.Error(t, err)
}

func TestBuildTLSConfigWiresClientCertificate(t *testing.T) {
	certPEM, keyPEM := selfSignedKeyPair(t)
	cfg, err := buildTLSConfig("cpdlc.example.net", TLSConfig{CertPEM: certPEM, KeyPEM: keyPEM})
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	require.Equal(t, "cpdlc.example.net", cfg.ServerName)
}

func TestBuildTLSConfigRejectsOneSidedPEMPair(t *testing.T) {
	_, keyPEM := selfSignedKeyPair(t)
	_, err := buildTLSConfig("cpdlc.example.net", TLSConfig{KeyPEM: keyPEM})
	require.Error(t, err)
}
