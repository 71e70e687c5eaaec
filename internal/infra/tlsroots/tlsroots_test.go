package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/yndnr/statehttpd/internal/core/domain"
)

// writeTestPair writes a self-signed certificate for cn.
func writeTestPair(t *testing.T, certFile, keyFile, cn string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}
}

func leafCN(t *testing.T, w *Watcher) string {
	t.Helper()
	cert, _ := w.GetCertificate(nil)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	return leaf.Subject.CommonName
}

func TestServerConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem")
	writeTestPair(t, certFile, keyFile, "one")

	cfg, err := ServerConfig(certFile, keyFile)
	if err != nil {
		t.Fatalf("ServerConfig() error = %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("len(Certificates) = %d, want 1", len(cfg.Certificates))
	}
}

func TestServerConfig_Unreadable(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "c.pem")
	os.WriteFile(certFile, []byte("garbage"), 0o644)

	_, err := ServerConfig(certFile, filepath.Join(dir, "missing.pem"))
	if !domain.IsDomainError(err, domain.ErrTLSLoad.Code) {
		t.Errorf("ServerConfig() error = %v, want %s", err, domain.ErrTLSLoad.Code)
	}
}

func TestClientConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem")
	writeTestPair(t, certFile, keyFile, "ca")

	cfg, err := ClientConfig(certFile, false)
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if cfg.RootCAs == nil {
		t.Error("RootCAs not set")
	}

	if _, err := ClientConfig(keyFile, false); err != ErrNoCertsFound {
		t.Errorf("ClientConfig(key) error = %v, want ErrNoCertsFound", err)
	}
}

func TestWatcher_Reload(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "c.pem"), filepath.Join(dir, "k.pem")
	writeTestPair(t, certFile, keyFile, "first")

	reloaded := make(chan error, 4)
	w, err := NewWatcher(certFile, keyFile,
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(err error) { reloaded <- err }))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.StartAsync()
	defer w.Stop()

	if got := leafCN(t, w); got != "first" {
		t.Fatalf("initial CN = %q, want first", got)
	}

	writeTestPair(t, certFile, keyFile, "second")

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("certificate was not reloaded")
	}
	if got := leafCN(t, w); got != "second" {
		t.Errorf("CN after reload = %q, want second", got)
	}
	if w.TLSConfig().GetCertificate == nil {
		t.Error("TLSConfig() missing GetCertificate")
	}
}

func TestNewWatcher_InitialLoadFails(t *testing.T) {
	_, err := NewWatcher("/nonexistent/cert.pem", "/nonexistent/key.pem")
	if !domain.IsDomainError(err, domain.ErrTLSLoad.Code) {
		t.Errorf("NewWatcher() error = %v, want %s", err, domain.ErrTLSLoad.Code)
	}
}
