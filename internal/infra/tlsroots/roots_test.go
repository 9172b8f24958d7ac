package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/confkit-go/pkg/logger"
)

// writeKeyPair writes a self-signed certificate and its key to dir.
func writeKeyPair(t *testing.T, dir, cn string) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey() error = %v", err)
	}

	certFile = filepath.Join(dir, "client.crt")
	keyFile = filepath.Join(dir, "client.key")
	writePEM(t, certFile, "CERTIFICATE", der)
	writePEM(t, keyFile, "EC PRIVATE KEY", keyDER)
	return certFile, keyFile
}

func writePEM(t *testing.T, path, typ string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func leafCN(t *testing.T, c *tls.Certificate) string {
	t.Helper()
	if c == nil || len(c.Certificate) == 0 {
		t.Fatal("no certificate")
	}
	leaf, err := x509.ParseCertificate(c.Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}
	return leaf.Subject.CommonName
}

func TestPool_AddCertPEM(t *testing.T) {
	certFile, _ := writeKeyPair(t, t.TempDir(), "ca")
	data, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"certificate", data, nil},
		{"empty", nil, ErrNoCertsFound},
		{"not pem", []byte("not a certificate"), ErrNoCertsFound},
		{"only key", pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1}}), ErrNoCertsFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEmptyPool().AddCertPEM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddCertPEM() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPool_AddCertPEM_Invalid(t *testing.T) {
	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})
	if err := NewEmptyPool().AddCertPEM(bad); err == nil || errors.Is(err, ErrNoCertsFound) {
		t.Errorf("AddCertPEM() error = %v, want parse error", err)
	}
}

func TestPool_AddCertFile_Missing(t *testing.T) {
	if err := NewPool().AddCertFile(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfig_Enabled(t *testing.T) {
	tests := []struct {
		cfg  Config
		want bool
	}{
		{Config{}, false},
		{Config{Watch: true}, false},
		{Config{CAFile: "ca.pem"}, true},
		{Config{CertFile: "c", KeyFile: "k"}, true},
		{Config{InsecureSkipVerify: true}, true},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			if got := tt.cfg.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClientConfig_CAFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	writePEM(t, caFile, "CERTIFICATE", srv.Certificate().Raw)

	tc, closer, err := ClientConfig(Config{CAFile: caFile}, logger.Nop())
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	defer closer.Close()
	if tc.GetClientCertificate != nil {
		t.Error("no client certificate was configured")
	}

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tc}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	// Without the CA the server is not trusted.
	plain := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}}}
	if _, err := plain.Get(srv.URL); err == nil {
		t.Error("expected verification failure without CA file")
	}
}

func TestClientConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing ca", Config{CAFile: filepath.Join(dir, "missing.pem")}},
		{"cert without key", Config{CertFile: filepath.Join(dir, "c.crt")}},
		{"missing pair", Config{CertFile: filepath.Join(dir, "c.crt"), KeyFile: filepath.Join(dir, "c.key")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ClientConfig(tt.cfg, logger.Nop()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClientConfig_KeyPair(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, t.TempDir(), "client-1")

	tc, closer, err := ClientConfig(Config{CertFile: certFile, KeyFile: keyFile}, logger.Nop())
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	defer closer.Close()

	cert, err := tc.GetClientCertificate(&tls.CertificateRequestInfo{})
	if err != nil {
		t.Fatalf("GetClientCertificate() error = %v", err)
	}
	if cn := leafCN(t, cert); cn != "client-1" {
		t.Errorf("CommonName = %q, want client-1", cn)
	}
}

func TestKeyPair_Watch(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "client-1")

	kp, err := LoadKeyPair(certFile, keyFile, logger.Nop())
	if err != nil {
		t.Fatalf("LoadKeyPair() error = %v", err)
	}
	defer kp.Close()
	if err := kp.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writeKeyPair(t, dir, "client-2")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if leafCN(t, kp.Certificate()) == "client-2" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("certificate not reloaded, CommonName = %q", leafCN(t, kp.Certificate()))
}

func TestKeyPair_CloseIdempotent(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, t.TempDir(), "client")
	kp, err := LoadKeyPair(certFile, keyFile, logger.Nop())
	if err != nil {
		t.Fatalf("LoadKeyPair() error = %v", err)
	}
	if err := kp.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := kp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := kp.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
