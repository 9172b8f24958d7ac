package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yndnr/confkit-go/pkg/logger"
)

// ErrNoCertsFound is returned when PEM data holds no certificate.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// Pool is a set of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool returns a pool seeded with the system roots, or an empty pool
// where the system roots are unavailable.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool returns a pool without system roots.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddCertFile adds every certificate in the PEM file at path.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read CA file %s: %w", path, err)
	}
	if err := p.AddCertPEM(data); err != nil {
		return fmt.Errorf("%w (%s)", err, path)
	}
	return nil
}

// AddCertPEM adds every CERTIFICATE block of pemData.
func (p *Pool) AddCertPEM(pemData []byte) error {
	added := 0
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// Config describes client TLS material.
type Config struct {
	// CAFile is trusted in addition to the system roots.
	CAFile string
	// CertFile and KeyFile hold the client certificate.
	CertFile string
	KeyFile  string
	// Watch reloads the client certificate when its files change.
	Watch bool
	// InsecureSkipVerify disables server verification.
	InsecureSkipVerify bool
}

// Enabled reports whether cfg changes the default client TLS settings.
func (cfg Config) Enabled() bool {
	return cfg.CAFile != "" || cfg.CertFile != "" || cfg.InsecureSkipVerify
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ClientConfig builds a client tls.Config from cfg. The returned closer
// stops the certificate watcher, if any.
func ClientConfig(cfg Config, log logger.Logger) (*tls.Config, io.Closer, error) {
	if log == nil {
		log = logger.Default()
	}
	tc := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CAFile != "" {
		pool := NewPool()
		if err := pool.AddCertFile(cfg.CAFile); err != nil {
			return nil, nil, err
		}
		tc.RootCAs = pool.Pool()
	}

	if cfg.CertFile == "" && cfg.KeyFile == "" {
		return tc, nopCloser{}, nil
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, nil, errors.New("tlsroots: cert file and key file must be set together")
	}

	kp, err := LoadKeyPair(cfg.CertFile, cfg.KeyFile, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Watch {
		if err := kp.Watch(); err != nil {
			return nil, nil, err
		}
	}
	tc.GetClientCertificate = kp.GetClientCertificate
	return tc, kp, nil
}
