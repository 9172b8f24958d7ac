package tlsroots

import (
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/yndnr/confkit-go/internal/infra/confloader"
	"github.com/yndnr/confkit-go/pkg/logger"
)

// KeyPair is a client certificate that can follow its files on disk.
type KeyPair struct {
	certFile string
	keyFile  string
	log      logger.Logger

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher *confloader.Watcher
}

// LoadKeyPair reads the certificate and key at the given paths.
func LoadKeyPair(certFile, keyFile string, log logger.Logger) (*KeyPair, error) {
	if log == nil {
		log = logger.Default()
	}
	kp := &KeyPair{certFile: certFile, keyFile: keyFile, log: log}
	if err := kp.reload(); err != nil {
		return nil, err
	}
	return kp, nil
}

func (kp *KeyPair) reload() error {
	cert, err := tls.LoadX509KeyPair(kp.certFile, kp.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	kp.mu.Lock()
	kp.cert = &cert
	kp.mu.Unlock()
	return nil
}

// Watch reloads the pair whenever either file changes. A pair that fails
// to load keeps the previous certificate.
func (kp *KeyPair) Watch(opts ...confloader.WatcherOption) error {
	w, err := confloader.NewWatcher(append([]confloader.WatcherOption{confloader.WithWatcherLogger(kp.log)}, opts...)...)
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	for _, path := range []string{kp.certFile, kp.keyFile} {
		if err := w.Watch(path); err != nil {
			_ = w.Stop()
			return fmt.Errorf("tlsroots: watch %s: %w", path, err)
		}
	}
	w.OnChange(func(path string) {
		if err := kp.reload(); err != nil {
			kp.log.Warn("client certificate reload failed", "path", path, "error", err)
			return
		}
		kp.log.Info("client certificate reloaded", "path", path)
	})
	w.StartAsync()

	kp.mu.Lock()
	kp.watcher = w
	kp.mu.Unlock()
	return nil
}

// Certificate returns the current certificate.
func (kp *KeyPair) Certificate() *tls.Certificate {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.cert
}

// GetClientCertificate implements tls.Config.GetClientCertificate.
func (kp *KeyPair) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return kp.Certificate(), nil
}

// Close stops watching.
func (kp *KeyPair) Close() error {
	kp.mu.Lock()
	w := kp.watcher
	kp.watcher = nil
	kp.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}
