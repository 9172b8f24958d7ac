package fetchloader

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yndnr/confkit-go/pkg/logger"
)

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures the default retrying client.
type ClientConfig struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	// TLS replaces the transport's TLS settings when set.
	TLS *tls.Config
}

// DefaultClientConfig returns the default retry policy.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RetryMax:     3,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		Timeout:      10 * time.Second,
	}
}

// NewClient returns an HTTP client that retries connection errors and 5xx
// responses with exponential backoff. Retry diagnostics go to l.
func NewClient(cfg ClientConfig, l logger.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	if t, ok := rc.HTTPClient.Transport.(*http.Transport); ok && cfg.TLS != nil {
		t.TLSClientConfig = cfg.TLS
	}
	rc.Logger = retryLogger{l: l}
	// Keep the last response so that a cached copy can replace it.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc.StandardClient()
}

// retryLogger adapts logger.Logger to retryablehttp.LeveledLogger.
// retryablehttp logs every attempt at debug level.
type retryLogger struct {
	l logger.Logger
}

func (r retryLogger) Error(msg string, kv ...any) { r.l.Error(msg, kv...) }
func (r retryLogger) Warn(msg string, kv ...any)  { r.l.Warn(msg, kv...) }
func (r retryLogger) Info(msg string, kv ...any)  { r.l.Debug(msg, kv...) }
func (r retryLogger) Debug(msg string, kv ...any) { r.l.Debug(msg, kv...) }
