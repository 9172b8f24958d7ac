// Package fetchloader provides a caching loader over a JSON document
// fetched by HTTP.
//
// Each load performs a GET. When a RequestCache holds an earlier response
// its ETag is sent as If-None-Match, and a 304 or any status of 400 and
// above falls back to the cached body. An offline cache serves the stored
// response without touching the network.
package fetchloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/confkit-go/internal/infra/confloader"
	"github.com/yndnr/confkit-go/pkg/loadable"
	"github.com/yndnr/confkit-go/pkg/loader"
	"github.com/yndnr/confkit-go/pkg/parser"
)

// DefaultType is the loader type.
const DefaultType = "fetch"

// Config configures a fetch loader.
type Config struct {
	// Request builds the request for each load.
	Request loadable.Loadable[*http.Request]
	// Client sends the request. Defaults to NewClient(DefaultClientConfig()).
	Client Doer
	// Cache is optional.
	Cache RequestCache
	// CacheHitStatus is the status that selects the cached body. Defaults
	// to 304.
	CacheHitStatus int
	// Strict turns content-type and JSON failures into load errors. By
	// default they are logged and the loader serves no values.
	Strict bool
	// Rules validate the decoded document. A failure always fails the load.
	Rules []parser.Rule[map[string]string]
	// MinInterval limits how often the network is tried.
	MinInterval time.Duration
	// Type overrides DefaultType.
	Type string
	// Closer is closed with the loader, e.g. a client certificate watcher.
	Closer io.Closer
}

// Loader serves the top-level members of a fetched JSON object.
type Loader struct {
	*loader.MapLoader
	cfg     Config
	limiter *rate.Limiter
	// last is the most recent accepted document. Loads run under the
	// MapLoader load lock, so it needs no lock of its own.
	last map[string]string
}

// New creates a fetch loader.
func New(cfg Config, opts ...loader.Option) *Loader {
	if cfg.Type == "" {
		cfg.Type = DefaultType
	}
	if cfg.CacheHitStatus == 0 {
		cfg.CacheHitStatus = http.StatusNotModified
	}

	l := &Loader{cfg: cfg}
	if cfg.MinInterval > 0 {
		l.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	l.MapLoader = loader.NewMapLoader(cfg.Type, l.loadData, opts...)
	if l.cfg.Client == nil {
		l.cfg.Client = NewClient(DefaultClientConfig(), l.Logger())
	}
	return l
}

// Close releases cfg.Closer.
func (l *Loader) Close() error {
	if l.cfg.Closer == nil {
		return nil
	}
	return l.cfg.Closer.Close()
}

// NewURL creates a fetch loader for a GET of rawURL.
func NewURL(rawURL string, cfg Config, opts ...loader.Option) (*Loader, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid fetch url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("fetch url %s is not absolute", sanitize(u))
	}
	cfg.Request = loadable.Deferred(func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	})
	return New(cfg, opts...), nil
}

func (l *Loader) loadData(ctx context.Context) (bool, error) {
	req, err := loadable.Resolve(ctx, l.cfg.Request)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	if req == nil {
		return false, fmt.Errorf("build request: no request")
	}
	req = req.Clone(ctx)
	path := sanitize(req.URL)

	if l.limiter != nil && !l.limiter.Allow() {
		if l.last != nil {
			l.LogEvent(loader.EventLoad, "serving previous config of %s, last fetch was too recent", path)
			l.InitData(l.last)
			return true, nil
		}
		l.LogEvent(loader.EventLoad, "skipping fetch of %s, last attempt was too recent", path)
		return false, nil
	}

	res, err := l.fetchOrCached(ctx, req, path)
	if err != nil {
		return false, err
	}
	if res == nil {
		l.LogEvent(loader.EventLoad, "client is offline and does not have cached response [%s]", path)
		return false, nil
	}

	if !isJSON(res.Header) {
		msg := fmt.Sprintf("unsupported content-type %s [%s]", res.Header.Get("Content-Type"), path)
		if l.cfg.Strict {
			return false, fmt.Errorf("%s", msg)
		}
		l.LogEvent(loader.EventLoad, "%s", msg)
		return false, nil
	}

	data, err := decode(res.Body)
	if err != nil {
		if l.cfg.Strict {
			return false, fmt.Errorf("JSON error: %w", err)
		}
		l.LogEvent(loader.EventLoadError, "JSON error: %v", err)
		l.InitData(nil)
		return true, nil
	}
	if err := parser.Check(ctx, "config document", data, l.cfg.Rules...); err != nil {
		return false, fmt.Errorf("validation failed [%s]: %w", path, err)
	}

	l.last = data
	l.InitData(data)
	l.LogEvent(loader.EventLoad, "successfully loaded config %s", path)
	return true, nil
}

func (l *Loader) fetchOrCached(ctx context.Context, req *http.Request, path string) (*CachedResponse, error) {
	var cached *CachedResponse
	if l.cfg.Cache != nil {
		c, err := l.cfg.Cache.Get(ctx, req)
		if err != nil {
			l.LogEvent(loader.EventLoadError, "failed to read cached response: %v", err)
		}
		cached = c
		if !l.cfg.Cache.Online() {
			if cached != nil {
				l.LogEvent(loader.EventLoad, "returning cached response from %s", path)
			}
			return cached, nil
		}
		if etag := cached.ETag(); etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
	}

	l.LogEvent(loader.EventLoad, "fetching config from %s", path)
	res, err := l.do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.LogEvent(loader.EventLoadError, "failed to fetch %s: %v", path, err)
		return cached, nil
	}

	if res.Status >= 200 && res.Status < 300 && l.cfg.Cache != nil {
		if err := l.cfg.Cache.Store(ctx, req, res); err != nil {
			l.LogEvent(loader.EventLoadError, "failed to store response in cache: %v", err)
		} else {
			l.LogEvent(loader.EventLoad, "stored response in cache")
		}
	}
	if res.Status == l.cfg.CacheHitStatus || res.Status >= 400 {
		if res.Status >= 400 {
			l.LogEvent(loader.EventLoadError, "fetch of %s returned status %d", path, res.Status)
		}
		return cached, nil
	}
	return res, nil
}

func (l *Loader) do(req *http.Request) (*CachedResponse, error) {
	resp, err := l.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &CachedResponse{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

func isJSON(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func decode(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return confloader.Stringify(obj)
}

func sanitize(u *url.URL) string {
	return parser.RedactURL(u, parser.LogMasked)
}
