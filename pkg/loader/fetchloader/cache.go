package fetchloader

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/yndnr/confkit-go/pkg/cmap"
)

// CachedResponse is a stored HTTP response.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// ETag returns the entity tag of the response.
func (r *CachedResponse) ETag() string {
	if r == nil {
		return ""
	}
	return r.Header.Get("ETag")
}

// RequestCache stores responses for offline use and revalidation.
type RequestCache interface {
	// Online reports whether the network should be tried at all.
	Online() bool
	// Get returns the stored response for req, or nil.
	Get(ctx context.Context, req *http.Request) (*CachedResponse, error)
	// Store saves a successful response for req.
	Store(ctx context.Context, req *http.Request, res *CachedResponse) error
}

// MemoryCache is a RequestCache held in process memory and keyed by
// method and URL.
type MemoryCache struct {
	entries *cmap.Map[*CachedResponse]
	offline atomic.Bool
}

// NewMemoryCache creates an empty, online cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: cmap.New[*CachedResponse]()}
}

// SetOnline toggles the reported connectivity.
func (c *MemoryCache) SetOnline(online bool) {
	c.offline.Store(!online)
}

// Online implements RequestCache.
func (c *MemoryCache) Online() bool {
	return !c.offline.Load()
}

// Get implements RequestCache.
func (c *MemoryCache) Get(_ context.Context, req *http.Request) (*CachedResponse, error) {
	res, ok := c.entries.Get(cacheKey(req))
	if !ok {
		return nil, nil
	}
	return res, nil
}

// Store implements RequestCache.
func (c *MemoryCache) Store(_ context.Context, req *http.Request, res *CachedResponse) error {
	stored := &CachedResponse{
		Status: res.Status,
		Header: res.Header.Clone(),
		Body:   append([]byte(nil), res.Body...),
	}
	c.entries.Set(cacheKey(req), stored)
	return nil
}

// Len returns the number of stored responses.
func (c *MemoryCache) Len() int {
	return c.entries.Count()
}

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}
