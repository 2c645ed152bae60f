package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrAccessDenied indicates the capability resource kept answering 403 even
// after the cached set was invalidated and refetched.
var ErrAccessDenied = errors.New("access denied")

const cacheKey = "capabilities"

// Cache stores the last good capability set with its ETag. It is an
// explicit injectable object (not module-level state) so tests can isolate
// it and several tenants can coexist in one process.
type Cache interface {
	Get() (*Entry, bool)
	Put(*Entry)
	Invalidate()
}

// Entry is one cached capability snapshot.
type Entry struct {
	Set  *Set
	ETag string
}

// MemoryCache is the default Cache backed by go-cache.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a cache whose entries expire after ttl; a
// non-positive ttl never expires.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	return &MemoryCache{store: gocache.New(ttl, 10*time.Minute)}
}

func (c *MemoryCache) Get() (*Entry, bool) {
	value, ok := c.store.Get(cacheKey)
	if !ok {
		return nil, false
	}

	entry, ok := value.(*Entry)

	return entry, ok
}

func (c *MemoryCache) Put(entry *Entry) {
	c.store.Set(cacheKey, entry, gocache.DefaultExpiration)
}

func (c *MemoryCache) Invalidate() {
	c.store.Delete(cacheKey)
}

// Loader fetches the capability resource with ETag revalidation. A 304 keeps
// the cached set; a 403 invalidates the cache and forces one refetch before
// it is surfaced as an access-denied state.
type Loader struct {
	url        string
	httpClient *http.Client
	cache      Cache
	logger     *slog.Logger
}

// NewLoader creates a Loader. A nil cache gets a non-expiring MemoryCache.
func NewLoader(url string, httpClient *http.Client, cache Cache) *Loader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if cache == nil {
		cache = NewMemoryCache(0)
	}

	return &Loader{
		url:        url,
		httpClient: httpClient,
		cache:      cache,
		logger:     slog.With("module", "capability"),
	}
}

// Load returns the current capability set, revalidating the cache.
func (l *Loader) Load(ctx context.Context) (*Set, error) {
	set, err := l.load(ctx, true)
	if err != nil {
		return nil, err
	}

	return set, nil
}

// Invalidate drops the cached set; the next Load refetches unconditionally.
func (l *Loader) Invalidate() {
	l.cache.Invalidate()
}

func (l *Loader) load(ctx context.Context, retryOnDenied bool) (*Set, error) {
	cached, hasCached := l.cache.Get()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build capabilities request: %w", err)
	}

	if hasCached && cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capabilities: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if !hasCached {
			return nil, fmt.Errorf("capability resource answered 304 without a cached set")
		}

		return cached.Set, nil

	case http.StatusForbidden:
		l.cache.Invalidate()

		if !retryOnDenied {
			return nil, ErrAccessDenied
		}

		l.logger.Warn("capabilities denied, refetching once without cache")

		return l.load(ctx, false)

	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read capabilities: %w", err)
		}

		set, err := Decode(body)
		if err != nil {
			return nil, err
		}

		l.cache.Put(&Entry{Set: set, ETag: resp.Header.Get("ETag")})

		return set, nil

	default:
		return nil, fmt.Errorf("unexpected capabilities status %d", resp.StatusCode)
	}
}
