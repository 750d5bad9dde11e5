package profile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

// ErrLookupUnavailable indicates the cache has no underlying lookup to
// delegate to.
var ErrLookupUnavailable = errors.New("profile lookup unavailable")

// PublicLookup resolves public profiles by user id.
type PublicLookup interface {
	FetchPublic(ctx context.Context, userID string) (models.Profile, error)
}

type cacheEntry struct {
	profile models.Profile
	expires time.Time
}

// CachingLookup wraps another PublicLookup with a TTL-based in-memory cache,
// so feeds showing the same author repeatedly do not refetch the profile per
// post.
type CachingLookup struct {
	base PublicLookup
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingLookup returns a PublicLookup that caches results for the
// provided TTL.
func NewCachingLookup(base PublicLookup, ttl time.Duration) *CachingLookup {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingLookup{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// FetchPublic returns a cached profile when available, otherwise it delegates
// to the underlying lookup and stores the result.
func (c *CachingLookup) FetchPublic(ctx context.Context, userID string) (models.Profile, error) {
	if c == nil || c.base == nil {
		return models.Profile{}, ErrLookupUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[userID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.profile, nil
	}

	p, err := c.base.FetchPublic(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}

	c.mu.Lock()
	c.items[userID] = cacheEntry{profile: p, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return p, nil
}
