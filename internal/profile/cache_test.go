package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

type stubLookup struct {
	calls    int
	profiles map[string]models.Profile
	err      error
}

func (s *stubLookup) FetchPublic(_ context.Context, userID string) (models.Profile, error) {
	s.calls++
	if s.err != nil {
		return models.Profile{}, s.err
	}
	return s.profiles[userID], nil
}

func TestCachingLookupServesFromCache(t *testing.T) {
	base := &stubLookup{profiles: map[string]models.Profile{
		"u1": {ID: "u1", Nombre: "Ana"},
	}}
	cache := NewCachingLookup(base, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := cache.FetchPublic(context.Background(), "u1")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if p.Nombre != "Ana" {
			t.Fatalf("fetch %d: unexpected profile %+v", i, p)
		}
	}
	if base.calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", base.calls)
	}
}

func TestCachingLookupDoesNotCacheErrors(t *testing.T) {
	base := &stubLookup{err: errors.New("unavailable")}
	cache := NewCachingLookup(base, time.Minute)

	if _, err := cache.FetchPublic(context.Background(), "u1"); err == nil {
		t.Fatal("expected error from upstream")
	}

	base.err = nil
	base.profiles = map[string]models.Profile{"u1": {ID: "u1", Nombre: "Ana"}}
	p, err := cache.FetchPublic(context.Background(), "u1")
	if err != nil {
		t.Fatalf("fetch after recovery: %v", err)
	}
	if p.Nombre != "Ana" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if base.calls != 2 {
		t.Fatalf("failed lookups must not populate the cache, got %d calls", base.calls)
	}
}

func TestCachingLookupNilBase(t *testing.T) {
	var cache *CachingLookup
	if _, err := cache.FetchPublic(context.Background(), "u1"); !errors.Is(err, ErrLookupUnavailable) {
		t.Fatalf("expected ErrLookupUnavailable, got %v", err)
	}
}
