package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/logging"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
	"github.com/AbrahamRP97/neighnet-go/internal/session"
	"github.com/AbrahamRP97/neighnet-go/internal/uploads"
)

// DefaultPageSize matches the feed request limit.
const DefaultPageSize = 10

// ErrNoSession indicates a feed operation was attempted without a stored
// bearer token.
var ErrNoSession = errors.New("feed: no session token")

// Feed is the cursor-paginated post list with its end latch. Once a fetch
// returns an empty page, drops the cursor, or fails, LoadMore becomes a
// permanent no-op until the next full refresh.
type Feed struct {
	client   *api.Client
	eps      api.Endpoints
	store    *session.Store
	uploader *uploads.Uploader
	pageSize int

	mu         sync.Mutex
	items      []models.Post
	nextCursor string
	loading    bool
	reachedEnd bool
}

// New constructs a Feed with the default page size.
func New(client *api.Client, eps api.Endpoints, store *session.Store, uploader *uploads.Uploader) *Feed {
	return &Feed{
		client:   client,
		eps:      eps,
		store:    store,
		uploader: uploader,
		pageSize: DefaultPageSize,
	}
}

// page is the normalized wire page. The backend historically returned a bare
// array; newer deployments return {items, nextCursor}. Both collapse here, at
// the network boundary, and nothing downstream branches on the shape again.
type page struct {
	Items      []models.Post
	NextCursor string
}

func normalizePage(raw json.RawMessage) (page, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return page{}, nil
	}

	if trimmed[0] == '[' {
		var items []models.Post
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return page{}, fmt.Errorf("decode legacy feed page: %w", err)
		}
		return page{Items: items}, nil
	}

	var envelope struct {
		Items      []models.Post `json:"items"`
		NextCursor string        `json:"nextCursor"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return page{}, fmt.Errorf("decode feed page: %w", err)
	}
	return page{Items: envelope.Items, NextCursor: envelope.NextCursor}, nil
}

func (f *Feed) token() (string, error) {
	sess, err := f.store.Load()
	if err != nil || !sess.HasToken() {
		return "", ErrNoSession
	}
	return sess.Token, nil
}

// LoadFirstPage performs a full refresh: the end latch resets, and on any
// failure the list empties with no cursor.
func (f *Feed) LoadFirstPage(ctx context.Context) ([]models.Post, error) {
	if _, err := f.token(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return f.snapshot(), nil
	}
	f.loading = true
	f.mu.Unlock()
	defer f.setLoading(false)

	p, err := f.fetchPage(ctx, "")
	if err != nil {
		f.mu.Lock()
		f.items = nil
		f.nextCursor = ""
		f.mu.Unlock()
		return nil, err
	}

	f.mu.Lock()
	f.items = p.Items
	f.nextCursor = p.NextCursor
	f.reachedEnd = false
	f.mu.Unlock()

	return f.snapshot(), nil
}

// LoadMore fetches the next page. It is a synchronous no-op while a load is
// in flight, once the end latch is set, when no cursor exists, or without a
// token.
func (f *Feed) LoadMore(ctx context.Context) ([]models.Post, error) {
	if _, err := f.token(); err != nil {
		return nil, nil
	}

	f.mu.Lock()
	if f.loading || f.reachedEnd || f.nextCursor == "" {
		f.mu.Unlock()
		return nil, nil
	}
	cursor := f.nextCursor
	f.loading = true
	f.mu.Unlock()
	defer f.setLoading(false)

	p, err := f.fetchPage(ctx, cursor)
	if err != nil {
		// A failed fetch latches paging too; only a full refresh resumes.
		f.mu.Lock()
		f.reachedEnd = true
		f.mu.Unlock()
		return nil, err
	}

	f.mu.Lock()
	f.items = append(f.items, p.Items...)
	f.nextCursor = p.NextCursor
	if len(p.Items) == 0 || p.NextCursor == "" {
		f.reachedEnd = true
	}
	f.mu.Unlock()

	logging.FromContext(ctx).Info("feed page loaded", "count", len(p.Items), "more", !f.ReachedEnd())

	return p.Items, nil
}

func (f *Feed) fetchPage(ctx context.Context, cursor string) (page, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprint(f.pageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var raw json.RawMessage
	if err := f.client.Get(ctx, f.eps.Posts+"?"+query.Encode(), &raw); err != nil {
		return page{}, err
	}
	return normalizePage(raw)
}

// Items returns a copy of the loaded posts.
func (f *Feed) Items() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// ReachedEnd reports whether the end latch is set.
func (f *Feed) ReachedEnd() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachedEnd
}

func (f *Feed) snapshot() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() []models.Post {
	out := make([]models.Post, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed) setLoading(v bool) {
	f.mu.Lock()
	f.loading = v
	f.mu.Unlock()
}
