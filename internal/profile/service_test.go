package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/session"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *session.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client := api.New(server.Client(), api.TokenFunc(func() string {
		token, err := store.Get(session.KeyToken)
		if err != nil {
			return ""
		}
		return token
	}))
	eps := api.Endpoints{Auth: server.URL + "/api/auth"}
	return NewService(client, eps, store), store
}

func TestWithVersion(t *testing.T) {
	cases := []struct {
		url     string
		version int
		want    string
	}{
		{"", 0, ""},
		{"", 7, ""},
		{"https://cdn.example/a.jpg", 0, "https://cdn.example/a.jpg?v=0"},
		{"https://cdn.example/a.jpg", 3, "https://cdn.example/a.jpg?v=3"},
		{"https://cdn.example/a.jpg?sig=x", 2, "https://cdn.example/a.jpg?sig=x&v=2"},
	}
	for _, tc := range cases {
		if got := WithVersion(tc.url, tc.version); got != tc.want {
			t.Errorf("WithVersion(%q, %d) = %q, want %q", tc.url, tc.version, got, tc.want)
		}
	}
}

func TestInitWithoutTokenIsNoop(t *testing.T) {
	var requests atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})
	svc, _ := newTestService(t, handler)

	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("init without token: %v", err)
	}
	if svc.Current() != nil {
		t.Fatal("expected no profile without a session")
	}
	if requests.Load() != 0 {
		t.Fatal("must not call /me without a token")
	}
}

func TestRefreshAuthErrorWipesStorage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"token vencido"}`)
	})
	svc, store := newTestService(t, handler)
	if err := store.Set(session.KeyToken, "stale"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := store.Set(session.KeyUserID, "u1"); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	err := svc.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected refresh to fail")
	}
	if !api.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if _, getErr := store.Get(session.KeyToken); !errors.Is(getErr, session.ErrNotFound) {
		t.Fatal("401 must wipe persisted storage")
	}
	if _, getErr := store.Get(session.KeyUserID); !errors.Is(getErr, session.ErrNotFound) {
		t.Fatal("401 must wipe every stored entry")
	}
	if svc.Current() != nil {
		t.Fatal("profile must be reset after an auth error")
	}
}

func TestRefreshServerErrorKeepsStorage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc, store := newTestService(t, handler)
	if err := store.Set(session.KeyToken, "still-good"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh to fail")
	}
	token, err := store.Get(session.KeyToken)
	if err != nil || token != "still-good" {
		t.Fatalf("non-auth failures must keep the stored token, got %q %v", token, err)
	}
	if svc.Current() != nil {
		t.Fatal("profile must be nulled in memory on any failure")
	}
}

func TestAvatarURLTracksLocalVersion(t *testing.T) {
	var serverVersion atomic.Int64
	serverVersion.Store(4)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"u1","nombre":"Ana","foto_url":"https://cdn.example/ana.jpg","avatar_version":%d}`, serverVersion.Load())
	})
	svc, store := newTestService(t, handler)
	if err := store.Set(session.KeyToken, "tok"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := svc.AvatarURL(); got != "https://cdn.example/ana.jpg?v=4" {
		t.Fatalf("unexpected avatar url %q", got)
	}

	if err := svc.NotifyAvatarUpdated(context.Background()); err != nil {
		t.Fatalf("notify avatar updated: %v", err)
	}
	if got := svc.AvatarURL(); got != "https://cdn.example/ana.jpg?v=5" {
		t.Fatalf("local bump must be reflected even before the server version moves, got %q", got)
	}

	serverVersion.Store(5)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := svc.AvatarURL(); got != "https://cdn.example/ana.jpg?v=6" {
		t.Fatalf("server and local versions add, got %q", got)
	}
}

func TestAvatarURLEmptyWithoutPhoto(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"u1","nombre":"Ana"}`)
	})
	svc, store := newTestService(t, handler)
	if err := store.Set(session.KeyToken, "tok"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := svc.AvatarURL(); got != "" {
		t.Fatalf("no foto_url means no avatar url, got %q", got)
	}
}

func TestThemeDefaultsAndPersists(t *testing.T) {
	svc, _ := newTestService(t, http.NotFoundHandler())

	if theme := svc.Theme(); theme != "light" {
		t.Fatalf("expected light default, got %q", theme)
	}
	if err := svc.SetTheme("dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if theme := svc.Theme(); theme != "dark" {
		t.Fatalf("expected dark after set, got %q", theme)
	}
	if err := svc.SetTheme("sepia"); err == nil {
		t.Fatal("unknown themes must be rejected")
	}
}
