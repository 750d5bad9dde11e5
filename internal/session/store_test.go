package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "session.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newStore(t)

	if _, err := store.Get(KeyToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty store, got %v", err)
	}

	if err := store.Set(KeyToken, "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(KeyToken, "def"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, err := store.Get(KeyToken)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "def" {
		t.Fatalf("expected overwritten value, got %q", value)
	}

	if err := store.Delete(KeyToken); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(KeyToken); err != nil {
		t.Fatalf("deleting a missing key must not fail: %v", err)
	}
	if _, err := store.Get(KeyToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNormalizeToken(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"abc.def.ghi", "abc.def.ghi"},
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc.def.ghi", "abc.def.ghi"},
		{"  Bearer abc  ", "abc"},
		{"", ""},
		{"Bearer ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeToken(tc.in); got != tc.want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSaveLoginAndLoad(t *testing.T) {
	store := newStore(t)

	err := store.SaveLogin(models.Session{
		UserID:   "u1",
		UserName: "Ana",
		UserRole: "residente",
		Token:    "Bearer tok-123",
	})
	if err != nil {
		t.Fatalf("save login: %v", err)
	}

	sess, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.Token != "tok-123" {
		t.Fatalf("stored token must be bare, got %q", sess.Token)
	}
	if sess.UserID != "u1" || sess.UserName != "Ana" || sess.UserRole != "residente" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if !sess.HasToken() {
		t.Fatal("expected HasToken after login")
	}
}

func TestClearWipesEverything(t *testing.T) {
	store := newStore(t)

	if err := store.SaveLogin(models.Session{UserID: "u1", Token: "tok"}); err != nil {
		t.Fatalf("save login: %v", err)
	}
	if err := store.Set(KeyTheme, "dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	sess, err := store.Load()
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if sess.HasToken() || sess.UserID != "" {
		t.Fatalf("expected empty session after clear, got %+v", sess)
	}
	if _, err := store.Get(KeyTheme); !errors.Is(err, ErrNotFound) {
		t.Fatal("theme must be wiped by Clear")
	}
}
