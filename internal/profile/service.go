package profile

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/logging"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
	"github.com/AbrahamRP97/neighnet-go/internal/session"
)

// Service is the process-wide profile state: it fetches /me when a session
// exists, tracks a local avatar version for cache busting, and owns the
// "session invalid" teardown on 401/403.
type Service struct {
	client *api.Client
	eps    api.Endpoints
	store  *session.Store

	mu                 sync.RWMutex
	profile            *models.Profile
	localAvatarVersion int
}

// NewService constructs the profile service. Call Init once at startup.
func NewService(client *api.Client, eps api.Endpoints, store *session.Store) *Service {
	return &Service{client: client, eps: eps, store: store}
}

// Init loads the profile when a token is present. A 401/403 is treated as an
// invalid session: persisted storage is wiped and the profile reset. Any
// other failure only nulls the in-memory profile.
func (s *Service) Init(ctx context.Context) error {
	sess, err := s.store.Load()
	if err != nil || !sess.HasToken() {
		s.setProfile(nil)
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh re-fetches /me, applying the same 401/403 teardown as Init.
func (s *Service) Refresh(ctx context.Context) error {
	var p models.Profile
	err := s.client.Get(ctx, s.eps.Auth+"/me", &p)
	if err != nil {
		if api.IsAuthError(err) {
			logging.FromContext(ctx).Warn("session invalid, wiping local storage", "status", api.StatusOf(err))
			if clearErr := s.store.Clear(); clearErr != nil {
				logging.FromContext(ctx).Error("wipe session storage", "error", clearErr)
			}
		}
		s.setProfile(nil)
		return err
	}
	s.setProfile(&p)
	return nil
}

// NotifyAvatarUpdated bumps the local cache-busting counter and re-fetches
// the profile. Called after any client-initiated avatar mutation so the UI
// reflects the change even before the server-side version field catches up.
func (s *Service) NotifyAvatarUpdated(ctx context.Context) error {
	s.mu.Lock()
	s.localAvatarVersion++
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Clear resets the in-memory profile only. Persisted storage is the caller's
// responsibility, the way the logout flow clears both.
func (s *Service) Clear() {
	s.setProfile(nil)
}

// Current returns the in-memory profile, or nil when none is loaded.
func (s *Service) Current() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// AvatarURL derives the cache-busted avatar location. It is empty exactly
// when the profile has no foto_url.
func (s *Service) AvatarURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return ""
	}
	return WithVersion(s.profile.FotoURL, s.profile.AvatarVersion+s.localAvatarVersion)
}

// UpdateInput carries the mutable profile fields. RemoveAvatar asks the
// backend to drop the stored photo.
type UpdateInput struct {
	Nombre       string `json:"nombre,omitempty"`
	Telefono     string `json:"telefono,omitempty"`
	NumeroCasa   string `json:"numero_casa,omitempty"`
	FotoURL      string `json:"foto_url,omitempty"`
	RemoveAvatar bool   `json:"remove_avatar,omitempty"`
}

// Update mutates the profile server-side and refreshes the local copy.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) error {
	if err := s.client.Put(ctx, s.eps.Auth+"/update/"+userID, in, nil); err != nil {
		return err
	}
	if in.FotoURL != "" || in.RemoveAvatar {
		return s.NotifyAvatarUpdated(ctx)
	}
	return s.Refresh(ctx)
}

// FetchPublic loads another user's public profile.
func (s *Service) FetchPublic(ctx context.Context, userID string) (models.Profile, error) {
	var p models.Profile
	if err := s.client.Get(ctx, s.eps.Auth+"/public/"+userID, &p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// Theme returns the persisted theme preference, defaulting to light.
func (s *Service) Theme() string {
	theme, err := s.store.Get(session.KeyTheme)
	if err != nil || theme == "" {
		return "light"
	}
	return theme
}

// SetTheme persists the theme preference.
func (s *Service) SetTheme(theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.store.Set(session.KeyTheme, theme)
}

func (s *Service) setProfile(p *models.Profile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

// WithVersion appends a cache-busting version parameter to url. An empty url
// stays empty for every version.
func WithVersion(url string, version int) string {
	if url == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sv=%d", url, sep, version)
}
