package app

import (
	"net/http"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/admin"
	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/auth"
	"github.com/AbrahamRP97/neighnet-go/internal/config"
	"github.com/AbrahamRP97/neighnet-go/internal/feed"
	"github.com/AbrahamRP97/neighnet-go/internal/passes"
	"github.com/AbrahamRP97/neighnet-go/internal/profile"
	"github.com/AbrahamRP97/neighnet-go/internal/scanner"
	"github.com/AbrahamRP97/neighnet-go/internal/session"
	"github.com/AbrahamRP97/neighnet-go/internal/uploads"
	"github.com/AbrahamRP97/neighnet-go/internal/visitantes"
)

// Deps wires together the concrete services the CLI commands use.
type Deps struct {
	Store    *session.Store
	Client   *api.Client
	Eps      api.Endpoints
	Auth     *auth.Service
	Profile  *profile.Service
	Profiles *profile.CachingLookup
	Feed     *feed.Feed
	Uploader *uploads.Uploader
	Issuer   *passes.Issuer
	Scanner  *scanner.Scanner
	Visitors *visitantes.Service
	AdminVis *visitantes.AdminService
	Admin    *admin.Service
}

// buildDependencies constructs every service against the loaded
// configuration and an opened session store.
func buildDependencies(cfg config.Config, store *session.Store) Deps {
	eps := api.EndpointsFromConfig(cfg)

	tokens := api.TokenFunc(func() string {
		sess, err := store.Load()
		if err != nil || !sess.HasToken() {
			return ""
		}
		return sess.Token
	})
	client := api.New(http.DefaultClient, tokens)

	uploader := uploads.NewUploader(client, http.DefaultClient, eps.Uploads)
	profiles := profile.NewService(client, eps, store)

	return Deps{
		Store:    store,
		Client:   client,
		Eps:      eps,
		Auth:     auth.NewService(client, eps, store),
		Profile:  profiles,
		Profiles: profile.NewCachingLookup(profiles, 5*time.Minute),
		Feed:     feed.New(client, eps, store, uploader),
		Uploader: uploader,
		Issuer:   passes.NewIssuer(client, eps),
		Scanner:  scanner.New(client, eps),
		Visitors: visitantes.NewService(client, eps),
		AdminVis: visitantes.NewAdminService(client, eps),
		Admin:    admin.NewService(client, eps, uploader),
	}
}
