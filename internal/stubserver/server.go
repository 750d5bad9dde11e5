// Package stubserver is an in-memory emulation of the NeighNet backend
// contract. It exists for local development and integration tests; the
// production backend is a separate system.
package stubserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/AbrahamRP97/neighnet-go/internal/config"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

// ShutdownTimeout controls how long Run waits for graceful shutdowns.
var ShutdownTimeout = 10 * time.Second

// Server holds the stub backend state and its HTTP surface.
type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *memoryStore
	tokens  *tokenIssuer
	uploads UploadStore
	local   *localUploadStore
	passTTL time.Duration
}

// New constructs a stub server. When no S3 bucket is configured, uploads are
// held in memory and served back by the stub itself.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   newMemoryStore(),
		tokens:  newTokenIssuer(cfg.StubJWTSecret, 24*time.Hour),
		passTTL: cfg.StubPassTTL,
	}

	if cfg.StubS3Bucket != "" {
		s3store, err := NewS3UploadStore(ctx, ObjectStoreConfig{
			Bucket:        cfg.StubS3Bucket,
			Region:        cfg.StubS3Region,
			Endpoint:      cfg.StubS3Endpoint,
			PublicBaseURL: cfg.StubS3PublicBase,
		})
		if err != nil {
			return nil, err
		}
		s.uploads = s3store
	} else {
		s.local = newLocalUploadStore(fmt.Sprintf("http://localhost:%d/api/uploads", cfg.StubPort))
		s.uploads = s.local
	}

	return s, nil
}

// SetUploadBaseURL repoints locally signed upload URLs, needed when the stub
// runs behind an httptest listener instead of its configured port.
func (s *Server) SetUploadBaseURL(base string) {
	if s.local != nil {
		s.local.baseURL = base
	}
}

// Seed provisions the demo accounts used by local development: a verified
// resident, a guard, and an admin, password "neighnet" for all three.
func (s *Server) Seed() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte("neighnet"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	seeds := []*account{
		{
			Profile: models.Profile{
				Nombre: "Residente Demo", Correo: "residente@neighnet.dev",
				Telefono: "+50499990001", NumeroCasa: "A-12",
			},
			Rol: "residente",
		},
		{
			Profile: models.Profile{
				Nombre: "Guardia Demo", Correo: "guardia@neighnet.dev",
				Telefono: "+50499990002",
			},
			Rol: "guardia",
		},
		{
			Profile: models.Profile{
				Nombre: "Admin Demo", Correo: "admin@neighnet.dev",
				Telefono: "+50499990003",
			},
			Rol: "admin",
		},
	}

	for _, acct := range seeds {
		acct.PasswordHash = string(hashed)
		acct.PhoneVerified = true
		if err := s.store.createAccount(acct); err != nil {
			return err
		}
	}
	return nil
}

// Handler builds the routed HTTP surface with logging and rate limiting.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	auth.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	auth.HandleFunc("/public/{userId}", s.handlePublicProfile).Methods(http.MethodGet)
	auth.HandleFunc("/update/{userId}", s.handleUpdateProfile).Methods(http.MethodPut)
	auth.HandleFunc("/cambiar-contrasena/{userId}", s.handleChangePassword).Methods(http.MethodPut)
	auth.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	auth.HandleFunc("/phone/send-code", s.handleSendPhoneCode).Methods(http.MethodPost)
	auth.HandleFunc("/phone/verify", s.handleVerifyPhone).Methods(http.MethodPost)
	auth.HandleFunc("/push-token", s.handlePushToken).Methods(http.MethodPost)
	auth.HandleFunc("/{userId}", s.handleGetProfile).Methods(http.MethodGet)
	auth.HandleFunc("/{userId}", s.handleDeleteAccount).Methods(http.MethodDelete)

	posts := r.PathPrefix("/api/posts").Subrouter()
	posts.HandleFunc("", s.handleListPosts).Methods(http.MethodGet)
	posts.HandleFunc("/create", s.handleCreatePost).Methods(http.MethodPost)
	posts.HandleFunc("/{id}", s.handleUpdatePost).Methods(http.MethodPut)
	posts.HandleFunc("/{id}", s.handleDeletePost).Methods(http.MethodDelete)

	uploads := r.PathPrefix("/api/uploads").Subrouter()
	uploads.HandleFunc("/signed-url", s.handleSignedURL).Methods(http.MethodPost)
	uploads.HandleFunc("/objects/{key}", s.handlePutObject).Methods(http.MethodPut)
	uploads.HandleFunc("/objects/{key}", s.handleGetObject).Methods(http.MethodGet)

	visitantes := r.PathPrefix("/api/visitantes").Subrouter()
	visitantes.HandleFunc("", s.handleListVisitantes).Methods(http.MethodGet)
	visitantes.HandleFunc("", s.handleCreateVisitante).Methods(http.MethodPost)
	visitantes.HandleFunc("/{id}", s.handleUpdateVisitante).Methods(http.MethodPut)
	visitantes.HandleFunc("/{id}", s.handleDeleteVisitante).Methods(http.MethodDelete)

	r.HandleFunc("/api/passes", s.handleIssuePass).Methods(http.MethodPost)

	vigilancia := r.PathPrefix("/api/vigilancia").Subrouter()
	vigilancia.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	vigilancia.HandleFunc("/visitas/{id}/evidencia", s.handleAttachEvidence).Methods(http.MethodPut)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.HandleFunc("/visitantes", s.handleAdminVisitantes).Methods(http.MethodGet)
	admin.HandleFunc("/residentes", s.handleAdminResidentes).Methods(http.MethodGet)
	admin.HandleFunc("/visitas", s.handleAdminVisitas).Methods(http.MethodGet)

	limiter := newIPRateLimiter(100, time.Second, 200, 5*time.Minute)

	var handler http.Handler = r
	handler = rateLimit(limiter)(handler)
	handler = requestLogger(s.logger)(handler)
	return handler
}

// Run serves the stub until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.StubPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("stub backend listening", "port", s.cfg.StubPort)

	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down stub backend")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
