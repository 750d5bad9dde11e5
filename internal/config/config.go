package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures the runtime configuration for the NeighNet client.
type Config struct {
	AuthBaseURL       string
	PostsBaseURL      string
	VigilanciaBaseURL string
	VisitantesBaseURL string
	UploadsBaseURL    string
	AdminBaseURL      string
	PassesBaseURL     string

	SessionDBPath string
	BadgeDir      string
	LogLevel      string

	// Stub backend settings, only consulted by `neighnet stub`.
	StubPort         int
	StubJWTSecret    string
	StubPassTTL      time.Duration
	StubS3Bucket     string
	StubS3Region     string
	StubS3Endpoint   string
	StubS3PublicBase string
}

// Load reads configuration from environment variables, applying sensible
// defaults for local development while allowing overrides through environment
// variables. Every service domain has its own base URL so deployments can
// split traffic across backends without a client release.
func Load() (Config, error) {
	root := getString("NEIGHNET_API_URL", "http://localhost:8095")

	cfg := Config{
		AuthBaseURL:       getString("NEIGHNET_AUTH_URL", root+"/api/auth"),
		PostsBaseURL:      getString("NEIGHNET_POSTS_URL", root+"/api/posts"),
		VigilanciaBaseURL: getString("NEIGHNET_VIGILANCIA_URL", root+"/api/vigilancia"),
		VisitantesBaseURL: getString("NEIGHNET_VISITANTES_URL", root+"/api/visitantes"),
		UploadsBaseURL:    getString("NEIGHNET_UPLOADS_URL", root+"/api/uploads"),
		AdminBaseURL:      getString("NEIGHNET_ADMIN_URL", root+"/api/admin"),
		PassesBaseURL:     getString("NEIGHNET_PASSES_URL", root+"/api/passes"),

		SessionDBPath: getString("NEIGHNET_SESSION_DB", defaultSessionDBPath()),
		BadgeDir:      getString("NEIGHNET_BADGE_DIR", defaultBadgeDir()),
		LogLevel:      getString("NEIGHNET_LOG_LEVEL", "info"),

		StubPort:         getInt("NEIGHNET_STUB_PORT", 8095),
		StubJWTSecret:    getString("NEIGHNET_STUB_JWT_SECRET", "dev-secret"),
		StubPassTTL:      getDuration("NEIGHNET_STUB_PASS_TTL", 24*time.Hour),
		StubS3Bucket:     getString("NEIGHNET_STUB_S3_BUCKET", ""),
		StubS3Region:     getString("NEIGHNET_STUB_S3_REGION", "us-east-1"),
		StubS3Endpoint:   getString("NEIGHNET_STUB_S3_ENDPOINT", ""),
		StubS3PublicBase: getString("NEIGHNET_STUB_S3_PUBLIC_BASE", ""),
	}

	cfg.trimTrailingSlashes()

	return cfg, nil
}

func (c *Config) trimTrailingSlashes() {
	for _, p := range []*string{
		&c.AuthBaseURL, &c.PostsBaseURL, &c.VigilanciaBaseURL,
		&c.VisitantesBaseURL, &c.UploadsBaseURL, &c.AdminBaseURL, &c.PassesBaseURL,
	} {
		*p = strings.TrimSuffix(*p, "/")
	}
}

func defaultSessionDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "neighnet.db"
	}
	return filepath.Join(dir, "neighnet", "neighnet.db")
}

func defaultBadgeDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "badges"
	}
	return filepath.Join(dir, "neighnet", "badges")
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
