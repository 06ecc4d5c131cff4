package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/jimdaga/interview-ace/internal/config"
)

// ProviderGoogle is the only OAuth provider.
const ProviderGoogle = "google"

// stateMaxAge bounds how long an OAuth round trip may take.
const stateMaxAge = 15 * 60

// InitProviders registers Google with goth and reports whether OAuth login
// is configured. Bearer tokens work either way.
func InitProviders(cfg *config.Config, logger *slog.Logger) bool {
	// gothic keeps the OAuth state in its own gorilla store, apart from the
	// gin-contrib login session.
	gothic.Store = newStateStore(cfg)
	gothic.GetProviderName = func(*http.Request) (string, error) { return ProviderGoogle, nil }

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		logger.Warn("Google OAuth not configured, /auth/google disabled")
		return false
	}

	callback := cfg.GoogleCallbackURL
	if callback == "" {
		callback = "http://localhost:" + cfg.Port + "/auth/google/callback"
	}
	goth.UseProviders(google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, callback, "email", "profile"))

	logger.Info("OAuth provider registered", "provider", ProviderGoogle, "callback", callback)
	return true
}

func newStateStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/auth",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// OAuthDisabled answers login attempts when no provider is configured.
func OAuthDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oauth login not configured"})
}
