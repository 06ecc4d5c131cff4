// Package server assembles the HTTP router.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/ai"
	"github.com/jimdaga/interview-ace/internal/auth"
	"github.com/jimdaga/interview-ace/internal/billing"
	"github.com/jimdaga/interview-ace/internal/config"
	"github.com/jimdaga/interview-ace/internal/health"
	"github.com/jimdaga/interview-ace/internal/preparations"
	"github.com/jimdaga/interview-ace/internal/reports"
)

// SessionName is the cookie holding the login session.
const SessionName = "interviewace_session"

// Deps are the collaborators routes are built from. Enqueuer may be nil, in
// which case every report renders synchronously.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    *slog.Logger
	Verifier  *auth.TokenVerifier
	Generator *reports.Generator
	Enqueuer  reports.Enqueuer
	Gateway   *ai.Gateway
	Checks    []health.Check
	// OAuthEnabled mounts the Google login routes.
	OAuthEnabled bool
}

// NewRouter wires middleware and every route group.
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(CORS(cfg.CORSOrigins))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(SessionName, store))

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/ready", gin.WrapH(health.ReadyHandler(deps.Checks...)))

	if deps.OAuthEnabled {
		r.GET("/auth/google", auth.HandleLogin)
		r.GET("/auth/google/callback", auth.HandleCallback(deps.DB, logger, cfg.AppURL))
	} else {
		r.GET("/auth/google", auth.OAuthDisabled)
		r.GET("/auth/google/callback", auth.OAuthDisabled)
	}
	r.GET("/logout", auth.HandleLogout(logger))
	r.POST("/logout", auth.HandleLogout(logger))

	api := r.Group("/api")
	reports.RegisterPDFRoutes(api.Group("/pdf"), deps.Generator, logger)
	api.POST("/billing/webhook", billing.WebhookHandler(deps.DB, cfg.StripeWebhookSecret, logger))

	protected := api.Group("")
	protected.Use(auth.RequireAuth(deps.DB, deps.Verifier, logger))

	prepStore := preparations.NewStore(deps.DB)
	prepGroup := protected.Group("/preparations")
	preparations.RegisterRoutes(prepGroup, prepStore, logger)
	reports.RegisterPreparationRoutes(prepGroup, deps.DB, prepStore, deps.Generator, deps.Enqueuer, logger)
	reports.RegisterJobRoutes(protected.Group("/reports"), deps.DB, logger)

	if deps.Gateway != nil {
		aiGroup := protected.Group("/ai")
		aiGroup.Use(NewRateLimiter(cfg.AIRatePerMinute).Middleware())
		ai.RegisterRoutes(aiGroup, deps.Gateway, logger)
	}

	return r
}
