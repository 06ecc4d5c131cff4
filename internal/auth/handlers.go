package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/models"
)

// Session keys.
const (
	sessionUserID = "user_id"
	sessionEmail  = "user_email"
	sessionName   = "user_name"
)

// HandleLogin redirects to the Google consent page.
func HandleLogin(c *gin.Context) {
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes the OAuth flow, upserts the user and stores the
// user id in the session. Successful logins redirect to redirectTo.
func HandleCallback(db *gorm.DB, logger *slog.Logger, redirectTo string) gin.HandlerFunc {
	return func(c *gin.Context) {
		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			logger.Warn("OAuth callback failed", "error", err)
			c.Redirect(http.StatusFound, redirectTo+"?error=auth_failed")
			return
		}

		user, err := upsertOAuthUser(db, gothUser.Email, gothUser.Name, gothUser.UserID)
		if err != nil {
			logger.Error("Failed to upsert user", "error", err, "email", gothUser.Email)
			c.Redirect(http.StatusFound, redirectTo+"?error=auth_failed")
			return
		}

		session := sessions.Default(c)
		session.Set(sessionUserID, user.ID)
		session.Set(sessionEmail, user.Email)
		session.Set(sessionName, user.Name)

		if err := session.Save(); err != nil {
			logger.Error("Session save failed", "error", err)
			c.Redirect(http.StatusFound, redirectTo+"?error=session_failed")
			return
		}

		logger.Info("User authenticated", "user_id", user.ID, "provider", ProviderGoogle)
		c.Redirect(http.StatusFound, redirectTo)
	}
}

// HandleLogout clears the session.
func HandleLogout(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		session.Clear()

		if err := session.Save(); err != nil {
			logger.Warn("Session clear failed", "error", err)
		}

		c.Status(http.StatusNoContent)
	}
}

// upsertOAuthUser finds the user by email, creating it on first login, and
// records the Google identity.
func upsertOAuthUser(db *gorm.DB, email, name, providerUserID string) (*models.User, error) {
	now := time.Now()
	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: email, Name: name, LastLoginAt: &now}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"name":          name,
			"last_login_at": now,
		}).Error; err != nil {
			return nil, err
		}
	}

	if providerUserID != "" {
		identity := models.AuthIdentity{UserID: user.ID, Provider: ProviderGoogle, ProviderUserID: providerUserID}
		if err := db.Where("provider_user_id = ?", providerUserID).FirstOrCreate(&identity).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}
