package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/models"
)

// Context keys set by RequireAuth.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUser      = "user"
)

// RequireAuth accepts a bearer token (when verifier is non-nil) or a login
// session, loads the user record and stores it on the context.
func RequireAuth(db *gorm.DB, verifier *TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			user *models.User
			err  error
		)

		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			if verifier == nil {
				abortUnauthorized(c)
				return
			}
			claims, verr := verifier.Verify(token)
			if verr != nil {
				logger.Debug("Bearer token rejected", "error", verr)
				abortUnauthorized(c)
				return
			}
			user, err = upsertTokenUser(db, claims)
		} else {
			session := sessions.Default(c)
			id, ok := session.Get(sessionUserID).(uint)
			if !ok {
				abortUnauthorized(c)
				return
			}
			user = &models.User{}
			err = db.First(user, id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortUnauthorized(c)
				return
			}
		}

		if err != nil {
			logger.Error("Failed to resolve user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserEmail, user.Email)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// CurrentUserID returns the id stored by RequireAuth.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// upsertTokenUser finds the user by token subject, then by email, creating
// it on first sight.
func upsertTokenUser(db *gorm.DB, claims *Claims) (*models.User, error) {
	now := time.Now()
	var user models.User

	err := db.Where("external_id = ?", claims.Subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("email = ?", claims.Email).First(&user).Error
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:       claims.Email,
			Name:        claims.DisplayName(),
			ExternalID:  claims.Subject,
			LastLoginAt: &now,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	case err != nil:
		return nil, err
	}

	if user.ExternalID != claims.Subject {
		if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("external_id", claims.Subject).Error; err != nil {
			return nil, err
		}
		user.ExternalID = claims.Subject
	}
	return &user, nil
}
