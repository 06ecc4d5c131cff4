package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/database/dbtest"
	"github.com/jimdaga/interview-ace/internal/logging"
	"github.com/jimdaga/interview-ace/internal/models"
)

func setupRouter(db *gorm.DB, verifier *TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-session-secret"))))

	r.GET("/login-as/:id", func(c *gin.Context) {
		var user models.User
		if err := db.First(&user, c.Param("id")).Error; err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		session := sessions.Default(c)
		session.Set(sessionUserID, user.ID)
		_ = session.Save()
		c.Status(http.StatusOK)
	})

	protected := r.Group("/api", RequireAuth(db, verifier, logging.Discard()))
	protected.GET("/me", func(c *gin.Context) {
		user, ok := CurrentUser(c)
		id, idOK := CurrentUserID(c)
		if !ok || !idOK || id != user.ID {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "email": user.Email, "premium": user.IsPremium})
	})
	return r
}

func TestRequireAuthBearerCreatesUser(t *testing.T) {
	db := dbtest.New(t)
	verifier := NewTokenVerifier("test-secret")
	r := setupRouter(db, verifier)

	token, err := verifier.Sign("sub-1", "new@example.com", time.Hour)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "new@example.com")
	}

	var count int64
	db.Model(&models.User{}).Where("external_id = ?", "sub-1").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRequireAuthBearerLinksExistingEmail(t *testing.T) {
	db := dbtest.New(t)
	existing := dbtest.CreateUser(t, db, "jo@example.com", true)
	verifier := NewTokenVerifier("test-secret")
	r := setupRouter(db, verifier)

	token, err := verifier.Sign("sub-jo", "jo@example.com", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"premium":true`)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, existing.ID).Error)
	assert.Equal(t, "sub-jo", reloaded.ExternalID)
}

func TestRequireAuthRejects(t *testing.T) {
	db := dbtest.New(t)
	verifier := NewTokenVerifier("test-secret")
	expired, err := verifier.Sign("sub-1", "jo@example.com", -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name     string
		verifier *TokenVerifier
		header   string
	}{
		{"no credentials", verifier, ""},
		{"expired token", verifier, "Bearer " + expired},
		{"garbage token", verifier, "Bearer garbage"},
		{"bearer disabled", nil, "Bearer " + expired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouter(db, tc.verifier)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
		})
	}
}

func TestRequireAuthSession(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "sess@example.com", false)
	r := setupRouter(db, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login-as/"+itoa(user.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sess@example.com")
}

func TestUpsertOAuthUser(t *testing.T) {
	db := dbtest.New(t)

	user, err := upsertOAuthUser(db, "g@example.com", "G One", "google-1")
	require.NoError(t, err)
	again, err := upsertOAuthUser(db, "g@example.com", "G Renamed", "google-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, "G Renamed", reloaded.Name)
	assert.NotNil(t, reloaded.LastLoginAt)

	var identities int64
	db.Model(&models.AuthIdentity{}).Where("user_id = ?", user.ID).Count(&identities)
	assert.Equal(t, int64(1), identities)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
