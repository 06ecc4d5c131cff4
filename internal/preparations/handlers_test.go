package preparations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/auth"
	"github.com/jimdaga/interview-ace/internal/database/dbtest"
	"github.com/jimdaga/interview-ace/internal/logging"
	"github.com/jimdaga/interview-ace/internal/models"
)

// asUser stands in for auth.RequireAuth.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserID, user.ID)
		c.Set(auth.ContextUserEmail, user.Email)
		c.Set(auth.ContextUser, user)
		c.Next()
	}
}

func setupRouter(db *gorm.DB, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/preparations", asUser(user)), NewStore(db), logging.Discard())
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func createPrep(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/preparations", `{"title":"PM at Acme"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var prep models.Preparation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prep))
	return prep.ID.String()
}

func TestPreparationLifecycle(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "jo@example.com", false)
	r := setupRouter(db, user)

	id := createPrep(t, r)

	w := do(r, http.MethodPut, "/api/preparations/"+id+"/steps/3", `{"strengths":["Brand"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"strengths":["Brand"]`)

	w = do(r, http.MethodPatch, "/api/preparations/"+id+"/steps/3", `{"strengths":["brand","Reach"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"strengths":["Brand","Reach"]`)

	w = do(r, http.MethodPatch, "/api/preparations/"+id, `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Renamed"`)

	w = do(r, http.MethodGet, "/api/preparations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = do(r, http.MethodDelete, "/api/preparations/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/preparations/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateWithoutBody(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "jo@example.com", false)
	r := setupRouter(db, user)

	w := do(r, http.MethodPost, "/api/preparations", "")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestForeignPreparationLooksMissing(t *testing.T) {
	db := dbtest.New(t)
	jo := dbtest.CreateUser(t, db, "jo@example.com", false)
	sam := dbtest.CreateUser(t, db, "sam@example.com", false)

	id := createPrep(t, setupRouter(db, jo))
	r := setupRouter(db, sam)

	foreign := do(r, http.MethodGet, "/api/preparations/"+id, "")
	missing := do(r, http.MethodGet, "/api/preparations/5f0c7a44-64b8-4a3e-9d7e-3f4a2d9c1b00", "")
	malformed := do(r, http.MethodGet, "/api/preparations/not-a-uuid", "")

	for _, w := range []*httptest.ResponseRecorder{foreign, missing, malformed} {
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"preparation not found"}`, w.Body.String())
	}

	w := do(r, http.MethodPut, "/api/preparations/"+id+"/steps/3", `{"strengths":["x"]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodDelete, "/api/preparations/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStepValidationErrors(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "jo@example.com", false)
	r := setupRouter(db, user)
	id := createPrep(t, r)

	w := do(r, http.MethodPut, "/api/preparations/"+id+"/steps/3", `["Brand"]`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body["error"])
	assert.NotEmpty(t, body["fields"])

	w = do(r, http.MethodPut, "/api/preparations/"+id+"/steps/9", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodPut, "/api/preparations/"+id+"/steps/x", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
