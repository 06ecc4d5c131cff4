package ai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/interview-ace/internal/logging"
)

func setupRouter(stub *StubClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/ai"), newStubGateway(stub), logging.Discard())
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSWOTHandler(t *testing.T) {
	w := post(setupRouter(&StubClient{}), "/api/ai/swot", `{"company": "Acme"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data map[string][]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Deep carrier integrations"}, body.Data["strengths"])
}

func TestHandlerInvalidInput(t *testing.T) {
	r := setupRouter(&StubClient{})

	w := post(r, "/api/ai/swot", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/ai/cv-analysis", `{"cv_text": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/ai/skill-match", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerGenerationFailed(t *testing.T) {
	r := setupRouter(&StubClient{Responses: map[string]string{TaskSWOT: `garbage`}})

	w := post(r, "/api/ai/swot", `{"company": "Acme"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "generation failed", body["error"])
	assert.NotContains(t, body["details"], "garbage")
}

func TestSkillMatchHandler(t *testing.T) {
	w := post(setupRouter(&StubClient{}), "/api/ai/skill-match",
		`{"requirements": ["SQL skills"], "experience": ["Wrote SQL daily"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matchScore"`)
}
