package reports

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jimdaga/interview-ace/internal/logging"
	"github.com/jimdaga/interview-ace/internal/pdf"
	"github.com/jimdaga/interview-ace/internal/report"
)

// fakeEngine records what it was asked to print.
type fakeEngine struct {
	mu    sync.Mutex
	out   []byte
	err   error
	html  string
	opts  pdf.Options
	calls int
}

func (f *fakeEngine) Render(ctx context.Context, html string, opts pdf.Options) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.html, f.opts = html, opts
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeEnqueuer struct {
	jobs []uuid.UUID
	err  error
}

func (f *fakeEnqueuer) EnqueueGenerateReport(ctx context.Context, jobID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, jobID)
	return nil
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{out: []byte("%PDF-1.4\n% fake\n%%EOF")}
}

func newGenerator(engine pdf.Engine) *Generator {
	return NewGenerator(report.NewRenderer(report.EmbeddedTemplates()), engine)
}

func setupPDFRouter(gen *Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPDFRoutes(r.Group("/api/pdf"), gen, logging.Discard())
	return r
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// scenarioOne is a wrapped payload with only step 1 populated.
const scenarioOne = `{
	"preparationData": {
		"step_1_data": {"company_name": "Acme", "job_title": "PM"},
		"step_2_data": {}, "step_3_data": {}, "step_4_data": {},
		"step_5_data": {}, "step_6_data": {}
	},
	"isPremium": false
}`
