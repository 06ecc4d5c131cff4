package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AI_STUB_MODE", "")
	t.Setenv("PDF_TIMEOUT_SECONDS", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.NotEmpty(t, cfg.SessionSecret)
	assert.True(t, cfg.AIStubMode, "missing API key should force stub mode")
	assert.Equal(t, 60*time.Second, cfg.PDFTimeout)
	assert.Contains(t, cfg.CORSOrigins, "http://localhost:3000")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_STUB_MODE", "false")
	t.Setenv("PDF_TIMEOUT_SECONDS", "15")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.AIStubMode)
	assert.Equal(t, 15*time.Second, cfg.PDFTimeout)
	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
}

func TestBrowserPathsPriority(t *testing.T) {
	t.Setenv("CHROME_PATH", "")
	t.Setenv("PUPPETEER_EXECUTABLE_PATH", "/opt/puppeteer/chrome")
	t.Setenv("CHROMIUM_PATH", "")
	t.Setenv("GOOGLE_CHROME_BIN", "/usr/bin/google-chrome")

	assert.Equal(t, []string{"/opt/puppeteer/chrome", "/usr/bin/google-chrome"}, browserPaths())
}
