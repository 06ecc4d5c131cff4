package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	Handler(w, req)

	resp := w.Result()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	body := w.Body.String()
	expected := `{"status":"ok"}`
	if body != expected {
		t.Errorf("expected body %s, got %s", expected, body)
	}
}

func TestReadyHandler(t *testing.T) {
	ok := Check{Name: "database", Fn: func(context.Context) error { return nil }}
	down := Check{Name: "redis", Fn: func(context.Context) error { return errors.New("connection refused") }}

	tests := []struct {
		name       string
		checks     []Check
		wantStatus int
		wantBody   string
	}{
		{"all ok", []Check{ok}, http.StatusOK, `{"checks":{"database":"ok"},"status":"ready"}`},
		{"one down", []Check{ok, down}, http.StatusServiceUnavailable, `{"checks":{"database":"ok","redis":"unavailable"},"status":"not ready"}`},
		{"no checks", nil, http.StatusOK, `{"checks":{},"status":"ready"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ReadyHandler(tt.checks...)(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.wantBody {
				t.Errorf("expected body %s, got %s", tt.wantBody, got)
			}
		})
	}
}
