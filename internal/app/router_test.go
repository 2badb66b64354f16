package app_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	httpserver "github.com/bakeryhq/ops-backend/internal/adapter/httpserver"
	"github.com/bakeryhq/ops-backend/internal/app"
	"github.com/bakeryhq/ops-backend/internal/config"
)

func TestBuildRouter_Healthz(t *testing.T) {
	cfg := config.Config{RateLimitPerMin: 120, AllowedOrigins: []string{"*"}}
	srv := &httpserver.Server{Cfg: cfg}
	h := app.BuildRouter(cfg, srv)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Result().StatusCode != http.StatusOK {
		t.Fatalf("/healthz: want 200, got %d", rec.Result().StatusCode)
	}
}

func TestBuildRouter_Readyz_NoChecksConfigured(t *testing.T) {
	cfg := config.Config{RateLimitPerMin: 120, AllowedOrigins: []string{"*"}}
	srv := &httpserver.Server{Cfg: cfg}
	h := app.BuildRouter(cfg, srv)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Result().StatusCode != http.StatusOK {
		t.Fatalf("/readyz: want 200, got %d", rec.Result().StatusCode)
	}
}

func TestBuildRouter_Sales_RequiresActorHeaders(t *testing.T) {
	cfg := config.Config{RateLimitPerMin: 120, AllowedOrigins: []string{"*"}}
	srv := &httpserver.Server{Cfg: cfg}
	h := app.BuildRouter(cfg, srv)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", nil))
	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("/sales without actor headers: want 400, got %d", rec.Result().StatusCode)
	}
}
