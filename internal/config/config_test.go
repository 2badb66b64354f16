package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Load_And_AdminEnabled(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("ADMIN_SESSION_SECRET", "abcd")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load err: %v", err)
	}
	if !cfg.AdminEnabled() {
		t.Fatalf("expected AdminEnabled true")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("origins not parsed: %+v", cfg.AllowedOrigins)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected IsDev true")
	}
	if cfg.IsProd() {
		t.Fatalf("expected IsProd false")
	}

	require.NoError(t, os.Unsetenv("ADMIN_USERNAME"))
	require.NoError(t, os.Unsetenv("ADMIN_PASSWORD"))
	require.NoError(t, os.Unsetenv("ADMIN_SESSION_SECRET"))
	cfg, err = Load()
	if err != nil {
		t.Fatalf("reload err: %v", err)
	}
	if cfg.AdminEnabled() {
		t.Fatalf("expected AdminEnabled false")
	}
}
