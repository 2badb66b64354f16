package config

import "testing"

func TestConfig_GetDBRetryConfig_MapsFields(t *testing.T) {
	cfg := Config{
		DBBeginMaxRetries: 7,
		DBMaxConns:        42,
	}

	rc := cfg.GetDBRetryConfig()

	if rc.MaxBeginRetries != cfg.DBBeginMaxRetries {
		t.Fatalf("MaxBeginRetries = %d, want %d", rc.MaxBeginRetries, cfg.DBBeginMaxRetries)
	}
	if rc.MaxConns != cfg.DBMaxConns {
		t.Fatalf("MaxConns = %d, want %d", rc.MaxConns, cfg.DBMaxConns)
	}
}

func TestConfig_AdminEnabled_RetryConfig(t *testing.T) {
	cfg := Config{}
	if cfg.AdminEnabled() {
		t.Fatalf("AdminEnabled should be false when credentials are empty")
	}

	cfg.AdminUsername = "user"
	cfg.AdminPassword = "pass"
	cfg.AdminSessionSecret = "secret"
	if !cfg.AdminEnabled() {
		t.Fatalf("AdminEnabled should be true when username, password, and secret are set")
	}
}
