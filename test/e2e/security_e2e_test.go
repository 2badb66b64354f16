//go:build e2e

package e2e_test

import (
	"net/http"
	"testing"
	"time"
)

// TestE2E_SecurityHeaders confirms SecurityHeaders middleware is actually
// wired into the running binary, not just present in the router source.
func TestE2E_SecurityHeaders(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping E2E tests in short mode")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		t.Skip("app not reachable; skipping security header E2E")
	}
	defer resp.Body.Close()

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options"} {
		if resp.Header.Get(h) == "" {
			t.Errorf("expected response header %s to be set", h)
		}
	}
}

// TestE2E_UnauthenticatedMutationRejected confirms a mutating route without
// actor headers is rejected before it reaches business logic.
func TestE2E_UnauthenticatedMutationRejected(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping E2E tests in short mode")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	if resp, err := client.Get(baseURL + "/healthz"); err != nil {
		t.Skip("app not reachable; skipping auth E2E")
	} else {
		resp.Body.Close()
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/sales", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing actor headers, got %d", resp.StatusCode)
	}
}
