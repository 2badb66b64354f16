//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestE2E_HappyPath_RecordSale exercises the core cashier flow: record a
// sale, then replay the identical request with the same idempotency key and
// confirm the second call returns the first call's saved response instead
// of creating a duplicate sale.
func TestE2E_HappyPath_RecordSale(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping E2E tests in short mode")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	if resp, err := client.Get(baseURL + "/healthz"); err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			resp.Body.Close()
		}
		t.Skip("app not reachable; skipping happy path E2E")
	} else {
		resp.Body.Close()
	}

	body := []byte(`{"items":[{"product_id":1,"quantity":2}],"payment_method":"cash"}`)
	key := uuid.NewString()

	first := doSaleRequest(t, client, body, key)
	defer first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on first sale, got %d", first.StatusCode)
	}
	var firstOut map[string]any
	if err := json.NewDecoder(first.Body).Decode(&firstOut); err != nil {
		t.Fatalf("decode first response: %v", err)
	}

	second := doSaleRequest(t, client, body, key)
	defer second.Body.Close()
	if second.StatusCode != http.StatusCreated {
		t.Fatalf("expected replay to still answer 201, got %d", second.StatusCode)
	}
	var secondOut map[string]any
	if err := json.NewDecoder(second.Body).Decode(&secondOut); err != nil {
		t.Fatalf("decode replayed response: %v", err)
	}

	sale1, _ := firstOut["sale"].(map[string]any)
	sale2, _ := secondOut["sale"].(map[string]any)
	if sale1["receipt_number"] != sale2["receipt_number"] {
		t.Fatalf("replay produced a different sale: %v vs %v", sale1["receipt_number"], sale2["receipt_number"])
	}
}

func doSaleRequest(t *testing.T, client *http.Client, body []byte, idempotencyKey string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, baseURL+"/sales", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", getenv("E2E_ACTOR_ID", "1"))
	req.Header.Set("X-Actor-Role", getenv("E2E_ACTOR_ROLE", "cashier"))
	req.Header.Set("X-Location-Id", getenv("E2E_BRANCH_ID", "1"))
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}
