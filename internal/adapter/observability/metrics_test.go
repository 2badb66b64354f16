package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPMetricsMiddleware_Basic(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) }))
	mw.ServeHTTP(rec, r)
	if rec.Result().StatusCode != 204 {
		t.Fatalf("want 204")
	}
}

func TestBakeryMetricsHelpers(t *testing.T) {
	InitMetrics()
	RecordSaleCompleted("1", "cash", 42.50)
	RecordInventoryMovement("1", "sale_out")
	RecordBatchTransition("1", "create")
	RecordIdempotencyReplay("/sales")
	RecordArchiveRun("1", "scheduled", "completed")
	RecordArchiveRowsMoved("1", "sales", 10)
	RecordArchiveRowsMoved("1", "sales", 0)
	RecordNotificationCreated("1", "low_stock")
	SetOfflineQueueDepth("pending", 3)
	RecordEventPublishFailure("sale_completed")
}
