package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/orders/{id}", "418"))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/orders/{id}", "418"))
	assert.Equal(t, before+2, after)
}

func TestRecordLedgerOperation(t *testing.T) {
	before := testutil.ToFloat64(ledgerOps.WithLabelValues("place_order", "ok"))
	RecordLedgerOperation("place_order", "ok", 0)
	RecordLedgerOperation("place_order", "ok", 3*time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(ledgerOps.WithLabelValues("place_order", "ok")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordProviderPoll("ok")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "smm_storefront_provider_polls_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
