package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddleware(t *testing.T) {
	httpRequestsTotal.Reset()
	httpRequestDuration.Reset()

	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Get("/loans/{loanID}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Post("/loans/{loanID}/approve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	for _, path := range []string{"/loans/1", "/loans/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/loans/3/approve", nil))

	expectedTotal := `
		# HELP loan_engine_http_requests_total Total number of HTTP requests by route and status code.
		# TYPE loan_engine_http_requests_total counter
		loan_engine_http_requests_total{method="GET",route="/loans/{loanID}",status_code="200"} 2
		loan_engine_http_requests_total{method="POST",route="/loans/{loanID}/approve",status_code="409"} 1
	`
	err := testutil.CollectAndCompare(httpRequestsTotal, strings.NewReader(expectedTotal))
	assert.NoError(t, err)
	assert.Equal(t, 2, testutil.CollectAndCount(httpRequestDuration))
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight))
}
