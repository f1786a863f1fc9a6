package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/shepherd-hq/shepherd/internal/jobs"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Run("auth:sessions:prune", func() error { return nil })

	body := scrape(t, metrics)
	for _, name := range []string{"shepherd_jobs_total", "shepherd_job_last_success_timestamp_seconds", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected body to contain %s, got: %s", name, body)
		}
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "shepherd_http_requests_total{code=\"418\",method=\"GET\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "shepherd_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/nowhere", nil))

	body := scrape(t, metrics)
	if !strings.Contains(body, `shepherd_http_requests_total{code="200",method="POST",route="unmatched"} 1`) {
		t.Fatalf("expected unmatched request with implicit 200, got: %s", body)
	}
}

func TestObserveLoginRedirect(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveLoginRedirect("admin.church.dashboard", false)
	metrics.ObserveLoginRedirect("admin.dashboard", true)
	metrics.ObserveLoginRedirect("admin.dashboard", true)

	body := scrape(t, metrics)
	if !strings.Contains(body, `shepherd_login_redirects_total{fallback="false",target="admin.church.dashboard"} 1`) {
		t.Fatalf("expected church dashboard redirect, got: %s", body)
	}
	if !strings.Contains(body, `shepherd_login_redirects_total{fallback="true",target="admin.dashboard"} 2`) {
		t.Fatalf("expected fallback redirects, got: %s", body)
	}
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveLoginRedirect("admin.dashboard", false)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
