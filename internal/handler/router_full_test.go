package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
)

type stubHealthChecker struct {
	err error
}

func (s stubHealthChecker) PingContext(ctx context.Context) error { return s.err }

func newStubRouter(t *testing.T, deps RouterDeps) http.Handler {
	t.Helper()
	if deps.Users == nil {
		deps.Users = &mockUserGetter{}
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	}
	if deps.Mutations == nil {
		deps.Mutations = &mockDispatcher{}
	}
	if deps.Board == nil {
		deps.Board = newBoard(t)
	}
	return NewRouter(&deps)
}

func TestNewRouter_RegistersAllRoutes(t *testing.T) {
	router := newStubRouter(t, RouterDeps{MetricsHandler: http.NotFoundHandler()})

	var got []string
	err := chi.Walk(router.(chi.Routes), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+strings.TrimSuffix(route, "/"))
		return nil
	})
	if err != nil {
		t.Fatalf("chi.Walk returned error: %v", err)
	}

	want := []string{
		"GET /health",
		"GET /metrics",
		"GET /api/csrf-token",
		"POST /auth/login",
		"POST /auth/logout",
		"GET /auth/me",
		"GET /api/users",
		"POST /api/users",
		"GET /api/jobs",
		"POST /api/jobs",
		"GET /api/jobs/{id}",
		"PATCH /api/jobs/{id}",
		"DELETE /api/jobs/{id}",
		"POST /api/jobs/{id}/toggle",
		"GET /api/jobs/{id}/candidates",
		"GET /api/candidates",
		"POST /api/candidates",
		"GET /api/candidates/{id}",
		"PATCH /api/candidates/{id}",
		"POST /api/candidates/{id}/notes",
		"GET /api/me/jobs",
		"GET /api/me/referrals",
		"GET /api/me/applicants",
		"GET /api/admin/summary",
	}

	registered := make(map[string]bool, len(got))
	for _, r := range got {
		registered[r] = true
	}
	for _, w := range want {
		if !registered[w] {
			sort.Strings(got)
			t.Errorf("route %q is not registered; got %v", w, got)
		}
	}
}

func TestNewRouter_Health(t *testing.T) {
	tests := []struct {
		name    string
		checker HealthChecker
		want    int
	}{
		{"チェッカーなし", nil, http.StatusOK},
		{"疎通成功", stubHealthChecker{}, http.StatusOK},
		{"疎通失敗", stubHealthChecker{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newStubRouter(t, RouterDeps{HealthChecker: tt.checker})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers should apply to /health")
			}
		})
	}
}

func TestNewRouter_MetricsRecordsStatusCodes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	router := newStubRouter(t, RouterDeps{
		StatusRecorder: collector,
		MetricsHandler: metrics.Handler(reg),
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `jobboard_http_status_total{status_code="401"} 1`) {
		t.Errorf("metrics output does not contain the 401 counter:\n%s", w.Body.String())
	}
}

func TestNewRouter_MetricsNotRegisteredWithoutHandler(t *testing.T) {
	router := newStubRouter(t, RouterDeps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestNewRouter_SessionGroupUsesResolvedUser(t *testing.T) {
	users := &mockUserGetter{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID == "raj-session" {
				u := raj
				return &u, nil
			}
			return nil, model.NewUnauthorizedError()
		},
	}
	router := newStubRouter(t, RouterDeps{Users: users})

	req := httptest.NewRequest(http.MethodGet, "/api/me/jobs", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "raj-session"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var jobs []model.Job
	decodeInto(t, w, &jobs)
	if len(jobs) != 1 || jobs[0].ID != 3 {
		t.Errorf("jobs = %+v, want [job 3]", jobs)
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := newStubRouter(t, RouterDeps{CORSAllowedOrigin: "http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch) {
		t.Errorf("Access-Control-Allow-Methods = %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}
