package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/jobboard/internal/auth"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/mutation"
	"github.com/hitoshi/jobboard/internal/projection"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/security"
)

// newIntegrationRouter はインメモリの実装をすべて結線したルーターを返す。
func newIntegrationRouter(t *testing.T) http.Handler {
	t.Helper()
	st := newSeededStore(t)
	sessions := auth.NewService(st, repository.NewMemorySessionRepo(), auth.ServiceConfig{SessionMaxAge: 3600})
	mutations := mutation.NewService(st, auth.NewStrictResolver(), sessions, security.NewTextSanitizer(), nil)

	return NewRouter(&RouterDeps{
		Users:             sessions,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		AuthConfig:        AuthHandlerConfig{SessionMaxAge: 3600},
		Mutations:         mutations,
		Board:             projection.NewService(st, nil),
	})
}

// browser はCookieを保持してルーターにリクエストを送るテスト用クライアント。
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	csrf    string
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	return &browser{t: t, handler: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			b.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	if b.csrf != "" {
		req.Header.Set("X-CSRF-Token", b.csrf)
	}

	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

// login はログインしてCSRFトークンを取得する。
func (b *browser) login(email string) model.User {
	b.t.Helper()
	w := b.do(http.MethodPost, "/auth/login", map[string]string{"email": email})
	if w.Code != http.StatusOK {
		b.t.Fatalf("login %s: status = %d, body = %s", email, w.Code, w.Body.String())
	}
	var user model.User
	decodeInto(b.t, w, &user)

	w = b.do(http.MethodGet, "/api/csrf-token", nil)
	var tok struct {
		Token string `json:"token"`
	}
	decodeInto(b.t, w, &tok)
	b.csrf = tok.Token
	return user
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}

func TestIntegration_UnauthenticatedRequestsAreRejected(t *testing.T) {
	b := newBrowser(t, newIntegrationRouter(t))

	for _, path := range []string{"/api/jobs", "/api/candidates", "/api/me/jobs", "/api/admin/summary", "/auth/me"} {
		w := b.do(http.MethodGet, path, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: status = %d, want %d", path, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestIntegration_LoginWithUnknownEmail(t *testing.T) {
	b := newBrowser(t, newIntegrationRouter(t))

	w := b.do(http.MethodPost, "/auth/login", map[string]string{"email": "stranger@example.com"})

	expectStatus(t, w, http.StatusUnauthorized)
	if _, ok := b.cookies[middleware.SessionCookieName]; ok {
		t.Error("session cookie must not be set on failed login")
	}
}

func TestIntegration_HiringFlow(t *testing.T) {
	router := newIntegrationRouter(t)
	manager := newBrowser(t, router)
	recruiter := newBrowser(t, router)
	otherManager := newBrowser(t, router)
	admin := newBrowser(t, router)

	if u := manager.login("manager@company.com"); u.ID != 2 || u.Role != model.RoleManager {
		t.Fatalf("manager = %+v", u)
	}
	recruiter.login("recruiter@company.com")
	otherManager.login("manager2@company.com")
	admin.login("admin@company.com")

	// CSRFトークンなしの作成は拒否される
	token := manager.csrf
	manager.csrf = ""
	expectStatus(t, manager.do(http.MethodPost, "/api/jobs", map[string]string{"title": "x"}), http.StatusForbidden)
	manager.csrf = token

	// 求人作成
	w := manager.do(http.MethodPost, "/api/jobs", map[string]any{
		"title":       "Platform Engineer",
		"description": "Kubernetes and Go",
		"skillsText":  "Go, Kubernetes, , Terraform",
		"location":    "Bengaluru",
		"salary":      "₹35 LPA",
		"recruiterId": 4,
	})
	expectStatus(t, w, http.StatusCreated)
	var job model.Job
	decodeInto(t, w, &job)
	if job.ID != 6 || job.CreatedBy != 2 || !job.IsActive || len(job.Skills) != 3 {
		t.Fatalf("job = %+v", job)
	}

	var jobs []model.Job
	decodeInto(t, manager.do(http.MethodGet, "/api/jobs", nil), &jobs)
	if len(jobs) != 5 {
		t.Errorf("manager sees %d jobs, want 5", len(jobs))
	}

	// 他のマネージャーには見えず、変更もできない
	expectStatus(t, otherManager.do(http.MethodGet, "/api/jobs/6", nil), http.StatusNotFound)
	expectStatus(t, otherManager.do(http.MethodPost, "/api/jobs/6/toggle", nil), http.StatusForbidden)

	// リクルーターの紹介
	w = recruiter.do(http.MethodPost, "/api/candidates", map[string]any{
		"name":          "Asha Verma",
		"email":         "Asha@Example.com",
		"phone":         "+91 44444 44444",
		"resume":        "https://example.com/asha.pdf",
		"appliedForJob": 6,
	})
	expectStatus(t, w, http.StatusCreated)
	var candidate model.Candidate
	decodeInto(t, w, &candidate)
	if candidate.ReferredBy != 4 || candidate.Email != "asha@example.com" || candidate.Status != model.StatusReferred {
		t.Fatalf("candidate = %+v", candidate)
	}
	if candidate.RecruiterID == nil || *candidate.RecruiterID != 4 {
		t.Errorf("recruiterId = %v, want 4", candidate.RecruiterID)
	}

	// 連絡履歴の追記
	w = recruiter.do(http.MethodPost, "/api/candidates/8/notes", map[string]string{"note": "Phone screen booked"})
	expectStatus(t, w, http.StatusCreated)
	decodeInto(t, w, &candidate)
	if len(candidate.ContactHistory) != 1 || candidate.ContactHistory[0].Note != "Phone screen booked" {
		t.Errorf("contactHistory = %+v", candidate.ContactHistory)
	}

	// マネージャーは自分の求人の応募者を見て選考状況を更新できる
	var applicants []model.Candidate
	decodeInto(t, manager.do(http.MethodGet, "/api/jobs/6/candidates", nil), &applicants)
	if len(applicants) != 1 || applicants[0].ID != 8 {
		t.Fatalf("applicants = %+v", applicants)
	}
	w = manager.do(http.MethodPatch, "/api/candidates/8", map[string]string{"status": "interview"})
	expectStatus(t, w, http.StatusOK)
	decodeInto(t, w, &candidate)
	if candidate.Status != model.StatusInterview {
		t.Errorf("status = %q, want %q", candidate.Status, model.StatusInterview)
	}

	// リクルーターは求人を削除できない
	expectStatus(t, recruiter.do(http.MethodDelete, "/api/jobs/6", nil), http.StatusForbidden)

	// 管理者サマリー
	expectStatus(t, manager.do(http.MethodGet, "/api/admin/summary", nil), http.StatusForbidden)
	var summary projection.AdminSummary
	decodeInto(t, admin.do(http.MethodGet, "/api/admin/summary", nil), &summary)
	if summary.Counts.TotalJobs != 6 || summary.Counts.Candidates != 8 {
		t.Errorf("counts = %+v", summary.Counts)
	}

	// 求人を削除しても候補者は残る
	expectStatus(t, manager.do(http.MethodDelete, "/api/jobs/6", nil), http.StatusNoContent)
	var view projection.CandidateView
	decodeInto(t, recruiter.do(http.MethodGet, "/api/candidates/8", nil), &view)
	if view.JobKnown {
		t.Error("candidate of a deleted job should report jobKnown=false")
	}
}

func TestIntegration_AdminAddsUserWhoCanLogIn(t *testing.T) {
	router := newIntegrationRouter(t)
	admin := newBrowser(t, router)
	admin.login("admin@company.com")

	w := admin.do(http.MethodPost, "/api/users", map[string]string{
		"name": "Priya", "email": "priya@company.com", "role": "recruiter",
	})
	expectStatus(t, w, http.StatusCreated)

	expectStatus(t, admin.do(http.MethodPost, "/api/users", map[string]string{
		"name": "Dup", "email": "PRIYA@company.com", "role": "manager",
	}), http.StatusConflict)

	priya := newBrowser(t, router)
	if u := priya.login("priya@company.com"); u.Role != model.RoleRecruiter {
		t.Errorf("role = %q, want recruiter", u.Role)
	}
}

func TestIntegration_LogoutInvalidatesSession(t *testing.T) {
	b := newBrowser(t, newIntegrationRouter(t))
	b.login("recruiter2@company.com")
	session := b.cookies[middleware.SessionCookieName]

	expectStatus(t, b.do(http.MethodGet, "/auth/me", nil), http.StatusOK)
	expectStatus(t, b.do(http.MethodPost, "/auth/logout", nil), http.StatusNoContent)

	// 古いCookieを再送しても拒否される
	b.cookies[middleware.SessionCookieName] = session
	expectStatus(t, b.do(http.MethodGet, "/api/jobs", nil), http.StatusUnauthorized)
}

func TestIntegration_MutationRateLimit(t *testing.T) {
	st := newSeededStore(t)
	sessions := auth.NewService(st, repository.NewMemorySessionRepo(), auth.ServiceConfig{SessionMaxAge: 3600})
	router := NewRouter(&RouterDeps{
		Users: sessions,
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			GeneralRate: 100, GeneralBurst: 100,
			MutationRate: 0.001, MutationBurst: 1,
			CleanupInterval: time.Minute,
		}),
		Mutations: mutation.NewService(st, auth.NewStrictResolver(), sessions, security.NewTextSanitizer(), nil),
		Board:     projection.NewService(st, nil),
	})
	b := newBrowser(t, router)
	b.login("manager@company.com")

	expectStatus(t, b.do(http.MethodPost, "/api/jobs/1/toggle", nil), http.StatusOK)
	expectStatus(t, b.do(http.MethodPost, "/api/jobs/1/toggle", nil), http.StatusTooManyRequests)
	// 読み取りは影響を受けない
	expectStatus(t, b.do(http.MethodGet, "/api/jobs/1", nil), http.StatusOK)
}
