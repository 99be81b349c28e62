package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/projection"
	"github.com/hitoshi/jobboard/internal/store"
)

var (
	admin   = model.User{ID: 1, Name: "Admin User", Role: model.RoleAdmin}
	maya    = model.User{ID: 2, Name: "Maya Kapoor", Role: model.RoleManager}
	raj     = model.User{ID: 3, Name: "Raj Singh", Role: model.RoleManager}
	sahil   = model.User{ID: 4, Name: "Sahil Rao", Role: model.RoleRecruiter}
	seedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

// newSeededStore はデモデータを読み込んだストアを返す。
func newSeededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(store.WithClock(func() time.Time { return seedNow }))
	if err := st.Import(store.DefaultSeed(seedNow)); err != nil {
		t.Fatalf("failed to import seed: %v", err)
	}
	return st
}

// newBoard はデモデータに対する射影サービスを返す。
func newBoard(t *testing.T) *projection.Service {
	t.Helper()
	return projection.NewService(newSeededStore(t), nil)
}

// serve はpatternに登録したhを1リクエストだけ実行する。userがnilなら未認証。
func serve(method, pattern, target, body string, user *model.User, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if user != nil {
		req = req.WithContext(middleware.ContextWithUser(req.Context(), *user))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}
