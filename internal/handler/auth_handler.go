// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/mutation"
)

// CurrentUserGetter はセッションIDから現在のユーザーを取得する。auth.Service が満たす。
type CurrentUserGetter interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・ログアウト関連のHTTPハンドラー。
type AuthHandler struct {
	mutations MutationDispatcher
	users     CurrentUserGetter
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(mutations MutationDispatcher, users CurrentUserGetter, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		mutations: mutations,
		users:     users,
		config:    config,
	}
}

type loginRequest struct {
	Email string `json:"email"`
}

// Login はメールアドレスからロールを解決してセッションを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	res := h.mutations.Dispatch(r.Context(), mutation.Login{Email: req.Email})
	if !res.OK() {
		middleware.WriteAPIError(w, res.Err)
		return
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    res.Session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, res.User)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		res := h.mutations.Dispatch(r.Context(), mutation.Logout{SessionID: cookie.Value})
		if !res.OK() {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("code", res.Err.Code))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	user, err := h.users.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		if _, ok := model.AsAPIError(err); !ok {
			slog.Error("failed to get current user", slog.String("error", err.Error()))
		}
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, user)
}
