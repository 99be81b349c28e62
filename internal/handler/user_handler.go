package handler

import (
	"net/http"

	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/mutation"
)

// UserHandler はユーザー管理と管理者サマリーのHTTPハンドラー。
type UserHandler struct {
	mutations MutationDispatcher
	board     BoardReader
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(mutations MutationDispatcher, board BoardReader) *UserHandler {
	return &UserHandler{mutations: mutations, board: board}
}

type createUserRequest struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// List はユーザー一覧を返す。roleクエリで絞り込む。管理者のみ。
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	users, err := h.board.Users(user, model.Role(r.URL.Query().Get("role")))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Create はマネージャーまたはリクルーターを追加する。管理者のみ。
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	res := h.mutations.Dispatch(r.Context(), mutation.AddUser{
		Actor: user,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	writeResult(w, http.StatusCreated, res, func(res mutation.Result) any { return res.User })
}

// AdminSummary は管理者ダッシュボード用の集計を返す。
// GET /api/admin/summary
func (h *UserHandler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := h.board.AdminSummary(user)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
