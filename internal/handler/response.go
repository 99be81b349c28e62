package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/mutation"
)

// MutationDispatcher はミューテーション層の入口。mutation.Service が満たす。
type MutationDispatcher interface {
	Dispatch(ctx context.Context, cmd mutation.Command) mutation.Result
}

// writeJSON はvをJSONで書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	if apiErr, ok := model.AsAPIError(err); ok {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// writeResult はDispatchの結果を書き込む。失敗時はエラーレスポンスを返す。
func writeResult(w http.ResponseWriter, statusCode int, res mutation.Result, body func(mutation.Result) any) {
	if !res.OK() {
		middleware.WriteAPIError(w, res.Err)
		return
	}
	writeJSON(w, statusCode, body(res))
}

// decodeBody はリクエストボディをvにデコードする。
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "JSON形式で送信してください。",
		}
	}
	return nil
}

// pathID はURLパスパラメータを正の整数IDとして取り出す。
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, model.NewInvalidFieldError(name, "正の整数を指定してください")
	}
	return id, nil
}

// currentUser はセッションミドルウェアが注入したユーザーを取り出す。
// 見つからない場合は401を書き込みfalseを返す。
func currentUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return model.User{}, false
	}
	return user, true
}
