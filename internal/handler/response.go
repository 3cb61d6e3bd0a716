// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cynco/irportal/internal/middleware"
	"github.com/cynco/irportal/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeSuccess は {"success": true} を返す。
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleServiceError はサービス層のエラーを統一フォーマットのレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusForCode(apiErr.Code), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// writeValidationError は400 VALIDATION_ERRORを返す。
func writeValidationError(w http.ResponseWriter, detail string) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(detail))
}

// parseID はURLパラメータを正のint64として解釈する。
// 不正な場合は400を書き込みfalseを返す。
func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeValidationError(w, fmt.Sprintf("%s must be a positive integer", param))
		return 0, false
	}
	return id, true
}

// decodeJSON はリクエストボディをdstにデコードする。
// 不正なJSON・型不一致・サイズ超過は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr):
			writeValidationError(w, fmt.Sprintf("%s has an invalid type", typeErr.Field))
		case errors.As(err, &maxErr):
			writeValidationError(w, "request body too large")
		case errors.Is(err, io.EOF):
			writeValidationError(w, "request body is empty")
		default:
			writeValidationError(w, "malformed JSON")
		}
		return false
	}
	if dec.More() {
		writeValidationError(w, "unexpected data after JSON body")
		return false
	}
	return true
}
