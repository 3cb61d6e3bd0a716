package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cynco/irportal/internal/auth"
	"github.com/cynco/irportal/internal/middleware"
	"github.com/cynco/irportal/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*model.Principal, *model.Session, error)
	SessionToken(session *model.Session) (string, error)
	Logout(ctx context.Context, cookieValue string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はログイン・ログアウト・利用者情報のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	now     func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{service: service, config: config, now: time.Now}
}

// principalResponse は利用者のJSON表現。パスワードは含まない。
type principalResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
	UserType    string `json:"userType"`
}

func toPrincipalResponse(p *model.Principal) principalResponse {
	return principalResponse{
		ID:          p.ID,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DisplayName: p.DisplayName(),
		UserType:    string(p.Role),
	}
}

// Login はメールアドレスとパスワードで認証し、セッションCookieを発行する。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	token, err := h.service.SessionToken(session)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.ExpiresAt.Sub(h.now()).Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toPrincipalResponse(principal),
	})
}

// Logout はセッションを破棄し、Cookieを削除する。
// 有効なセッションが無い場合も200を返す。
// セッションの削除に失敗した場合は500を返し、再試行できるようCookieは残す。
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "failed to logout", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	writeSuccess(w)
}

// User は現在のログイン利用者を返す。RequireAuthenticatedの後に配置する。
// GET /api/auth/user
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalResponse(p))
}
