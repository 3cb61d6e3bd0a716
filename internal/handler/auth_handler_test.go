package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cynco/irportal/internal/auth"
	"github.com/cynco/irportal/internal/middleware"
	"github.com/cynco/irportal/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn        func(ctx context.Context, email, password string) (*model.Principal, *model.Session, error)
	sessionTokenFn func(session *model.Session) (string, error)
	logoutFn       func(ctx context.Context, cookieValue string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Principal, *model.Session, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) SessionToken(session *model.Session) (string, error) {
	return m.sessionTokenFn(session)
}

func (m *mockAuthService) Logout(ctx context.Context, cookieValue string) error {
	if m.logoutFn == nil {
		return nil
	}
	return m.logoutFn(ctx, cookieValue)
}

func testPrincipal() *model.Principal {
	return &model.Principal{
		ID: "admin-001", Email: "hello@cynco.io",
		FirstName: "Admin", LastName: "User", Role: model.RoleAdmin,
	}
}

func TestAuthHandler_Login_SetsSessionCookie(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockAuthService{
		loginFn: func(_ context.Context, email, password string) (*model.Principal, *model.Session, error) {
			if email != "hello@cynco.io" || password != "admin123123" {
				t.Errorf("unexpected credentials %q/%q", email, password)
			}
			return testPrincipal(), &model.Session{
				ID: "sid", PrincipalID: "admin-001",
				CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour),
			}, nil
		},
		sessionTokenFn: func(*model.Session) (string, error) { return "signed-token", nil },
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{CookieDomain: "portal.example.com", CookieSecure: true})
	h.now = func() time.Time { return now }

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"hello@cynco.io","password":"admin123123"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("len(cookies) = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != auth.SessionCookieName || c.Value != "signed-token" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("cookie attributes HttpOnly=%v Secure=%v SameSite=%v", c.HttpOnly, c.Secure, c.SameSite)
	}
	if c.MaxAge != 7200 {
		t.Errorf("MaxAge = %d, want 7200", c.MaxAge)
	}
	if c.Path != "/" {
		t.Errorf("Path = %q, want /", c.Path)
	}

	body := decodeBody[struct {
		Success bool              `json:"success"`
		User    principalResponse `json:"user"`
	}](t, rec)
	if !body.Success || body.User.DisplayName != "Admin User" || body.User.UserType != "admin" {
		t.Errorf("body = %+v", body)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response should not contain password")
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		loginErr error
		status   int
		code     string
	}{
		{"invalid credentials", `{"email":"a@b.c","password":"x"}`, auth.ErrInvalidCredentials, http.StatusUnauthorized, model.ErrCodeInvalidCredentials},
		{"malformed json", `{"email":`, nil, http.StatusBadRequest, model.ErrCodeValidation},
		{"storage failure", `{"email":"a@b.c","password":"x"}`, errors.New("db down"), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				loginFn: func(context.Context, string, string) (*model.Principal, *model.Session, error) {
					return nil, nil, tt.loginErr
				},
				sessionTokenFn: func(*model.Session) (string, error) {
					t.Error("SessionToken should not be called")
					return "", nil
				},
			}
			h := NewAuthHandler(svc, AuthHandlerConfig{})

			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body)))

			if len(rec.Result().Cookies()) != 0 {
				t.Error("no cookie should be set")
			}
			assertErrorCode(t, rec, tt.status, tt.code)
		})
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	var loggedOut string
	svc := &mockAuthService{
		logoutFn: func(_ context.Context, v string) error {
			loggedOut = v
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "token"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if loggedOut != "token" {
		t.Errorf("Logout called with %q, want token", loggedOut)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("cookie should be cleared, got %+v", cookies)
	}
}

func TestAuthHandler_Logout_DeleteFailure_Returns500(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(context.Context, string) error {
			return errors.New("delete failed")
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "token"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assertErrorCode(t, rec, http.StatusInternalServerError, model.ErrCodeInternal)
	if cookies := rec.Result().Cookies(); len(cookies) != 0 {
		t.Errorf("cookie must be kept for retry, got %+v", cookies)
	}
}

func TestAuthHandler_Logout_WithoutCookie_Returns200(t *testing.T) {
	called := false
	svc := &mockAuthService{
		logoutFn: func(context.Context, string) error {
			called = true
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/logout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if called {
		t.Error("service Logout should not be called without a cookie")
	}
}

func TestAuthHandler_User(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req = req.WithContext(middleware.ContextWithPrincipal(req.Context(), testPrincipal()))
	rec := httptest.NewRecorder()
	h.User(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	user := decodeBody[principalResponse](t, rec)
	if user.ID != "admin-001" || user.Email != "hello@cynco.io" {
		t.Errorf("user = %+v", user)
	}

	rec = httptest.NewRecorder()
	h.User(rec, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
	assertErrorCode(t, rec, http.StatusUnauthorized, model.ErrCodeUnauthorized)
}
