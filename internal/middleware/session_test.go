package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cynco/irportal/internal/auth"
	"github.com/cynco/irportal/internal/model"
)

// --- モック定義 ---

type mockPrincipalLoader struct {
	loadFn func(ctx context.Context, cookieValue string) (*model.Principal, error)
}

func (m *mockPrincipalLoader) Load(ctx context.Context, cookieValue string) (*model.Principal, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, cookieValue)
	}
	return nil, nil
}

func withSessionCookie(r *http.Request, value string) *http.Request {
	r.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: value})
	return r
}

// --- テスト ---

func TestSessionMiddleware_ValidCookie_InjectsPrincipal(t *testing.T) {
	loader := &mockPrincipalLoader{loadFn: func(_ context.Context, v string) (*model.Principal, error) {
		if v == "valid" {
			return &model.Principal{ID: "investor-001", Role: model.RoleInvestor}, nil
		}
		return nil, nil
	}}

	var captured *model.Principal
	handler := NewSessionMiddleware(loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = PrincipalFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), withSessionCookie(httptest.NewRequest(http.MethodGet, "/", nil), "valid"))

	if captured == nil || captured.ID != "investor-001" {
		t.Errorf("principal = %+v, want investor-001", captured)
	}
}

func TestSessionMiddleware_NoOrInvalidCookie_PassesThroughAnonymous(t *testing.T) {
	loads := 0
	loader := &mockPrincipalLoader{loadFn: func(context.Context, string) (*model.Principal, error) {
		loads++
		return nil, nil
	}}

	calls := 0
	handler := NewSessionMiddleware(loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if PrincipalFromContext(r.Context()) != nil {
			t.Error("expected anonymous request")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	handler.ServeHTTP(httptest.NewRecorder(), withSessionCookie(httptest.NewRequest(http.MethodGet, "/", nil), "forged"))

	if calls != 2 {
		t.Errorf("next handler calls = %d, want 2", calls)
	}
	if loads != 1 {
		t.Errorf("loader calls = %d, want 1 (cookie-less request skips load)", loads)
	}
}

func TestSessionMiddleware_LoadError_Returns500(t *testing.T) {
	loader := &mockPrincipalLoader{loadFn: func(context.Context, string) (*model.Principal, error) {
		return nil, errors.New("db down")
	}}

	handler := NewSessionMiddleware(loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withSessionCookie(httptest.NewRequest(http.MethodGet, "/", nil), "valid"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGuards(t *testing.T) {
	admin := &model.Principal{ID: "admin-001", Role: model.RoleAdmin}
	investor := &model.Principal{ID: "investor-001", Role: model.RoleInvestor}

	tests := []struct {
		name      string
		guard     func(http.Handler) http.Handler
		principal *model.Principal
		want      int
		wantCode  string
	}{
		{"認証必須_匿名", RequireAuthenticated, nil, http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"認証必須_投資家", RequireAuthenticated, investor, http.StatusOK, ""},
		{"認証必須_管理者", RequireAuthenticated, admin, http.StatusOK, ""},
		{"管理者必須_匿名", RequireAdmin, nil, http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"管理者必須_投資家", RequireAdmin, investor, http.StatusForbidden, model.ErrCodeForbidden},
		{"管理者必須_管理者", RequireAdmin, admin, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := tt.guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/asks", nil)
			if tt.principal != nil {
				req = req.WithContext(ContextWithPrincipal(req.Context(), tt.principal))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.wantCode != "" {
				var body ErrorResponseBody
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
				}
			}
		})
	}
}
