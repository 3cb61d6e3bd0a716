package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cynco/irportal/internal/model"
)

func parseLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := NewRequestIDMiddleware()(NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/updates", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	entry := parseLogLine(t, &buf)
	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "POST" || entry["path"] != "/api/updates" {
		t.Errorf("method/path = %v %v", entry["method"], entry["path"])
	}
	if status, _ := entry["status"].(float64); status != 201 {
		t.Errorf("status = %v, want 201", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected 'duration_ms' field in log entry")
	}
	if entry["request_id"] != w.Header().Get(RequestIDHeader) {
		t.Errorf("request_id = %v, want %q", entry["request_id"], w.Header().Get(RequestIDHeader))
	}
	if _, ok := entry["principal_id"]; ok {
		t.Error("anonymous request must not log principal_id")
	}
}

// TestLoggingMiddleware_IncludesPrincipalIDFromInnerSession は内側のセッションミドルウェアが
// 復元した利用者IDがログに含まれることを検証する。
func TestLoggingMiddleware_IncludesPrincipalIDFromInnerSession(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	loader := &mockPrincipalLoader{loadFn: func(context.Context, string) (*model.Principal, error) {
		return &model.Principal{ID: "admin-001", Role: model.RoleAdmin}, nil
	}}
	handler := NewLoggingMiddleware(logger)(NewSessionMiddleware(loader)(okHandler()))

	handler.ServeHTTP(httptest.NewRecorder(), withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/auth/user", nil), "token"))

	entry := parseLogLine(t, &buf)
	if entry["principal_id"] != "admin-001" {
		t.Errorf("principal_id = %v, want admin-001", entry["principal_id"])
	}
}

// TestLoggingMiddleware_LevelByStatus はステータスコードに応じてログレベルが変わることを検証する。
func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusForbidden, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if got := parseLogLine(t, &buf)["level"]; got != tt.level {
			t.Errorf("status %d: level = %v, want %s", tt.status, got, tt.level)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	// 新規生成
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id = %q, header = %q", seen, w.Header().Get(RequestIDHeader))
	}

	// UUIDは引き継ぐ
	const incoming = "6f1c2d1e-8f3a-4b6e-9f0a-1c2d3e4f5a6b"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Errorf("request id = %q, want %q", seen, incoming)
	}

	// 不正な値は置き換える
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" {
		t.Error("non-UUID request id must be replaced")
	}
}

func TestRecoveryMiddleware_Returns500(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
}

type recordedRequest struct {
	method, route string
	status        int
}

type mockHTTPRecorder struct {
	requests []recordedRequest
}

func (m *mockHTTPRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	m.requests = append(m.requests, recordedRequest{method, route, status})
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	rec := &mockHTTPRecorder{}
	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(rec))
	r.Delete("/api/milestones/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/milestones/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if len(rec.requests) != 2 {
		t.Fatalf("recorded %d requests, want 2", len(rec.requests))
	}
	if got := rec.requests[0]; got.route != "/api/milestones/{id}" || got.status != http.StatusNoContent {
		t.Errorf("first = %+v", got)
	}
	if got := rec.requests[1]; got.status != http.StatusNotFound {
		t.Errorf("second status = %d, want 404", got.status)
	}
}
