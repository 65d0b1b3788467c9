package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/seotrack/internal/model"
)

// --- モック ---

type mockAuthService struct {
	resolveFn func(ctx context.Context, sessionID string) (*model.User, error)
	logoutFn  func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) ResolveSession(ctx context.Context, sessionID string) (*model.User, error) {
	return m.resolveFn(ctx, sessionID)
}
func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFn(ctx, sessionID)
}

// --- テスト ---

// TestMe_Success はセッションCookieからユーザー情報を返すことを検証する。
func TestMe_Success(t *testing.T) {
	svc := &mockAuthService{
		resolveFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "sess-1" {
				t.Errorf("sessionID = %q", sessionID)
			}
			return &model.User{ID: "user-1", Email: "taro@example.com", Name: "太郎"}, nil
		},
	}
	handler := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	w := httptest.NewRecorder()
	handler.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body userResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ID != "user-1" {
		t.Errorf("id = %q", body.ID)
	}
	if body.Email != "taro@example.com" {
		t.Errorf("email = %q", body.Email)
	}
}

// TestMe_NoSession はCookieなしで401が返ることを検証する。
func TestMe_NoSession(t *testing.T) {
	svc := &mockAuthService{
		resolveFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	handler := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	handler.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var errBody apiErrorResponse
	json.NewDecoder(w.Body).Decode(&errBody)
	if errBody.Code != "USER_NOT_FOUND" {
		t.Errorf("error code = %q", errBody.Code)
	}
}

// TestLogout_ClearsCookie はログアウトでセッションCookieが失効することを検証する。
func TestLogout_ClearsCookie(t *testing.T) {
	logoutCalled := false
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			logoutCalled = true
			if sessionID != "sess-1" {
				t.Errorf("sessionID = %q", sessionID)
			}
			return nil
		},
	}
	handler := NewAuthHandler(svc, AuthHandlerConfig{CookieSecure: true})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	w := httptest.NewRecorder()
	handler.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if !logoutCalled {
		t.Error("Logout should have been called")
	}

	cookies := w.Result().Cookies()
	var found *http.Cookie
	for _, c := range cookies {
		if c.Name == "session_id" {
			found = c
		}
	}
	if found == nil {
		t.Fatal("expected session_id cookie to be set")
	}
	if found.MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative", found.MaxAge)
	}
	if !found.Secure {
		t.Error("cookie should be Secure")
	}
}

// TestLogout_WithoutSession はセッションなしでも204が返ることを検証する。
func TestLogout_WithoutSession(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			if sessionID != "" {
				t.Errorf("sessionID = %q, want empty", sessionID)
			}
			return nil
		},
	}
	handler := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	handler.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
