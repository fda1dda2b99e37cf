package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tienda/internal/model"
)

// mockAuthFinder はAuthFinderのモック実装。
type mockAuthFinder struct {
	findAuthContextFunc func(ctx context.Context, id string) (*model.AuthContext, error)
}

func (m *mockAuthFinder) FindAuthContext(ctx context.Context, id string) (*model.AuthContext, error) {
	return m.findAuthContextFunc(ctx, id)
}

func okHandler(t *testing.T, gotAuth **model.AuthContext) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth, err := AuthFromContext(r.Context()); err == nil {
			*gotAuth = auth
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSession_ValidCookie(t *testing.T) {
	finder := &mockAuthFinder{
		findAuthContextFunc: func(ctx context.Context, id string) (*model.AuthContext, error) {
			if id != "valid-session-id" {
				t.Errorf("unexpected session id: %s", id)
			}
			return &model.AuthContext{UserID: "user-1", IsAdmin: false, IssuedAt: time.Now()}, nil
		},
	}

	var gotAuth *model.AuthContext
	handler := RequireSession(finder)(okHandler(t, &gotAuth))

	req := httptest.NewRequest(http.MethodGet, "/cart/view", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session-id"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAuth == nil {
		t.Fatal("auth context was not injected")
	}
	if gotAuth.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", gotAuth.UserID)
	}
}

func TestRequireSession_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		finder *mockAuthFinder
	}{
		{
			name:   "Cookieなし",
			cookie: nil,
			finder: &mockAuthFinder{
				findAuthContextFunc: func(ctx context.Context, id string) (*model.AuthContext, error) {
					t.Error("finder should not be called without a cookie")
					return nil, nil
				},
			},
		},
		{
			name:   "無効なセッション",
			cookie: &http.Cookie{Name: sessionCookieName, Value: "expired-session"},
			finder: &mockAuthFinder{
				findAuthContextFunc: func(ctx context.Context, id string) (*model.AuthContext, error) {
					return nil, nil
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireSession(tt.finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/cart/view", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if !strings.Contains(rec.Body.String(), "UNAUTHORIZED") {
				t.Errorf("body should contain UNAUTHORIZED: %s", rec.Body.String())
			}
		})
	}
}

func TestOptionalSession_PassesThroughWithoutCookie(t *testing.T) {
	finder := &mockAuthFinder{
		findAuthContextFunc: func(ctx context.Context, id string) (*model.AuthContext, error) {
			return nil, nil
		},
	}

	var gotAuth *model.AuthContext
	handler := OptionalSession(finder)(okHandler(t, &gotAuth))

	req := httptest.NewRequest(http.MethodGet, "/api/products/lanas", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAuth != nil {
		t.Error("auth context should not be injected without a session")
	}
}

func TestOptionalSession_InjectsAuthWhenValid(t *testing.T) {
	finder := &mockAuthFinder{
		findAuthContextFunc: func(ctx context.Context, id string) (*model.AuthContext, error) {
			return &model.AuthContext{UserID: "user-2"}, nil
		},
	}

	var gotAuth *model.AuthContext
	handler := OptionalSession(finder)(okHandler(t, &gotAuth))

	req := httptest.NewRequest(http.MethodGet, "/api/products/lanas", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if gotAuth == nil || gotAuth.UserID != "user-2" {
		t.Errorf("auth context not injected: %+v", gotAuth)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		auth       *model.AuthContext
		wantStatus int
	}{
		{
			name:       "管理者は許可",
			auth:       &model.AuthContext{UserID: "admin-1", IsAdmin: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "一般ユーザーは403",
			auth:       &model.AuthContext{UserID: "user-1", IsAdmin: false},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "未認証は401",
			auth:       nil,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/admin/users", nil)
			if tt.auth != nil {
				req = req.WithContext(ContextWithAuth(req.Context(), tt.auth))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestIsAuthenticated(t *testing.T) {
	ctx := context.Background()
	if IsAuthenticated(ctx) {
		t.Error("empty context should not be authenticated")
	}

	ctx = ContextWithAuth(ctx, &model.AuthContext{UserID: "user-1"})
	if !IsAuthenticated(ctx) {
		t.Error("context with auth should be authenticated")
	}
}
