package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func gateLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestScopeAuthorizer проверяет решение шлюза по scopes из контекста.
func TestScopeAuthorizer(t *testing.T) {
	gate := NewScopeAuthorizer("vault:authorize", gateLogger())

	tests := []struct {
		name   string
		scopes []string
		want   bool
	}{
		{"scope есть", []string{"vault:read", "vault:authorize"}, true},
		{"scope нет", []string{"vault:read", "vault:write"}, false},
		{"без scopes", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.WithValue(context.Background(), ContextKeyScopes, tt.scopes)
			if got := gate.Authorize(ctx, "Lock document"); got != tt.want {
				t.Errorf("Authorize() = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}

// TestRequireAuthorization_Denied проверяет ответ 403 при отказе шлюза.
func TestRequireAuthorization_Denied(t *testing.T) {
	gate := NewScopeAuthorizer("vault:authorize", gateLogger())
	called := false
	handler := RequireAuthorization(gate, "Move document to trash")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/x", nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
	if called {
		t.Error("handler не должен вызываться при отказе шлюза")
	}
}

// TestRequireAuthorization_AllowAll проверяет режим без проверок.
func TestRequireAuthorization_AllowAll(t *testing.T) {
	handler := RequireAuthorization(AllowAll{}, "Lock document")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("ожидался статус 204, получен %d", rec.Code)
	}
}
