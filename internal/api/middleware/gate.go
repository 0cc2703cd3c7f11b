// gate.go — шлюз авторизации для чувствительных операций.
// Отдельно от JWT: токен подтверждает личность, шлюз подтверждает
// право на конкретное действие (блокировка, корзина, просмотр защищённого).
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/bigkaa/goartstore/docvault/internal/api/errors"
)

// Authorizer подтверждает право на действие. reason — человекочитаемая
// причина запроса ("Lock document"), попадает в журнал.
type Authorizer interface {
	Authorize(ctx context.Context, reason string) bool
}

// ScopeAuthorizer разрешает действие, если JWT несёт заданный scope.
type ScopeAuthorizer struct {
	scope  string
	logger *slog.Logger
}

// NewScopeAuthorizer создаёт шлюз, требующий scope в токене.
func NewScopeAuthorizer(scope string, logger *slog.Logger) *ScopeAuthorizer {
	return &ScopeAuthorizer{
		scope:  scope,
		logger: logger.With(slog.String("component", "gate")),
	}
}

// Authorize проверяет наличие scope в контексте запроса.
func (a *ScopeAuthorizer) Authorize(ctx context.Context, reason string) bool {
	ok := slices.Contains(ScopesFromContext(ctx), a.scope)
	if !ok {
		a.logger.Info("Действие отклонено шлюзом",
			slog.String("reason", reason),
			slog.String("subject", SubjectFromContext(ctx)),
			slog.String("required_scope", a.scope),
		)
	}
	return ok
}

// AllowAll — шлюз без проверок для режима без провайдера идентификации.
type AllowAll struct{}

// Authorize всегда разрешает действие.
func (AllowAll) Authorize(context.Context, string) bool { return true }

// RequireAuthorization возвращает middleware, пропускающий запрос
// только после подтверждения шлюзом. Отказ — 403 AUTHORIZATION_REQUIRED.
func RequireAuthorization(gate Authorizer, reason string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Authorize(r.Context(), reason) {
				errors.AuthorizationRequired(w, "Требуется подтверждение: "+reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
