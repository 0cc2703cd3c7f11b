// auth.go — аутентификация запросов к хранилищу документов.
// Токены RS256 проверяются по ключам JWKS провайдера идентификации.
// Scopes: vault:read, vault:write, vault:authorize (шлюз подтверждения),
// vault:admin (обслуживание). Без auth.jwks_url используется DevAuth.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/goartstore/docvault/internal/api/errors"
)

type contextKey string

const (
	// ContextKeySubject — субъект (sub) вызывающего.
	ContextKeySubject contextKey = "vault_subject"
	// ContextKeyScopes — scopes вызывающего.
	ContextKeyScopes contextKey = "vault_scopes"
)

// DevSubject — субъект запросов в режиме без провайдера идентификации.
const DevSubject = "local"

// Claims — claims токена доступа к хранилищу.
// Scopes принимаются и строкой "scope" (OAuth2), и массивом "scopes".
type Claims struct {
	jwt.RegisteredClaims
	ScopeString string   `json:"scope"`
	ScopeArray  []string `json:"scopes"`
}

// Scopes возвращает scopes из обоих claims без повторов, в порядке появления.
func (c *Claims) Scopes() []string {
	all := append(strings.Fields(c.ScopeString), c.ScopeArray...)
	out := make([]string, 0, len(all))
	for _, s := range all {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// JWTAuthConfig — параметры проверки токенов.
type JWTAuthConfig struct {
	JWKSURL         string
	CACertPath      string
	TLSSkipVerify   bool
	ClientTimeout   time.Duration
	RefreshInterval time.Duration
	// JWTLeeway — допустимое расхождение часов при проверке exp/nbf
	JWTLeeway time.Duration
}

// JWTAuth проверяет Bearer-токены и кладёт вызывающего в контекст.
type JWTAuth struct {
	keys   keyfunc.Keyfunc
	leeway time.Duration
	cancel context.CancelFunc
	logger *slog.Logger
}

// errUnauthenticated — причина отказа, текст уходит клиенту как есть.
type errUnauthenticated string

func (e errUnauthenticated) Error() string { return string(e) }

// NewJWTAuth подключается к JWKS endpoint и запускает фоновое обновление
// ключей. Недоступность endpoint при старте не считается ошибкой: ключи
// будут получены при следующем обновлении. Close останавливает обновление.
func NewJWTAuth(cfg JWTAuthConfig, logger *slog.Logger) (*JWTAuth, error) {
	logger = logger.With(slog.String("component", "jwt_auth"))

	client, err := jwksHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    client,
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Не удалось обновить ключи JWKS",
				slog.String("url", cfg.JWKSURL),
				slog.String("error", err.Error()),
			)
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("хранилище ключей JWKS: %w", err)
	}

	keys, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("keyfunc: %w", err)
	}

	logger.Info("Проверка токенов включена",
		slog.String("jwks_url", cfg.JWKSURL),
		slog.Duration("refresh_interval", cfg.RefreshInterval),
	)
	return &JWTAuth{keys: keys, leeway: cfg.JWTLeeway, cancel: cancel, logger: logger}, nil
}

// NewJWTAuthWithKeyfunc создаёт JWTAuth с готовым набором ключей (тесты, dev-idp).
func NewJWTAuthWithKeyfunc(keys keyfunc.Keyfunc, leeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		keys:   keys,
		leeway: leeway,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

func jwksHTTPClient(cfg JWTAuthConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // VAULT_AUTH_TLS_SKIP_VERIFY
	}
	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("чтение CA-сертификата %s: %w", cfg.CACertPath, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA-сертификат %s не содержит PEM-сертификатов", cfg.CACertPath)
		}
		tlsCfg.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	return &http.Client{Timeout: cfg.ClientTimeout, Transport: transport}, nil
}

// Middleware требует валидный Bearer-токен (RS256, exp обязателен, sub непуст).
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, scopes, err := j.authenticate(r)
			if err != nil {
				var reason errUnauthenticated
				if !errors.As(err, &reason) {
					j.logger.Debug("Токен отклонён",
						slog.String("error", err.Error()),
						slog.String("remote_addr", r.RemoteAddr),
					)
					reason = "Невалидный или просроченный токен"
				}
				apierrors.Unauthorized(w, string(reason))
				return
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), subject, scopes)))
		})
	}
}

func (j *JWTAuth) authenticate(r *http.Request) (string, []string, error) {
	raw, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, j.keys.KeyfuncCtx(r.Context()),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
	)
	if err != nil {
		return "", nil, err
	}
	if !token.Valid {
		return "", nil, errUnauthenticated("Невалидный токен")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", nil, errUnauthenticated("Отсутствует sub в токене")
	}
	return subject, claims.Scopes(), nil
}

// bearerToken извлекает токен из заголовка "Authorization: Bearer <token>".
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errUnauthenticated("Отсутствует заголовок Authorization")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errUnauthenticated("Неверный формат Authorization: ожидается Bearer <token>")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errUnauthenticated("Пустой Bearer token")
	}
	return token, nil
}

// Close останавливает фоновое обновление JWKS.
func (j *JWTAuth) Close() {
	if j.cancel != nil {
		j.cancel()
	}
}

// DevAuth пропускает все запросы без токена от имени DevSubject с
// указанными scopes. Используется, когда auth.jwks_url не задан.
func DevAuth(scopes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), DevSubject, scopes)))
		})
	}
}

// RequireScope отвечает 403, если у вызывающего нет scope.
// Ставится после Middleware или DevAuth.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scopes, ok := r.Context().Value(ContextKeyScopes).([]string)
			switch {
			case !ok:
				apierrors.Forbidden(w, "Отсутствуют scopes в токене")
			case !slices.Contains(scopes, scope):
				apierrors.Forbidden(w, "Недостаточно прав: требуется scope "+scope)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func withCaller(ctx context.Context, subject string, scopes []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeySubject, subject)
	return context.WithValue(ctx, ContextKeyScopes, scopes)
}

// SubjectFromContext возвращает субъект вызывающего или "".
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(ContextKeySubject).(string)
	return subject
}

// ScopesFromContext возвращает scopes вызывающего или nil.
func ScopesFromContext(ctx context.Context) []string {
	scopes, _ := ctx.Value(ContextKeyScopes).([]string)
	return scopes
}
