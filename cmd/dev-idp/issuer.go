package main

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// keyID — kid единственного ключа.
const keyID = "dev-key-1"

// profiles — наборы scopes по ролям пользователя хранилища.
var profiles = map[string][]string{
	"reader": {"vault:read"},
	"editor": {"vault:read", "vault:write"},
	"owner":  {"vault:read", "vault:write", "vault:authorize"},
	"admin":  {"vault:read", "vault:write", "vault:authorize", "vault:admin"},
}

// jwksKey — ключ JWKS (RFC 7517).
type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// tokenRequest — тело POST /token. Scopes имеют приоритет над Profile.
type tokenRequest struct {
	Sub        string   `json:"sub"`
	Profile    string   `json:"profile"`
	Scopes     []string `json:"scopes"`
	TTLSeconds int      `json:"ttl_seconds"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}

// tokenClaims совместимы с middleware.Claims хранилища.
type tokenClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes"`
}

// issuer подписывает токены и отдаёт публичный ключ.
type issuer struct {
	key    *rsa.PrivateKey
	jwks   []byte
	now    func() time.Time
	logger *slog.Logger
}

func newIssuer(key *rsa.PrivateKey, logger *slog.Logger) (*issuer, error) {
	pub := key.PublicKey
	jwks, err := json.Marshal(map[string][]jwksKey{
		"keys": {{
			Kty: "RSA",
			Kid: keyID,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация JWKS: %w", err)
	}
	return &issuer{key: key, jwks: jwks, now: time.Now, logger: logger}, nil
}

func (i *issuer) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/jwks", i.handleJWKS)
	r.Post("/token", i.handleToken)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (i *issuer) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(i.jwks)
}

func (i *issuer) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Невалидный JSON: "+err.Error())
		return
	}
	if req.Sub == "" {
		writeError(w, http.StatusBadRequest, "Поле 'sub' обязательно")
		return
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		profile := req.Profile
		if profile == "" {
			profile = "owner"
		}
		var ok bool
		if scopes, ok = profiles[profile]; !ok {
			writeError(w, http.StatusBadRequest, "Неизвестный профиль: "+profile)
			return
		}
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := i.now()
	expires := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Sub,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "dev-idp",
		},
		Scopes: scopes,
	})
	token.Header["kid"] = keyID

	signed, err := token.SignedString(i.key)
	if err != nil {
		i.logger.Error("Ошибка подписи JWT", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Ошибка генерации токена")
		return
	}

	i.logger.Info("Токен выдан",
		slog.String("sub", req.Sub),
		slog.Any("scopes", scopes),
		slog.Duration("ttl", ttl),
	)
	writeJSON(w, http.StatusOK, tokenResponse{Token: signed, Scopes: scopes, ExpiresAt: expires.UTC()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": "VALIDATION_ERROR", "message": message},
	})
}
