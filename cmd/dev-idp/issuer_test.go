package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) (*issuer, *httptest.Server) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	iss, err := newIssuer(key, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv := httptest.NewServer(iss.routes())
	t.Cleanup(srv.Close)
	return iss, srv
}

func requestToken(t *testing.T, url, body string) (*http.Response, tokenResponse) {
	t.Helper()
	resp, err := http.Post(url+"/token", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out tokenResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

// Токен проверяется по отданному JWKS.
func TestToken_VerifiesWithJWKS(t *testing.T) {
	_, srv := newTestIssuer(t)

	resp, out := requestToken(t, srv.URL, `{"sub":"alice","profile":"admin"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out.Scopes, "vault:admin")

	kf, err := keyfunc.NewDefault([]string{srv.URL + "/jwks"})
	require.NoError(t, err)

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(out.Token, claims, kf.Keyfunc, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "alice", claims.Subject)
}

func TestToken_DefaultProfile(t *testing.T) {
	_, srv := newTestIssuer(t)

	resp, out := requestToken(t, srv.URL, `{"sub":"bob"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, profiles["owner"], out.Scopes)
	assert.WithinDuration(t, time.Now().Add(time.Hour), out.ExpiresAt, time.Minute)
}

func TestToken_ExplicitScopes(t *testing.T) {
	_, srv := newTestIssuer(t)

	resp, out := requestToken(t, srv.URL, `{"sub":"bob","profile":"admin","scopes":["vault:read"],"ttl_seconds":60}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"vault:read"}, out.Scopes)
}

func TestToken_Invalid(t *testing.T) {
	_, srv := newTestIssuer(t)

	for _, body := range []string{`{`, `{"profile":"owner"}`, `{"sub":"x","profile":"root"}`} {
		resp, _ := requestToken(t, srv.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}
