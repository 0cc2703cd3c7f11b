// dev-idp — провайдер токенов для локальной разработки docvault.
// Генерирует RSA ключевую пару при старте, отдаёт JWKS по GET /jwks и
// выдаёт JWT с scopes хранилища по POST /token.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

// config — параметры из переменных окружения.
type config struct {
	Port    string // IDP_PORT (по умолчанию 8090)
	TLSCert string // IDP_TLS_CERT, пусто — HTTP
	TLSKey  string // IDP_TLS_KEY
	KeySize int    // IDP_KEY_SIZE (по умолчанию 2048)
}

func loadConfig() config {
	cfg := config{
		Port:    envOrDefault("IDP_PORT", "8090"),
		TLSCert: os.Getenv("IDP_TLS_CERT"),
		TLSKey:  os.Getenv("IDP_TLS_KEY"),
		KeySize: 2048,
	}
	if v := os.Getenv("IDP_KEY_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size >= 1024 {
			cfg.KeySize = size
		}
	}
	return cfg
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func main() {
	cfg := loadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	logger.Info("Генерация RSA ключевой пары", slog.Int("key_size", cfg.KeySize))
	key, err := rsa.GenerateKey(rand.Reader, cfg.KeySize)
	if err != nil {
		logger.Error("Ошибка генерации RSA ключа", slog.String("error", err.Error()))
		os.Exit(1)
	}

	issuer, err := newIssuer(key, logger)
	if err != nil {
		logger.Error("Ошибка инициализации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           issuer.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	tls := cfg.TLSCert != "" && cfg.TLSKey != ""
	logger.Info("dev-idp запущен", slog.String("addr", srv.Addr), slog.Bool("tls", tls))
	if tls {
		err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
