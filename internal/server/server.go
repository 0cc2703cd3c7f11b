// Пакет server — HTTP-сервер хранилища документов: маршруты chi, TLS,
// graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/docvault/internal/api/handlers"
	"github.com/bigkaa/goartstore/docvault/internal/api/middleware"
	"github.com/bigkaa/goartstore/docvault/internal/config"
)

// Причины запроса к шлюзу авторизации по маршрутам.
const (
	ReasonRename    = "Rename document"
	ReasonTrash     = "Move document to trash"
	ReasonLock      = "Lock document"
	ReasonUnlock    = "Unlock document"
	ReasonShare     = "Share document"
	ReasonViewTrash = "View trash"
)

// ScopeAdmin — scope для endpoints обслуживания.
const ScopeAdmin = "vault:admin"

// Handlers — набор обработчиков API.
type Handlers struct {
	Documents   *handlers.DocumentsHandler
	Trash       *handlers.TrashHandler
	Maintenance *handlers.MaintenanceHandler
	Health      *handlers.HealthHandler
	System      *handlers.SystemHandler
}

// Server — HTTP-сервер хранилища документов.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        config.ServerConfig
}

// NewRouter собирает маршруты API.
// auth — middleware аутентификации (JWT или DevAuth), gate — шлюз авторизации.
func NewRouter(
	logger *slog.Logger,
	h Handlers,
	auth func(http.Handler) http.Handler,
	gate middleware.Authorizer,
) chi.Router {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Публичные endpoints
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Get("/api/v1/info", h.System.GetInfo)
	router.Get("/api/v1/openapi.json", h.System.GetOpenAPI)

	authorized := func(reason string) func(http.Handler) http.Handler {
		return middleware.RequireAuthorization(gate, reason)
	}

	router.Group(func(r chi.Router) {
		r.Use(auth)

		r.Route("/api/v1/documents", func(r chi.Router) {
			r.Get("/", h.Documents.ListDocuments)
			r.Post("/", h.Documents.UploadDocument)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Documents.GetDocument)
				r.With(authorized(ReasonRename)).Patch("/", h.Documents.RenameDocument)
				r.With(authorized(ReasonTrash)).Delete("/", h.Documents.TrashDocument)
				r.With(authorized(ReasonLock)).Post("/lock", h.Documents.LockDocument)
				r.With(authorized(ReasonUnlock)).Post("/unlock", h.Documents.UnlockDocument)
				// Шлюз для content вызывается внутри handler и только для защищённых
				r.Get("/content", h.Documents.DocumentContent)
				r.With(authorized(ReasonShare)).Post("/share", h.Documents.ShareDocument)
			})
		})

		r.Route("/api/v1/trash", func(r chi.Router) {
			r.Use(authorized(ReasonViewTrash))
			r.Get("/", h.Trash.ListTrash)
			r.Delete("/{id}", h.Trash.DeleteForever)
			r.Post("/{id}/restore", h.Trash.RestoreDocument)
		})

		r.With(middleware.RequireScope(ScopeAdmin)).
			Post("/api/v1/maintenance/reconcile", h.Maintenance.Reconcile)
	})

	return router
}

// New создаёт HTTP-сервер с настроенными маршрутами.
func New(cfg config.ServerConfig, logger *slog.Logger, router http.Handler) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.TLSEnabled() {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и блокируется до отмены ctx или ошибки сервера.
// После отмены ctx выполняется graceful shutdown с таймаутом
// server.shutdown_timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSEnabled()),
		)

		var err error
		if s.cfg.TLSEnabled() {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
