// Точка входа docvault — хранилища личных документов.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/docvault/internal/api/handlers"
	"github.com/bigkaa/goartstore/docvault/internal/api/middleware"
	"github.com/bigkaa/goartstore/docvault/internal/api/spec"
	"github.com/bigkaa/goartstore/docvault/internal/config"
	"github.com/bigkaa/goartstore/docvault/internal/server"
	"github.com/bigkaa/goartstore/docvault/internal/service"
	"github.com/bigkaa/goartstore/docvault/internal/share"
	"github.com/bigkaa/goartstore/docvault/internal/storage/filestore"
	"github.com/bigkaa/goartstore/docvault/internal/storage/vaultlock"
	"github.com/bigkaa/goartstore/docvault/internal/storage/wal"
)

// devScopes — scopes запросов в режиме без провайдера идентификации.
var devScopes = []string{"vault:read", "vault:write", server.ScopeAdmin}

func main() {
	configPath := flag.String("config", "", "путь к YAML-файлу конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("docvault запускается",
		slog.String("version", config.Version),
		slog.String("vault_dir", cfg.Storage.VaultDir),
		slog.Int("port", cfg.Server.Port),
		slog.Bool("dev_auth", cfg.Auth.DevMode()),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("docvault завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("docvault остановлен")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Хранилище ---

	// 0. Эксклюзивное владение хранилищем (каталог живёт в памяти процесса)
	lock, err := vaultlock.Acquire(cfg.Storage.JournalDir, logger)
	if err != nil {
		return err
	}
	defer lock.Release()

	// 1. Файловое хранилище и директория загрузок
	store, err := filestore.New(cfg.Storage.VaultDir, cfg.Storage.StagingDir, logger)
	if err != nil {
		return fmt.Errorf("инициализация хранилища: %w", err)
	}

	// 2. Журнал намерений
	journal, err := wal.New(cfg.Storage.JournalDir, logger)
	if err != nil {
		return fmt.Errorf("инициализация журнала: %w", err)
	}

	// 3. Восстановление незавершённых операций до загрузки каталога
	recovered, err := service.RecoverJournal(journal, store, logger)
	if err != nil {
		return fmt.Errorf("восстановление журнала: %w", err)
	}
	logger.Info("Журнал восстановлен",
		slog.Int("committed", recovered.Committed),
		slog.Int("rolled_back", recovered.RolledBack),
		slog.Int("temp_cleaned", recovered.TempCleaned),
	)

	// 4. Менеджер жизненного цикла и каталог
	manager := service.NewManager(store, logger,
		service.WithJournal(journal),
		service.WithRelockDelay(cfg.Lifecycle.RelockDelay),
	)
	if err := manager.Reload(); err != nil {
		return fmt.Errorf("загрузка каталога: %w", err)
	}
	// Документы с ожидающей блокировкой блокируются при остановке
	defer manager.Close()

	// --- Сервисы ---

	search := service.NewSearchService(manager, cfg.Search.CacheSize, cfg.Search.CacheTTL)
	defer search.Close()

	uploadSvc := service.NewUploadService(manager, store, cfg.Storage.MaxUploadSize, logger)
	viewSvc := service.NewViewService(manager, store, logger)

	var uploader service.Uploader
	if cfg.Share.Enabled {
		sharer, err := share.New(ctx, share.Config{
			Bucket:    cfg.Share.Bucket,
			Region:    cfg.Share.Region,
			Endpoint:  cfg.Share.Endpoint,
			AccessKey: cfg.Share.AccessKey,
			SecretKey: cfg.Share.SecretKey,
			Prefix:    cfg.Share.Prefix,
			URLTTL:    cfg.Share.URLTTL,
		}, logger)
		if err != nil {
			return fmt.Errorf("инициализация обмена: %w", err)
		}
		uploader = sharer
		logger.Info("Обмен документами включён", slog.String("bucket", cfg.Share.Bucket))
	}
	shareSvc := service.NewShareService(manager, store, uploader, logger)

	reconcileSvc := service.NewReconcileService(manager, store, cfg.Lifecycle.ReconcileInterval, logger)

	var retentionSvc *service.RetentionService
	if cfg.Lifecycle.TrashRetention > 0 {
		retentionSvc = service.NewRetentionService(manager, cfg.Lifecycle.TrashRetention,
			cfg.Lifecycle.RetentionInterval, logger)
	} else {
		logger.Info("Автоочистка корзины отключена")
	}

	// --- Аутентификация и шлюз ---

	var (
		authMiddleware func(http.Handler) http.Handler
		gate           middleware.Authorizer
		dephealthSvc   *service.DephealthService
	)
	if cfg.Auth.DevMode() {
		logger.Warn("auth.jwks_url не задан, запуск без аутентификации")
		authMiddleware = middleware.DevAuth(devScopes)
		gate = middleware.AllowAll{}
	} else {
		jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.Auth.JWKSURL,
			CACertPath:      cfg.Auth.JWKSCACert,
			TLSSkipVerify:   cfg.Auth.TLSSkipVerify,
			ClientTimeout:   cfg.Auth.ClientTimeout,
			RefreshInterval: cfg.Auth.RefreshInterval,
			JWTLeeway:       cfg.Auth.JWTLeeway,
		}, logger)
		if err != nil {
			return fmt.Errorf("инициализация JWT: %w", err)
		}
		defer jwtAuth.Close()
		authMiddleware = jwtAuth.Middleware()
		gate = middleware.NewScopeAuthorizer(cfg.Auth.GateScope, logger)

		dephealthSvc, err = service.NewDephealthService(service.DephealthConfig{
			Name:          ownerName(cfg.Dephealth.Name),
			Group:         cfg.Dephealth.Group,
			DepName:       cfg.Dephealth.DepName,
			URL:           cfg.Auth.JWKSURL,
			CheckInterval: cfg.Dephealth.CheckInterval,
			TLSSkipVerify: cfg.Auth.TLSSkipVerify,
		}, logger)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		}
	}

	// --- HTTP ---

	contract, err := spec.Load(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// Readiness учитывает зависимости только после успешного запуска проверок.
	var deps handlers.DependencyHealth
	if dephealthSvc != nil {
		if deps = startDependencyHealth(gctx, dephealthSvc, logger); deps == nil {
			dephealthSvc = nil
		}
	}

	router := server.NewRouter(logger, server.Handlers{
		Documents:   handlers.NewDocumentsHandler(manager, search, uploadSvc, viewSvc, shareSvc, gate, logger),
		Trash:       handlers.NewTrashHandler(manager, logger),
		Maintenance: handlers.NewMaintenanceHandler(reconcileSvc),
		Health:      handlers.NewHealthHandler(cfg.Storage.VaultDir, cfg.Storage.JournalDir, manager, deps),
		System:      handlers.NewSystemHandler(cfg, manager, getDiskUsage, contract, logger),
	}, authMiddleware, gate)
	srv := server.New(cfg.Server, logger, router)

	// --- Запуск ---

	reconcileSvc.Start(gctx)
	if retentionSvc != nil {
		retentionSvc.Start(gctx)
	}

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Остановка фоновых процессов...")
		reconcileSvc.Stop()
		if retentionSvc != nil {
			retentionSvc.Stop()
		}
		if dephealthSvc != nil {
			dephealthSvc.Stop()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// dependencyMonitor — фоновая проверка внешних зависимостей.
type dependencyMonitor interface {
	Start(ctx context.Context) error
	Health() map[string]bool
}

// startDependencyHealth запускает проверки зависимостей и возвращает
// источник их состояния для /health/ready. При ошибке запуска возвращает
// nil: readiness не должна зависеть от незапущенного монитора.
func startDependencyHealth(ctx context.Context, mon dependencyMonitor, logger *slog.Logger) handlers.DependencyHealth {
	if err := mon.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		return nil
	}
	return mon
}
