// retention.go — сервис фоновой очистки корзины.
//
// Документы, пролежавшие в корзине дольше trash_retention, удаляются
// безвозвратно через Manager.PermanentlyDelete. Запускается как горутина
// с периодическим тикером (VAULT_LIFECYCLE_RETENTION_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики очистки корзины
var (
	retentionRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dv_retention_runs_total",
		Help: "Общее количество запусков очистки корзины",
	})

	retentionPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dv_retention_purged_total",
		Help: "Общее количество документов, удалённых из корзины по сроку хранения",
	})

	retentionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dv_retention_duration_seconds",
		Help:    "Длительность очистки корзины в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// RetentionResult — результат одного запуска очистки.
type RetentionResult struct {
	// Purged — количество удалённых документов
	Purged int
	// Errors — количество ошибок удаления файлов
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// RetentionService — сервис очистки корзины по сроку хранения.
type RetentionService struct {
	manager   *Manager
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewRetentionService создаёт сервис очистки.
// retention — срок хранения документа в корзине.
func NewRetentionService(
	manager *Manager,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *RetentionService {
	return &RetentionService{
		manager:   manager,
		retention: retention,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(slog.String("component", "retention")),
	}
}

// Start запускает фоновую горутину с периодическим тикером.
func (rs *RetentionService) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel

	go rs.run(runCtx)

	rs.logger.Info("Очистка корзины запущена",
		slog.String("retention", rs.retention.String()),
		slog.String("interval", rs.interval.String()),
	)
}

// Stop останавливает фоновый процесс.
func (rs *RetentionService) Stop() {
	if rs.cancel != nil {
		rs.cancel()
	}
	rs.logger.Info("Очистка корзины остановлена")
}

func (rs *RetentionService) run(ctx context.Context) {
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs.RunOnce()
		}
	}
}

// RunOnce удаляет из корзины документы с истёкшим сроком хранения.
// Документы без TrashedAt (восстановлены из каталога при перезагрузке
// до появления отметки) не трогаются.
func (rs *RetentionService) RunOnce() *RetentionResult {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	start := time.Now()
	result := &RetentionResult{}
	cutoff := rs.now().Add(-rs.retention)

	for _, doc := range rs.manager.ListTrashed() {
		if doc.TrashedAt == nil || doc.TrashedAt.After(cutoff) {
			continue
		}
		if err := rs.manager.PermanentlyDelete(doc.ID); err != nil {
			// запись каталога удаляется и при ошибке файла
			rs.logger.Error("Ошибка удаления документа из корзины",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}
		result.Purged++
	}

	result.Duration = time.Since(start)

	retentionRunsTotal.Inc()
	retentionPurgedTotal.Add(float64(result.Purged))
	retentionDurationSeconds.Observe(result.Duration.Seconds())

	rs.logger.Info("Очистка корзины завершена",
		slog.Int("purged", result.Purged),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)
	return result
}
