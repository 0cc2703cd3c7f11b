// reconcile.go — сервис фоновой сверки каталога с директорией хранилища.
//
// Обнаруживает проблемы:
//   - orphaned_file: файл в хранилище, которого нет в каталоге
//   - missing_file: документ каталога, файл которого отсутствует
//   - protection_mismatch: признак защиты в каталоге расходится с атрибутом файла
//
// Расхождения защиты исправляются: атрибут файла считается источником истины.
// Остальные проблемы только фиксируются в отчёте.
// Запускается как горутина с периодическим тикером (VAULT_LIFECYCLE_RECONCILE_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/docvault/internal/domain/classify"
	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

// Prometheus метрики сверки
var (
	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dv_reconcile_runs_total",
		Help: "Общее количество запусков сверки",
	})

	reconcileIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dv_reconcile_issues_total",
		Help: "Общее количество проблем, обнаруженных сверкой",
	}, []string{"type"})

	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dv_reconcile_duration_seconds",
		Help:    "Длительность выполнения сверки в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})
)

// IssueType — тип проблемы, найденной сверкой.
type IssueType string

const (
	IssueOrphanedFile       IssueType = "orphaned_file"
	IssueMissingFile        IssueType = "missing_file"
	IssueProtectionMismatch IssueType = "protection_mismatch"
)

// ReconcileIssue — проблема, найденная сверкой.
type ReconcileIssue struct {
	Type        IssueType `json:"type"`
	DocumentID  string    `json:"document_id,omitempty"`
	Path        string    `json:"path"`
	Description string    `json:"description"`
	Repaired    bool      `json:"repaired"`
}

// ReconcileSummary — сводка по типам проблем.
type ReconcileSummary struct {
	OK                   int `json:"ok"`
	OrphanedFiles        int `json:"orphaned_files"`
	MissingFiles         int `json:"missing_files"`
	ProtectionMismatches int `json:"protection_mismatches"`
}

// ReconcileReport — результат одного запуска сверки.
type ReconcileReport struct {
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  time.Time        `json:"completed_at"`
	FilesChecked int              `json:"files_checked"`
	Issues       []ReconcileIssue `json:"issues"`
	Summary      ReconcileSummary `json:"summary"`
}

// ReconcileService — сервис фоновой сверки хранилища.
type ReconcileService struct {
	manager  *Manager
	store    Store
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
	cancel    context.CancelFunc
}

// NewReconcileService создаёт сервис сверки.
func NewReconcileService(
	manager *Manager,
	store Store,
	interval time.Duration,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		manager:  manager,
		store:    store,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconcile")),
	}
}

// Start запускает фоновую горутину сверки с периодическим тикером.
func (rs *ReconcileService) Start(ctx context.Context) {
	rsCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel

	go rs.run(rsCtx)

	rs.logger.Info("Сверка запущена",
		slog.String("interval", rs.interval.String()),
	)
}

// Stop останавливает фоновый процесс сверки.
func (rs *ReconcileService) Stop() {
	if rs.cancel != nil {
		rs.cancel()
	}
	rs.logger.Info("Сверка остановлена")
}

// IsInProgress возвращает true, если сверка выполняется.
func (rs *ReconcileService) IsInProgress() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.inProcess
}

func (rs *ReconcileService) run(ctx context.Context) {
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

// RunOnce выполняет один цикл сверки.
// Если сверка уже выполняется, возвращает nil, true.
func (rs *ReconcileService) RunOnce() (*ReconcileReport, bool) {
	rs.mu.Lock()
	if rs.inProcess {
		rs.mu.Unlock()
		rs.logger.Warn("Сверка уже выполняется, пропуск")
		return nil, true
	}
	rs.inProcess = true
	rs.mu.Unlock()

	defer func() {
		rs.mu.Lock()
		rs.inProcess = false
		rs.mu.Unlock()
	}()

	report := &ReconcileReport{StartedAt: time.Now().UTC()}
	rs.logger.Info("Сверка начата")

	report.FilesChecked, report.Issues = rs.reconcile()

	report.CompletedAt = time.Now().UTC()
	duration := report.CompletedAt.Sub(report.StartedAt)

	for _, issue := range report.Issues {
		switch issue.Type {
		case IssueOrphanedFile:
			report.Summary.OrphanedFiles++
		case IssueMissingFile:
			report.Summary.MissingFiles++
		case IssueProtectionMismatch:
			report.Summary.ProtectionMismatches++
		}
		reconcileIssuesTotal.WithLabelValues(string(issue.Type)).Inc()
	}
	report.Summary.OK = max(report.FilesChecked-len(report.Issues), 0)

	reconcileRunsTotal.Inc()
	reconcileDurationSeconds.Observe(duration.Seconds())

	rs.logger.Info("Сверка завершена",
		slog.Int("files_checked", report.FilesChecked),
		slog.Int("issues", len(report.Issues)),
		slog.Int("ok", report.Summary.OK),
		slog.Duration("duration", duration),
	)
	return report, false
}

// reconcile сравнивает каталог с содержимым директории хранилища.
func (rs *ReconcileService) reconcile() (int, []ReconcileIssue) {
	issues := []ReconcileIssue{}

	entries, err := rs.store.List(rs.store.Dir())
	if err != nil {
		rs.logger.Error("Ошибка чтения директории хранилища",
			slog.String("error", err.Error()),
		)
		return 0, issues
	}

	known := make(map[string]bool)
	checked := 0
	collections := []struct {
		col  model.Collection
		docs []*model.Document
	}{
		{model.CollectionActive, rs.manager.ListActive()},
		{model.CollectionTrashed, rs.manager.ListTrashed()},
	}
	for _, c := range collections {
		col := c.col
		for _, doc := range c.docs {
			checked++
			known[doc.Location] = true
			if issue, ok := rs.checkDocument(doc, col); ok {
				issues = append(issues, issue)
			}
		}
	}

	for _, e := range entries {
		if e.Hidden() || known[e.Path] {
			continue
		}
		if _, ok := classify.TypeHintFor(e.Name); !ok {
			continue
		}
		checked++
		issues = append(issues, ReconcileIssue{
			Type:        IssueOrphanedFile,
			Path:        e.Path,
			Description: "Файл в хранилище отсутствует в каталоге",
		})
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return checked, issues
}

// checkDocument проверяет один документ каталога.
func (rs *ReconcileService) checkDocument(doc *model.Document, col model.Collection) (ReconcileIssue, bool) {
	if !rs.store.Exists(doc.Location) {
		return ReconcileIssue{
			Type:        IssueMissingFile,
			DocumentID:  doc.ID,
			Path:        doc.Location,
			Description: "Файл документа отсутствует в хранилище",
		}, true
	}
	if col != model.CollectionActive {
		return ReconcileIssue{}, false
	}

	protected, err := rs.store.IsProtected(doc.Location)
	if err != nil {
		rs.logger.Warn("Ошибка чтения атрибута защиты при сверке",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
		return ReconcileIssue{}, false
	}
	if protected == doc.IsProtected {
		return ReconcileIssue{}, false
	}

	// повторная проверка под блокировкой менеджера
	changed, err := rs.manager.SyncProtection(doc.ID)
	if err != nil {
		rs.logger.Warn("Не удалось синхронизировать признак защиты",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
	}
	if err == nil && !changed {
		return ReconcileIssue{}, false
	}
	return ReconcileIssue{
		Type:        IssueProtectionMismatch,
		DocumentID:  doc.ID,
		Path:        doc.Location,
		Description: "Признак защиты в каталоге не совпадает с атрибутом файла",
		Repaired:    changed,
	}, true
}
