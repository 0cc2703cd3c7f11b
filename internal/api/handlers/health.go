// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bigkaa/goartstore/docvault/internal/config"
)

const (
	statusOK   = "ok"
	statusFail = "fail"
	// serviceName — имя сервиса в ответах health и info.
	serviceName = "docvault"
)

// CatalogReadinessChecker — интерфейс для проверки загрузки каталога.
type CatalogReadinessChecker interface {
	IsReady() bool
}

// DependencyHealth — состояние внешних зависимостей (dephealth).
type DependencyHealth interface {
	Health() map[string]bool
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// vaultDir — директория хранилища (проверка записи)
	vaultDir string
	// journalDir — директория журнала (проверка записи)
	journalDir string
	catalog    CatalogReadinessChecker
	// deps — может быть nil, если проверка зависимостей не настроена
	deps DependencyHealth
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(vaultDir, journalDir string, catalog CatalogReadinessChecker, deps DependencyHealth) *HealthHandler {
	return &HealthHandler{
		version:    config.Version,
		vaultDir:   vaultDir,
		journalDir: journalDir,
		catalog:    catalog,
		deps:       deps,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    statusOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: директорию хранилища, директорию журнала, загрузку каталога,
// внешние зависимости. Недоступный журнал даёт degraded, остальное — fail.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := statusOK
	httpStatus := http.StatusOK
	fail := func() {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	vaultCheck := checkWritable(h.vaultDir, "Директория хранилища")
	if vaultCheck["status"] != statusOK {
		fail()
	}

	journalCheck := checkWritable(h.journalDir, "Директория журнала")
	if journalCheck["status"] != statusOK && overallStatus != statusFail {
		overallStatus = "degraded"
	}

	catalogCheck := map[string]any{"status": statusOK}
	if h.catalog != nil && !h.catalog.IsReady() {
		catalogCheck = map[string]any{"status": statusFail, "message": "Каталог не загружен"}
		fail()
	}

	checks := map[string]any{
		"vault":   vaultCheck,
		"journal": journalCheck,
		"catalog": catalogCheck,
	}

	if h.deps != nil {
		deps := map[string]any{}
		for name, healthy := range h.deps.Health() {
			if healthy {
				deps[name] = statusOK
				continue
			}
			deps[name] = statusFail
			fail()
		}
		checks["dependencies"] = deps
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
		"checks":    checks,
	})
}

// checkWritable проверяет, что в директорию можно записать файл.
func checkWritable(dir, title string) map[string]any {
	if dir == "" {
		return map[string]any{
			"status":  statusOK,
			"message": "Проверка не настроена",
		}
	}

	testFile := filepath.Join(dir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": title + " недоступна для записи: " + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{"status": statusOK}
}
