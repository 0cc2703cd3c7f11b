// system.go — обработчики GET /api/v1/info и GET /api/v1/openapi.json.
// Публичные endpoints (без аутентификации) для мониторинга и клиентов.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	apierrors "github.com/bigkaa/goartstore/docvault/internal/api/errors"
	"github.com/bigkaa/goartstore/docvault/internal/config"
)

// DiskUsageFunc возвращает ёмкость файловой системы, содержащей path.
type DiskUsageFunc func(path string) (total, used, available int64, err error)

// CatalogStats — сведения о каталоге для /api/v1/info.
type CatalogStats interface {
	Counts() (active, trashed int)
	IsReady() bool
	RelockDelay() time.Duration
}

// capacityInfo — ёмкость файловой системы хранилища.
type capacityInfo struct {
	TotalBytes     int64 `json:"total_bytes"`
	UsedBytes      int64 `json:"used_bytes"`
	AvailableBytes int64 `json:"available_bytes"`
}

// vaultInfo — ответ GET /api/v1/info.
type vaultInfo struct {
	Service        string         `json:"service"`
	Version        string         `json:"version"`
	Ready          bool           `json:"ready"`
	Documents      map[string]int `json:"documents"`
	Capacity       *capacityInfo  `json:"capacity,omitempty"`
	RelockDelay    string         `json:"relock_delay"`
	TrashRetention string         `json:"trash_retention"`
	ShareEnabled   bool           `json:"share_enabled"`
}

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	cfg       *config.Config
	catalog   CatalogStats
	diskUsage DiskUsageFunc
	contract  *openapi3.T
	logger    *slog.Logger
}

// NewSystemHandler создаёт обработчик системных endpoints.
// diskUsage может быть nil — тогда capacity не возвращается.
func NewSystemHandler(
	cfg *config.Config,
	catalog CatalogStats,
	diskUsage DiskUsageFunc,
	contract *openapi3.T,
	logger *slog.Logger,
) *SystemHandler {
	return &SystemHandler{
		cfg:       cfg,
		catalog:   catalog,
		diskUsage: diskUsage,
		contract:  contract,
		logger:    logger.With(slog.String("component", "system_handler")),
	}
}

// GetInfo обрабатывает GET /api/v1/info.
func (h *SystemHandler) GetInfo(w http.ResponseWriter, _ *http.Request) {
	active, trashed := h.catalog.Counts()

	resp := vaultInfo{
		Service: serviceName,
		Version: config.Version,
		Ready:   h.catalog.IsReady(),
		Documents: map[string]int{
			"active":  active,
			"trashed": trashed,
		},
		RelockDelay:    h.catalog.RelockDelay().String(),
		TrashRetention: h.cfg.Lifecycle.TrashRetention.String(),
		ShareEnabled:   h.cfg.Share.Enabled,
	}

	if h.diskUsage != nil {
		total, used, available, err := h.diskUsage(h.cfg.Storage.VaultDir)
		if err != nil {
			h.logger.Warn("Не удалось получить ёмкость диска", slog.String("error", err.Error()))
		} else {
			resp.Capacity = &capacityInfo{
				TotalBytes:     total,
				UsedBytes:      used,
				AvailableBytes: available,
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetOpenAPI обрабатывает GET /api/v1/openapi.json.
func (h *SystemHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	data, err := h.contract.MarshalJSON()
	if err != nil {
		h.logger.Error("Ошибка сериализации OpenAPI", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка сериализации контракта")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
