// metrics.go — Prometheus метрики хранилища документов.
// HTTP метрики собираются middleware; бизнес-метрики экспортируются
// для обновления из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dv_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dv_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (обновляются из сервисного слоя)
var (
	// DocumentsTotal — текущее количество документов по коллекциям.
	DocumentsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dv_documents_total",
			Help: "Текущее количество документов в каталоге",
		},
		[]string{"collection"},
	)

	// OperationsTotal — операции над документами.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dv_operations_total",
			Help: "Общее количество операций над документами",
		},
		[]string{"operation", "result"},
	)

	// RelocksTotal — исходы отложенной повторной блокировки.
	RelocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dv_relocks_total",
			Help: "Исходы отложенной блокировки после временной разблокировки",
		},
		[]string{"result"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Путь в метках — шаблон маршрута chi (/api/v1/documents/{id}), а не
// фактический URL, чтобы не раздувать кардинальность.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern возвращает шаблон маршрута после обработки запроса роутером.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusRecorder — обёртка для перехвата статус-кода.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
