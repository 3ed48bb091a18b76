package service

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики операций над файлами.
var (
	fileOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cb_file_operations_total",
		Help: "Общее количество операций над файлами по результату.",
	}, []string{"operation", "result"})

	fileOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cb_file_operation_duration_seconds",
		Help:    "Длительность операций над файлами.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	trashEmptiedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cb_trash_emptied_files_total",
		Help: "Общее количество записей, удалённых очисткой корзины.",
	})
)

// observe записывает результат и длительность операции.
func observe(op string, start time.Time, err error) {
	fileOperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	fileOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// resultLabel — значение лейбла result для ошибки.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
