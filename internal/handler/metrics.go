package handler

import (
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/spendlog/spendlog/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "spendlog_signups_total %d\n", snap.Signups)
	writeMetric(w, "spendlog_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "spendlog_logins_total{status=\"failure\"} %d\n", snap.LoginsFailed)

	for _, reason := range slices.Sorted(maps.Keys(snap.AuthFailures)) {
		writeMetric(w, "spendlog_auth_failures_total{reason=%q} %d\n", reason, snap.AuthFailures[reason])
	}
	writeMetric(w, "spendlog_tokens_revoked_total %d\n", snap.TokensRevoked)

	writeMetric(w, "spendlog_expenses_created_total %d\n", snap.ExpensesCreated)
	writeMetric(w, "spendlog_expenses_updated_total %d\n", snap.ExpensesUpdated)
	writeMetric(w, "spendlog_expenses_deleted_total %d\n", snap.ExpensesDeleted)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
