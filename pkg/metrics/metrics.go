// Package metrics exposes prometheus instrumentation for the billing core.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportRows counts preview/confirm row outcomes by status (ok, error, duplicate).
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snt_import_rows_total",
		Help: "Statement import rows processed, by phase and status.",
	}, []string{"phase", "status"})

	// AccrualsGenerated counts accrual rows created by the period engine.
	AccrualsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snt_accruals_generated_total",
		Help: "Accrual records created by period generation.",
	})

	// ImportBatches counts confirmed import batches.
	ImportBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snt_import_batches_total",
		Help: "Confirmed statement import batches.",
	})

	// DebtTotal tracks the latest computed total outstanding debt in rubles.
	DebtTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snt_debt_total_rubles",
		Help: "Total outstanding accrued-minus-paid amount across all plots.",
	})
)

// Serve starts the metrics endpoint on its own port.
func Serve(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
