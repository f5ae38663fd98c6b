package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "windshare_"

	// ResultSuccess labels a successful operation.
	ResultSuccess = "success"
	// ResultError labels a failed operation.
	ResultError = "error"
)

var (
	registerOnce sync.Once

	invoiceEmitTotal   *prometheus.CounterVec
	invoiceEmitLatency *prometheus.HistogramVec
	invoicesCreated    prometheus.Counter

	settlementCalcTotal   *prometheus.CounterVec
	settlementCalcLatency *prometheus.HistogramVec

	periodTransitionTotal *prometheus.CounterVec
	periodBulkCreateTotal *prometheus.CounterVec

	reconcileCorrectionTotal prometheus.Counter

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and a DB connection gauge.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		invoiceEmitTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_emit_total",
				Help: "Total invoice emission requests by result",
			},
			[]string{"result"},
		)
		invoiceEmitLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_emit_duration_seconds",
				Help:    "Invoice emission latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		invoicesCreated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoices_created_total",
				Help: "Total credit-note invoices created",
			},
		)
		settlementCalcTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_calculate_total",
				Help: "Total settlement calculations by result",
			},
			[]string{"result"},
		)
		settlementCalcLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_calculate_duration_seconds",
				Help:    "Settlement calculation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		periodTransitionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_transition_total",
				Help: "Total settlement period transitions by target status and result",
			},
			[]string{"to", "result"},
		)
		periodBulkCreateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_bulk_create_total",
				Help: "Total bulk period creation requests by result",
			},
			[]string{"result"},
		)
		reconcileCorrectionTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "allocation_reconcile_corrections_total",
				Help: "Total rounding corrections applied by the allocation reconciler",
			},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total document exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_duration_seconds",
				Help:    "Document export latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			invoiceEmitTotal, invoiceEmitLatency, invoicesCreated,
			settlementCalcTotal, settlementCalcLatency,
			periodTransitionTotal, periodBulkCreateTotal,
			reconcileCorrectionTotal,
			exportTotal, exportLatency,
		)

		if db != nil {
			gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: metricPrefix + "db_open_connections",
				Help: "Open database connections",
			}, func() float64 {
				return float64(db.Stats().OpenConnections)
			})
			prometheus.MustRegister(gauge)
		}
		if logger != nil {
			logger.Printf("metrics registered")
		}
	})
}

// ObserveInvoiceEmit records an invoice emission attempt.
func ObserveInvoiceEmit(result string, created int, elapsed time.Duration) {
	if invoiceEmitTotal == nil {
		return
	}
	invoiceEmitTotal.WithLabelValues(result).Inc()
	invoiceEmitLatency.WithLabelValues(result).Observe(elapsed.Seconds())
	if created > 0 {
		invoicesCreated.Add(float64(created))
	}
}

// ObserveSettlementCalculate records a settlement calculation.
func ObserveSettlementCalculate(result string, elapsed time.Duration) {
	if settlementCalcTotal == nil {
		return
	}
	settlementCalcTotal.WithLabelValues(result).Inc()
	settlementCalcLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// ObservePeriodTransition records a period transition attempt.
func ObservePeriodTransition(to, result string) {
	if periodTransitionTotal == nil {
		return
	}
	periodTransitionTotal.WithLabelValues(to, result).Inc()
}

// ObservePeriodBulkCreate records a bulk period creation attempt.
func ObservePeriodBulkCreate(result string) {
	if periodBulkCreateTotal == nil {
		return
	}
	periodBulkCreateTotal.WithLabelValues(result).Inc()
}

// ObserveReconcileCorrection records one applied rounding correction.
func ObserveReconcileCorrection() {
	if reconcileCorrectionTotal == nil {
		return
	}
	reconcileCorrectionTotal.Inc()
}

// ObserveExport records a document export.
func ObserveExport(format, result string, elapsed time.Duration) {
	if exportTotal == nil {
		return
	}
	exportTotal.WithLabelValues(format, result).Inc()
	exportLatency.WithLabelValues(format, result).Observe(elapsed.Seconds())
}
