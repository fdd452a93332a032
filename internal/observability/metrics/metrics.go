package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "opsledger_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	invoiceCreateTotal   *prometheus.CounterVec
	invoiceCreateLatency *prometheus.HistogramVec

	paymentApplyTotal   *prometheus.CounterVec
	paymentApplyLatency *prometheus.HistogramVec

	ledgerPublishErrors prometheus.Counter

	payrollRunTotal   *prometheus.CounterVec
	payrollRunLatency *prometheus.HistogramVec

	payrollExportTotal   *prometheus.CounterVec
	payrollExportLatency *prometheus.HistogramVec

	reportQueryTotal   *prometheus.CounterVec
	reportQueryLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		invoiceCreateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_create_total",
				Help: "Total invoice create operations by result",
			},
			[]string{"result"},
		)
		invoiceCreateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_create_latency_seconds",
				Help:    "Invoice create latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		paymentApplyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_apply_total",
				Help: "Total payment reconciliation attempts by result",
			},
			[]string{"result"},
		)
		paymentApplyLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payment_apply_latency_seconds",
				Help:    "Payment reconciliation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		ledgerPublishErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_publish_errors_total",
				Help: "Total ledger event publish failures",
			},
		)

		payrollRunTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payroll_run_total",
				Help: "Total payroll run computations by result",
			},
			[]string{"result"},
		)
		payrollRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payroll_run_latency_seconds",
				Help:    "Payroll run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		payrollExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payroll_export_total",
				Help: "Total payroll export operations by format and result",
			},
			[]string{"format", "result"},
		)
		payrollExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payroll_export_latency_seconds",
				Help:    "Payroll export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		reportQueryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_query_total",
				Help: "Total report queries by report and result",
			},
			[]string{"report", "result"},
		)
		reportQueryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_query_latency_seconds",
				Help:    "Report query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report", "result"},
		)

		prometheus.MustRegister(
			invoiceCreateTotal,
			invoiceCreateLatency,
			paymentApplyTotal,
			paymentApplyLatency,
			ledgerPublishErrors,
			payrollRunTotal,
			payrollRunLatency,
			payrollExportTotal,
			payrollExportLatency,
			reportQueryTotal,
			reportQueryLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveInvoiceCreate records invoice create latency and result.
func ObserveInvoiceCreate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if invoiceCreateTotal != nil {
		invoiceCreateTotal.WithLabelValues(result).Inc()
	}
	if invoiceCreateLatency != nil {
		invoiceCreateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObservePaymentApply records payment reconciliation latency and result.
func ObservePaymentApply(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if paymentApplyTotal != nil {
		paymentApplyTotal.WithLabelValues(result).Inc()
	}
	if paymentApplyLatency != nil {
		paymentApplyLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncLedgerPublishError increments ledger publish failure counter.
func IncLedgerPublishError() {
	if ledgerPublishErrors != nil {
		ledgerPublishErrors.Inc()
	}
}

// ObservePayrollRun records payroll run latency and result.
func ObservePayrollRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if payrollRunTotal != nil {
		payrollRunTotal.WithLabelValues(result).Inc()
	}
	if payrollRunLatency != nil {
		payrollRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObservePayrollExport records payroll export latency and result.
func ObservePayrollExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if payrollExportTotal != nil {
		payrollExportTotal.WithLabelValues(format, result).Inc()
	}
	if payrollExportLatency != nil {
		payrollExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveReportQuery records report query latency and result.
func ObserveReportQuery(report, result string, duration time.Duration) {
	if report == "" {
		report = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportQueryTotal != nil {
		reportQueryTotal.WithLabelValues(report, result).Inc()
	}
	if reportQueryLatency != nil {
		reportQueryLatency.WithLabelValues(report, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
