package metrics

import (
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	metricPrefix = "delivery_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	feeCalculationsTotal  *prometheus.CounterVec
	feeCalculationLatency *prometheus.HistogramVec

	courierResetsTotal prometheus.Counter

	settlementRunsTotal     prometheus.Counter
	settlementRunLatency    prometheus.Histogram
	settlementsCreatedTotal *prometheus.CounterVec
	settlementGroupsSkipped *prometheus.CounterVec

	billCreationTotal *prometheus.CounterVec

	settlementExportTotal   *prometheus.CounterVec
	settlementExportLatency *prometheus.HistogramVec
)

// Init registers service metrics and DB-backed gauges.
func Init(db *sql.DB, logger logrus.FieldLogger) {
	registerOnce.Do(func() {
		feeCalculationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fee_calculations_total",
				Help: "Total fee calculations by result and bonus",
			},
			[]string{"result", "high_volume_bonus"},
		)
		feeCalculationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fee_calculation_latency_seconds",
				Help:    "Fee calculation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		courierResetsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "courier_daily_resets_total",
				Help: "Total courier daily counter resets",
			},
		)

		settlementRunsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_runs_total",
				Help: "Total weekly settlement runs",
			},
		)
		settlementRunLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_run_latency_seconds",
				Help:    "Weekly settlement run latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		)
		settlementsCreatedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlements_created_total",
				Help: "Total settlements created by partner kind",
			},
			[]string{"kind"},
		)
		settlementGroupsSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_groups_skipped_total",
				Help: "Total settlement groups skipped by partner kind and reason",
			},
			[]string{"kind", "reason"},
		)

		billCreationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bill_creation_total",
				Help: "Total payable bill creations by result",
			},
			[]string{"result"},
		)

		settlementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_export_total",
				Help: "Total settlement exports by format and result",
			},
			[]string{"format", "result"},
		)
		settlementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_export_latency_seconds",
				Help:    "Settlement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			feeCalculationsTotal,
			feeCalculationLatency,
			courierResetsTotal,
			settlementRunsTotal,
			settlementRunLatency,
			settlementsCreatedTotal,
			settlementGroupsSkipped,
			billCreationTotal,
			settlementExportTotal,
			settlementExportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveFeeCalculation records a fee calculation.
func ObserveFeeCalculation(result string, highVolumeBonus bool, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if feeCalculationsTotal != nil {
		feeCalculationsTotal.WithLabelValues(result, strconv.FormatBool(highVolumeBonus)).Inc()
	}
	if feeCalculationLatency != nil {
		feeCalculationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddCourierResets increments the daily reset counter by count.
func AddCourierResets(count int) {
	if count <= 0 {
		return
	}
	if courierResetsTotal != nil {
		courierResetsTotal.Add(float64(count))
	}
}

// ObserveSettlementRun records one weekly run.
func ObserveSettlementRun(duration time.Duration) {
	if settlementRunsTotal != nil {
		settlementRunsTotal.Inc()
	}
	if settlementRunLatency != nil {
		settlementRunLatency.Observe(duration.Seconds())
	}
}

// IncSettlementCreated increments created settlements.
func IncSettlementCreated(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if settlementsCreatedTotal != nil {
		settlementsCreatedTotal.WithLabelValues(kind).Inc()
	}
}

// IncSettlementGroupSkipped increments skipped settlement groups.
func IncSettlementGroupSkipped(kind, reason string) {
	if kind == "" {
		kind = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	if settlementGroupsSkipped != nil {
		settlementGroupsSkipped.WithLabelValues(kind, reason).Inc()
	}
}

// IncBillCreation increments bill creation attempts by result.
func IncBillCreation(result string) {
	if result == "" {
		result = resultSuccess
	}
	if billCreationTotal != nil {
		billCreationTotal.WithLabelValues(result).Inc()
	}
}

// ObserveSettlementExport records export latency and result.
func ObserveSettlementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if settlementExportTotal != nil {
		settlementExportTotal.WithLabelValues(format, result).Inc()
	}
	if settlementExportLatency != nil {
		settlementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
