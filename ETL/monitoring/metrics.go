package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_etl_runs_total",
		Help: "Total ETL runs by job and final status",
	}, []string{"job", "status"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warehouse_etl_run_duration_seconds",
		Help:    "Duration of ETL runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"job"})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warehouse_etl_step_duration_seconds",
		Help:    "Duration of individual ETL steps",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"step"})

	dimensionChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_etl_dimension_changes_total",
		Help: "Dimension versions expired or inserted, by entity",
	}, []string{"entity", "kind"})

	factsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_etl_facts_loaded_total",
		Help: "Total sales facts appended",
	})

	snapshotsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_etl_inventory_snapshots_total",
		Help: "Total inventory snapshots written",
	})

	lastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "warehouse_etl_last_success_timestamp_seconds",
		Help: "End time of the last successful run",
	}, []string{"job"})
)

// ObserveRun фиксирует итог запуска
func ObserveRun(job, status string, duration time.Duration, endTime time.Time) {
	runsTotal.WithLabelValues(job, status).Inc()
	runDuration.WithLabelValues(job).Observe(duration.Seconds())
	if status == "Success" {
		lastSuccess.WithLabelValues(job).Set(float64(endTime.Unix()))
	}
}

// ObserveStep фиксирует длительность шага
func ObserveStep(step string, duration time.Duration) {
	stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// ObserveDimension фиксирует изменения измерения
func ObserveDimension(entity string, expired, inserted int) {
	dimensionChanges.WithLabelValues(entity, "expired").Add(float64(expired))
	dimensionChanges.WithLabelValues(entity, "inserted").Add(float64(inserted))
}

// ObserveFacts фиксирует количество загруженных фактов
func ObserveFacts(n int) {
	factsLoaded.Add(float64(n))
}

// ObserveSnapshots фиксирует количество записанных снимков остатков
func ObserveSnapshots(n int) {
	snapshotsWritten.Add(float64(n))
}
