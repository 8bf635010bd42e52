package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printwatch_collector_sweeps_total",
			Help: "Total number of collection sweeps",
		},
		[]string{"status"}, // ok, partial, no_printers, list_failed, canceled
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "printwatch_collector_sweep_duration_seconds",
			Help:    "Time taken by one sweep over all printers",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	jobsObserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "printwatch_jobs_observed_total",
			Help: "Jobs returned by the job source, duplicates included",
		},
	)

	jobsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "printwatch_jobs_inserted_total",
			Help: "Jobs added to the ledger",
		},
	)

	jobsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "printwatch_jobs_duplicate_total",
			Help: "Jobs skipped because the ledger already held them",
		},
	)

	printerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printwatch_printer_failures_total",
			Help: "Per-printer failures during sweeps",
		},
		[]string{"kind"}, // open, list_jobs, close
	)

	ledgerRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "printwatch_ledger_records",
			Help: "Records held in the ledger after the last sweep",
		},
	)
)
