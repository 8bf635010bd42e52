package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printwatch_exports_total",
			Help: "Total number of CSV export attempts",
		},
		[]string{"status"}, // success, open_failed, write_failed
	)

	exportRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "printwatch_export_records",
			Help: "Records written by the last successful export",
		},
	)
)
