// Package metrics provides Prometheus metrics for the MTG library server.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mtglib/server/internal/models"
)

var (
	// Search Metrics
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtg_searches_total",
			Help: "Total number of card searches by outcome",
		},
		[]string{"status"}, // "ok" or "error"
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mtg_search_duration_seconds",
			Help:    "End-to-end card search latency including pagination",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Library Metrics
	LibraryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_library_entries",
			Help: "Number of distinct entries in the library",
		},
	)

	LibraryCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_library_cards",
			Help: "Total number of cards in the library (sum of quantities)",
		},
	)

	LibraryValueUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_library_value_usd",
			Help: "Total estimated value of the library in USD",
		},
	)

	// CSV Interchange Metrics
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtg_import_rows_total",
			Help: "CSV import rows by outcome",
		},
		[]string{"result"}, // "created", "merged", "skipped"
	)

	ExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mtg_exports_total",
			Help: "Number of CSV exports served",
		},
	)

	// Price Refresh Metrics
	PriceRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mtg_price_refreshes_total",
			Help: "Number of entries whose price was refreshed from the card API",
		},
	)
)

// UpdateLibraryGauges pushes current ledger stats into the library gauges.
// Called after every mutating operation.
func UpdateLibraryGauges(stats models.LibraryStats) {
	LibraryEntries.Set(float64(stats.Entries))
	LibraryCards.Set(float64(stats.TotalCards))
	LibraryValueUSD.Set(stats.TotalValue)
}

// RecordImport counts the per-row outcomes of a CSV import.
func RecordImport(result models.ImportResult) {
	ImportRowsTotal.WithLabelValues("created").Add(float64(result.Created))
	ImportRowsTotal.WithLabelValues("merged").Add(float64(result.Merged))
	ImportRowsTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
}
