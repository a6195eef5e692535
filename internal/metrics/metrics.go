package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheHitsTotal counts Places requests served from the request cache.
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_cache_hits_total",
			Help: "Total number of Places requests answered from the request cache.",
		},
		[]string{"operation"},
	)

	// LiveCallsTotal counts billable Places calls by tier.
	LiveCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_live_calls_total",
			Help: "Total number of live Places API calls.",
		},
		[]string{"operation", "tier"},
	)

	// LiveCallErrorsTotal counts live calls that failed.
	LiveCallErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_live_call_errors_total",
			Help: "Total number of failed live Places API calls.",
		},
		[]string{"operation"},
	)

	// CacheWriteFailuresTotal counts live results that could not be stored.
	CacheWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_cache_write_failures_total",
			Help: "Total number of live results that could not be persisted.",
		},
		[]string{"operation"},
	)

	// DegradedSearchesTotal counts text searches served by autocomplete + details.
	DegradedSearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "places_degraded_searches_total",
			Help: "Total number of text searches degraded because every paid tier was at its cap.",
		},
	)

	// QuotaOverageTotal counts selections that charge a floor tier past its free cap.
	QuotaOverageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_quota_overage_total",
			Help: "Total number of Places calls selected on a floor tier whose free cap is used up.",
		},
		[]string{"operation", "tier"},
	)

	// PropertiesMappedTotal counts mapping outcomes by property status.
	PropertiesMappedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "properties_mapped_total",
			Help: "Total number of properties processed by the mapping run, by resulting status.",
		},
		[]string{"status"},
	)

	registerOnce sync.Once
)

// Register is called once in main() to register metrics.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CacheHitsTotal,
			LiveCallsTotal,
			LiveCallErrorsTotal,
			CacheWriteFailuresTotal,
			DegradedSearchesTotal,
			QuotaOverageTotal,
			PropertiesMappedTotal,
		)
	})
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}
