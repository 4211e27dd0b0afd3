package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	TenantsProvisioned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenants_provisioned_total",
			Help: "Total number of tenant databases provisioned by outcome",
		},
		[]string{"status"},
	)
	ProvisioningDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenant_provisioning_duration_seconds",
			Help:    "Duration of tenant database provisioning in seconds",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		},
	)
	HandleCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_handle_cache_hits_total",
			Help: "Tenant resolutions served from the handle cache",
		},
	)
	HandleCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_handle_cache_misses_total",
			Help: "Tenant resolutions that had to open a new connection",
		},
	)
	OpenTenantHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_handles_open",
			Help: "Number of live tenant database handles",
		},
	)
	CrossTenantSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_tenant_searches_total",
			Help: "Cross-tenant invoice searches by outcome",
		},
		[]string{"outcome"},
	)
	InvoicesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoices_submitted_total",
			Help: "Invoices submitted to the FBR gateway by outcome",
		},
		[]string{"status"},
	)
)

// InitMetrics registers all collectors. Registration failures are logged and
// tolerated so a duplicate registration cannot take the service down.
func InitMetrics() {
	collectors := []prometheus.Collector{
		TenantsProvisioned,
		ProvisioningDuration,
		HandleCacheHits,
		HandleCacheMisses,
		OpenTenantHandles,
		CrossTenantSearches,
		InvoicesSubmitted,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msg("Failed to register metric")
		}
	}
}
