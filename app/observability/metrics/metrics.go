package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	CheckoutRequestsTotal       metric.Int64Counter
	CheckoutDurationSeconds     metric.Float64Histogram
	CatalogQueryDurationSeconds metric.Float64Histogram
	EntitlementDeniedTotal      metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, from the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("watchly-catalog-api")
		var err error
		m := &AppMetrics{}

		m.CheckoutRequestsTotal, err = meter.Int64Counter(
			"checkout_requests_total",
			metric.WithDescription("Total number of checkout sessions created"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create checkout_requests_total: %v", err)
		}

		m.CheckoutDurationSeconds, err = meter.Float64Histogram(
			"checkout_duration_seconds",
			metric.WithDescription("Duration of checkout session creation in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create checkout_duration_seconds: %v", err)
		}

		m.CatalogQueryDurationSeconds, err = meter.Float64Histogram(
			"catalog_query_duration_seconds",
			metric.WithDescription("Duration of catalog list queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create catalog_query_duration_seconds: %v", err)
		}

		m.EntitlementDeniedTotal, err = meter.Int64Counter(
			"entitlement_denied_total",
			metric.WithDescription("Total number of requests denied for missing entitlements"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create entitlement_denied_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
