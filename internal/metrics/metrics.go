// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coldreach",
		Name:      "deliveries_total",
		Help:      "Send attempts by outcome.",
	}, []string{"status"})

	TrackingEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coldreach",
		Name:      "tracking_events_total",
		Help:      "Tracking hits by event and whether they changed state.",
	}, []string{"event", "first"})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coldreach",
		Name:      "events_consumed_total",
		Help:      "Delivery and tracking events seen by the event worker.",
	}, []string{"type"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "coldreach",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of bulk sends, pacing included.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "coldreach",
		Name:      "batch_size",
		Help:      "Recipients per bulk send.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
