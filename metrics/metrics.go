package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_relay_connections_active",
			Help: "Current number of open websocket connections on this instance",
		},
	)

	IngestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_ingest_requests_total",
			Help: "Total number of ingestion requests by action and response status",
		},
		[]string{"action", "status"},
	)

	EventsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_events_emitted_total",
			Help: "Total number of domain events published",
		},
		[]string{"kind"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_deliveries_total",
			Help: "Total number of delivery tasks processed by outcome",
		},
		[]string{"outcome"},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_relay_delivery_duration_seconds",
			Help:    "Duration of a single delivery task in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
