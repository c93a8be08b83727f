package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotel_reservations_created_total",
			Help: "Total number of reservations admitted",
		},
	)

	BookingConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotel_booking_conflicts_total",
			Help: "Total number of booking attempts rejected for unavailable rooms",
		},
	)

	ReservationStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotel_reservation_status_changes_total",
			Help: "Total reservation status transitions",
		},
		[]string{"status"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hotel_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hotel_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotel_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)
)
