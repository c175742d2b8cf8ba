package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExamUpdates counts partial updates by result (ok, invalid, not_found, error).
	ExamUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "examflow",
		Name:      "exam_updates_total",
		Help:      "Partial exam updates by result.",
	}, []string{"result"})

	// ExamFetches counts student fetches by result (ok, not_found, error).
	ExamFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "examflow",
		Name:      "exam_fetches_total",
		Help:      "Fetch-by-student reads by result.",
	}, []string{"result"})

	// ActiveSubscriptions tracks open exam subscriptions.
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "examflow",
		Name:      "exam_subscriptions_active",
		Help:      "Open exam collection subscriptions.",
	})

	// SnapshotsDelivered counts snapshots handed to subscribers.
	SnapshotsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "examflow",
		Name:      "exam_snapshots_delivered_total",
		Help:      "Full snapshots delivered to subscribers.",
	})

	// SubscriptionFailures counts subscriptions ended by an error.
	SubscriptionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "examflow",
		Name:      "exam_subscription_failures_total",
		Help:      "Subscriptions terminated by a store or feed failure.",
	})

	// InvalidRecords counts stored exams that failed to decode.
	InvalidRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "examflow",
		Name:      "exam_invalid_records_total",
		Help:      "Stored exam records rejected by the decoder.",
	})
)
