package broadcast

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bitfsorg/spvcore-go/tx"
)

type metrics struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
	relays   *prometheus.CounterVec
}

// newMetrics registers the pipeline collectors on reg. A nil reg leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spvcore",
			Subsystem: "broadcast",
			Name:      "outcomes_total",
			Help:      "Submissions by terminal state and reason",
		}, []string{"state", "reason"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spvcore",
			Subsystem: "broadcast",
			Name:      "submit_duration_seconds",
			Help:      "Time spent in Submit",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		relays: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spvcore",
			Subsystem: "broadcast",
			Name:      "peer_relays_total",
			Help:      "Relay attempts by result",
		}, []string{"result"}),
	}
}

func reasonLabel(reason error) string {
	switch {
	case reason == nil:
		return "none"
	case errors.Is(reason, tx.ErrInvalidTransaction):
		return "invalid_transaction"
	case errors.Is(reason, ErrAlreadyKnown):
		return "already_known"
	case errors.Is(reason, ErrFeeExceeded):
		return "fee_exceeded"
	case errors.Is(reason, ErrBurnExceeded):
		return "burn_exceeded"
	case errors.Is(reason, ErrNetworkFailure):
		return "network_failure"
	default:
		return "other"
	}
}
