package nav

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gradbook-dev/gradbook/pkg/gate"
	"github.com/gradbook-dev/gradbook/pkg/route"
)

// Dispatch outcome labels. Kept to a closed set so label cardinality
// stays bounded.
const (
	statusRendered   = "rendered"
	statusRedirected = "redirected"
	statusModal      = "modal"
	statusLogin      = "login"
	statusPrompted   = "prompted"
	statusDelegated  = "delegated"
	statusError      = "error"
)

var (
	dispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gradbook",
		Name:      "dispatches_total",
		Help:      "Total route dispatches by route kind and outcome",
	}, []string{"route", "status"})

	passwordAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gradbook",
		Name:      "password_attempts_total",
		Help:      "Password gate submissions by result",
	}, []string{"result"})

	passwordLockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gradbook",
		Name:      "password_lockouts_total",
		Help:      "Password gates entering lockout",
	})

	lockedRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gradbook",
		Name:      "locked_rejections_total",
		Help:      "Upload routes rejected on a locked graduation, by route variant",
	}, []string{"variant"})

	transportFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gradbook",
		Name:      "transport_failures_total",
		Help:      "Repository failures degraded to a not-found outcome",
	})
)

func recordDispatch(name route.Name, status string) {
	dispatchesTotal.WithLabelValues(string(name), status).Inc()
}

func recordPasswordAttempt(result string) {
	passwordAttemptsTotal.WithLabelValues(result).Inc()
}

func recordLockout() {
	passwordLockoutsTotal.Inc()
}

func recordLockedRejection(variant gate.LockVariant) {
	lockedRejectionsTotal.WithLabelValues(string(variant)).Inc()
}

func recordTransportFailure() {
	transportFailuresTotal.Inc()
}
