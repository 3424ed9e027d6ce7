package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classificationsRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sesscore_classifications_total",
		Help: "First-chunk classification passes run, per direction.",
	})

	parsersAttached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sesscore_parsers_attached_total",
		Help: "Dissector registrations made by classifier callbacks.",
	})

	sessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sesscore_sessions_closed_total",
		Help: "Sessions torn down via SessionClose.",
	})
)
