package world

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chunksGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordgrid_chunks_generated_total",
		Help: "Chunks generated since start",
	})
	placementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordgrid_placements_total",
		Help: "Words placed into generated chunks",
	})
	placementsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordgrid_placements_skipped_total",
		Help: "Words dropped after exhausting their placement attempts",
	})
	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordgrid_validations_total",
		Help: "Selection validations by result",
	}, []string{"result"})
	sinkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordgrid_event_sink_failures_total",
		Help: "Word-found events a sink failed to deliver",
	})
)
