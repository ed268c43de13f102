package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daniel/reach-sync/internal/domain/report/policy"
)

// Pipeline exposes pipeline run observability
type Pipeline struct {
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	cellsWritten prometheus.Counter
	fetchErrors  prometheus.Counter
}

// NewPipeline registers the pipeline collectors on reg
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reachsync_runs_total",
			Help: "Pipeline runs by terminal state.",
		}, []string{"state"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reachsync_run_duration_seconds",
			Help:    "Wall time of one pipeline run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		cellsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reachsync_cells_written_total",
			Help: "Spreadsheet cells written across all runs.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reachsync_fetch_errors_total",
			Help: "Failed upstream fetch units across all runs.",
		}),
	}

	reg.MustRegister(p.runsTotal, p.runDuration, p.cellsWritten, p.fetchErrors)
	return p
}

// ObserveRun records one finished run
func (p *Pipeline) ObserveRun(state policy.RunState, duration time.Duration) {
	p.runsTotal.WithLabelValues(string(state)).Inc()
	p.runDuration.Observe(duration.Seconds())
}

// AddCellsWritten counts cells written by one run
func (p *Pipeline) AddCellsWritten(n int) {
	p.cellsWritten.Add(float64(n))
}

// AddFetchErrors counts failed fetch units in one run
func (p *Pipeline) AddFetchErrors(n int) {
	p.fetchErrors.Add(float64(n))
}
