package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_runs_total",
			Help: "Total number of deployment runs by environment and result",
		},
		[]string{"environment", "result"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cutover_stage_duration_seconds",
			Help:    "Duration of each deployment stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_stage_failures_total",
			Help: "Total number of failed deployment stages",
		},
		[]string{"stage"},
	)

	// Verification metrics
	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_verifications_total",
			Help: "Total number of health verifications by verdict",
		},
		[]string{"verdict"},
	)

	// Traffic switch metrics
	TrafficSwitchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_traffic_switches_total",
			Help: "Total number of traffic switches by environment and strategy",
		},
		[]string{"environment", "strategy"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StageFailures)
	prometheus.MustRegister(VerificationsTotal)
	prometheus.MustRegister(TrafficSwitchesTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures a stage duration
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveStage records the elapsed time for the given stage
func (t *Timer) ObserveStage(stage string) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(t.start).Seconds())
}
