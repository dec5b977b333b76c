package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rapiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evse_rapi_requests_total",
			Help: "RAPI round trips by verb and outcome.",
		},
		[]string{
			"verb",
			"outcome",
		},
	)
	rapiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evse_rapi_request_duration_seconds",
			Help:    "Time from sending a RAPI command to its settlement.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
		},
		[]string{
			"verb",
		},
	)
	evseState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evse_state",
			Help: "Current EVSE state code.",
		},
		[]string{},
	)
	evseSetting = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evse_setting",
			Help: "Device confirmed EVSE settings. Booleans are reported as 0 or 1.",
		},
		[]string{
			"name",
		},
	)
	syncPassDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evse_sync_pass_seconds",
			Help: "Duration of the last full synchronization pass.",
		},
		[]string{},
	)
	syncStepFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evse_sync_step_failures_total",
			Help: "Synchronization steps that settled with an error.",
		},
		[]string{
			"step",
		},
	)
)

var registerOnce sync.Once

// RegisterPrometheus adds the collectors to the default registry. Safe to call more than once.
func RegisterPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(rapiRequests, rapiRequestDuration, evseState, evseSetting, syncPassDuration, syncStepFailures)
	})
}

// ObserveRequest records one settled RAPI request in both prometheus and statsd.
func ObserveRequest(verb, outcome string, elapsed time.Duration) {
	rapiRequests.WithLabelValues(verb, outcome).Inc()
	rapiRequestDuration.WithLabelValues(verb).Observe(elapsed.Seconds())
	tags := []string{FormatTag("verb", verb), FormatTag("outcome", outcome)}
	SendCountMetric("rapi.requests", tags, 1)
	SendTimingMetric("rapi.duration", tags, elapsed)
}

func ObserveState(state float64) {
	evseState.WithLabelValues().Set(state)
	SendGaugeMetric("state", []string{}, state)
}

func ObserveSetting(name string, value float64) {
	evseSetting.WithLabelValues(name).Set(value)
	SendGaugeMetric("setting", []string{FormatTag("name", name)}, value)
}

func ObserveSyncPass(elapsed time.Duration) {
	syncPassDuration.WithLabelValues().Set(elapsed.Seconds())
	SendTimingMetric("sync.pass", []string{}, elapsed)
}

func ObserveStepFailure(step string) {
	syncStepFailures.WithLabelValues(step).Inc()
	SendCountMetric("sync.step_failures", []string{FormatTag("step", step)}, 1)
}

func BoolValue(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
