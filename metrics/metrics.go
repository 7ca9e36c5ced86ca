package metrics

import (
	"net/http"
	"time"

	"autoblock/waf"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoblock"

// Recorder is a waf.MetricsRecorder that also serves its collectors over HTTP.
type Recorder interface {
	waf.MetricsRecorder
	Handler() http.Handler
}

type recorderImpl struct {
	registry *prometheus.Registry

	violators        *prometheus.GaugeVec
	blocked          *prometheus.GaugeVec
	ipsAdded         *prometheus.CounterVec
	ipsRemoved       *prometheus.CounterVec
	processorRuns    *prometheus.CounterVec
	processorLatency *prometheus.HistogramVec
	decodeErrors     *prometheus.CounterVec
}

// NewRecorder creates the collectors on their own registry, so several recorders can coexist in one process.
func NewRecorder() Recorder {
	r := &recorderImpl{
		registry: prometheus.NewRegistry(),
		violators: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "violators",
			Help:      "Violators kept after the last reconciliation.",
		}, []string{"ip_set"}),
		blocked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocked_ips",
			Help:      "Addresses in the IP set after the last sync.",
		}, []string{"ip_set"}),
		ipsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ips_added_total",
			Help:      "Addresses inserted into the IP set.",
		}, []string{"ip_set"}),
		ipsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ips_removed_total",
			Help:      "Addresses deleted from the IP set.",
		}, []string{"ip_set"}),
		processorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processor_runs_total",
			Help:      "Processor runs by outcome.",
		}, []string{"processor", "outcome"}),
		processorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processor_duration_seconds",
			Help:      "Time taken by one processor run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"processor"}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Log lines that could not be decoded.",
		}, []string{"format"}),
	}

	r.registry.MustRegister(
		r.violators,
		r.blocked,
		r.ipsAdded,
		r.ipsRemoved,
		r.processorRuns,
		r.processorLatency,
		r.decodeErrors,
	)

	return r
}

func (r *recorderImpl) ObserveSync(ipSetID string, violators int, result waf.SyncResult) {
	r.violators.WithLabelValues(ipSetID).Set(float64(violators))
	r.blocked.WithLabelValues(ipSetID).Set(float64(len(result.Added) + len(result.Unchanged)))
	r.ipsAdded.WithLabelValues(ipSetID).Add(float64(len(result.Added)))
	r.ipsRemoved.WithLabelValues(ipSetID).Add(float64(len(result.Removed)))
}

func (r *recorderImpl) ObserveProcessor(name string, timeTaken time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.processorRuns.WithLabelValues(name, outcome).Inc()
	r.processorLatency.WithLabelValues(name).Observe(timeTaken.Seconds())
}

func (r *recorderImpl) ObserveDecodeErrors(format string, count int) {
	if count <= 0 {
		return
	}
	r.decodeErrors.WithLabelValues(format).Add(float64(count))
}

func (r *recorderImpl) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
