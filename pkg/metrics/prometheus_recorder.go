package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "specdoc"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration    *prom.HistogramVec
	documentResults  *prom.CounterVec
	sourceErrors     *prom.CounterVec
	sectionsPerDoc   prom.Histogram
	chunks           prom.Counter
	batchConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of structuring stages",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 15},
		}, []string{"stage"}),
		documentResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by result",
		}, []string{"result"}),
		sourceErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Source failures by error category",
		}, []string{"category"}),
		sectionsPerDoc: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "sections_per_document",
			Help:      "Number of sections produced per document",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		}),
		chunks: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Retrieval chunks produced",
		}),
		batchConcurrency: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_concurrency",
			Help:      "Worker limit of the last batch",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.documentResults, pr.sourceErrors, pr.sectionsPerDoc, pr.chunks, pr.batchConcurrency)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDocumentResult(result ResultLabel) {
	if p == nil || p.documentResults == nil {
		return
	}
	p.documentResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncSourceError(category string) {
	if p == nil || p.sourceErrors == nil {
		return
	}
	p.sourceErrors.WithLabelValues(category).Inc()
}

func (p *PrometheusRecorder) ObserveSections(n int) {
	if p == nil || p.sectionsPerDoc == nil {
		return
	}
	p.sectionsPerDoc.Observe(float64(n))
}

func (p *PrometheusRecorder) AddChunks(n int) {
	if p == nil || p.chunks == nil || n <= 0 {
		return
	}
	p.chunks.Add(float64(n))
}

func (p *PrometheusRecorder) SetBatchConcurrency(n int) {
	if p == nil || p.batchConcurrency == nil {
		return
	}
	p.batchConcurrency.Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
