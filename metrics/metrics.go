package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "autoblog"

// Collector 는 생성 배치, LLM 호출, 도메인 해석 지표를 모은다.
// nil Collector 의 메서드는 아무 것도 하지 않는다.
type Collector struct {
	batches         *prometheus.CounterVec
	generations     *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
	resolverLookups *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func NewCollector() *Collector {
	return &Collector{
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "generation_batches_total",
				Help:      "Generation batches by final status and trigger.",
			}, []string{"status", "trigger"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "generated_posts_total",
				Help:      "Per-topic generation attempts by result.",
			}, []string{"result"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Latency of LLM completion calls.",
				Buckets:   []float64{1, 5, 10, 20, 40, 60, 90, 120, 180},
			}, []string{"provider", "status"},
		),
		resolverLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "domain_resolver_lookups_total",
				Help:      "Tenant host resolutions by source (cache, store) and result.",
			}, []string{"source", "result"},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "domain_verifications_total",
				Help:      "Domain verification outcomes.",
			}, []string{"kind", "result"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and status.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route", "status"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.batches.Describe(ch)
	c.generations.Describe(ch)
	c.llmDuration.Describe(ch)
	c.resolverLookups.Describe(ch)
	c.verifications.Describe(ch)
	c.httpDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.batches.Collect(ch)
	c.generations.Collect(ch)
	c.llmDuration.Collect(ch)
	c.resolverLookups.Collect(ch)
	c.verifications.Collect(ch)
	c.httpDuration.Collect(ch)
}

func (c *Collector) BatchFinished(status, trigger string) {
	if c == nil {
		return
	}
	c.batches.WithLabelValues(status, trigger).Inc()
}

func (c *Collector) GenerationResult(ok bool) {
	if c == nil {
		return
	}
	c.generations.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) ObserveLLM(provider string, ok bool, d time.Duration) {
	if c == nil {
		return
	}
	c.llmDuration.WithLabelValues(provider, result(ok)).Observe(d.Seconds())
}

func (c *Collector) ResolverLookup(source string, found bool) {
	if c == nil {
		return
	}
	r := "hit"
	if !found {
		r = "miss"
	}
	c.resolverLookups.WithLabelValues(source, r).Inc()
}

func (c *Collector) Verification(kind string, ok bool) {
	if c == nil {
		return
	}
	c.verifications.WithLabelValues(kind, result(ok)).Inc()
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler 는 reg 에 등록된 지표를 노출한다.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
