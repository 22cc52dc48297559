package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 营销归因服务的 Prometheus 指标
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Metrics struct {
	registry *prometheus.Registry

	// 归因
	AttributionResolutions  *prometheus.CounterVec
	AttributionLookupErrors *prometheus.CounterVec

	// 原始事件
	EventsRecorded *prometheus.CounterVec
	IngestMessages *prometheus.CounterVec

	// 聚合
	AggregationRuns     *prometheus.CounterVec
	AggregationDuration *prometheus.HistogramVec
	AggregationSkipped  *prometheus.CounterVec
	AggregationUpserted prometheus.Counter

	// 汇总查询
	SummaryProvenance *prometheus.CounterVec

	// HTTP
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics 创建并注册全部指标（独立 Registry）
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AttributionResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attribution_resolutions_total",
				Help:      "Total number of attribution resolutions by source and untracked reason",
			},
			[]string{"source", "untracked_reason"},
		),
		AttributionLookupErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attribution_lookup_errors_total",
				Help:      "Total number of link lookup failures during attribution",
			},
			[]string{"tier"},
		),
		EventsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_recorded_total",
				Help:      "Total number of raw visit/conversion events recorded",
			},
			[]string{"kind", "channel"},
		),
		IngestMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_messages_total",
				Help:      "Total number of consumed ingest messages by result",
			},
			[]string{"topic", "result"},
		),
		AggregationRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_runs_total",
				Help:      "Total number of daily aggregation runs",
			},
			[]string{"mode", "status"},
		),
		AggregationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_duration_seconds",
				Help:      "Daily aggregation run duration",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"mode"},
		),
		AggregationSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_skipped_records_total",
				Help:      "Raw records skipped because their campaign could not be resolved to a tenant",
			},
			[]string{"kind"},
		),
		AggregationUpserted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_upserted_rows_total",
				Help:      "Total number of daily stat rows inserted or replaced",
			},
		),
		SummaryProvenance: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summary_provenance_total",
				Help:      "Summary responses by serving path",
			},
			[]string{"report", "provenance"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limited requests",
			},
			[]string{"rule"},
		),
	}
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层注册表（测试使用）
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordResolution 记录一次归因结果
func (m *Metrics) RecordResolution(source, untrackedReason string) {
	if m == nil {
		return
	}
	m.AttributionResolutions.WithLabelValues(source, untrackedReason).Inc()
}

// RecordLookupError 记录归因查库失败
func (m *Metrics) RecordLookupError(tier string) {
	if m == nil {
		return
	}
	m.AttributionLookupErrors.WithLabelValues(tier).Inc()
}

// RecordEvent 记录原始事件写入
func (m *Metrics) RecordEvent(kind, channel string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(kind, channel).Inc()
}

// RecordIngest 记录消息消费结果
func (m *Metrics) RecordIngest(topic, result string) {
	if m == nil {
		return
	}
	m.IngestMessages.WithLabelValues(topic, result).Inc()
}

// RecordAggregation 记录聚合任务结果
func (m *Metrics) RecordAggregation(mode string, success bool, duration time.Duration, upserted, skippedVisits, skippedConversions int) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	m.AggregationRuns.WithLabelValues(mode, status).Inc()
	m.AggregationDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if !success {
		return
	}
	m.AggregationUpserted.Add(float64(upserted))
	m.AggregationSkipped.WithLabelValues("visit").Add(float64(skippedVisits))
	m.AggregationSkipped.WithLabelValues("conversion").Add(float64(skippedConversions))
}

// RecordSummary 记录汇总查询数据来源
func (m *Metrics) RecordSummary(report, provenance string) {
	if m == nil {
		return
	}
	m.SummaryProvenance.WithLabelValues(report, provenance).Inc()
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimitHit 记录限流命中
func (m *Metrics) RecordRateLimitHit(rule string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(rule).Inc()
}
