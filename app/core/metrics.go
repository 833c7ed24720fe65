package core

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loreweave/loreweave/pkg/metrics"
)

type Metrics struct {
	embeddingRequestTime *prometheus.HistogramVec
	llmRequestTime       *prometheus.HistogramVec
	llmErrorCounter      *prometheus.CounterVec
	detectTime           *prometheus.HistogramVec
	clusterPassTime      *prometheus.HistogramVec
	analyzeErrorCounter  *prometheus.CounterVec
}

func NewMetrics(ns, system string) *Metrics {
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		embeddingRequestTime: metrics.NewHistogramVec("embedding_request_time", nil),
		llmRequestTime:       metrics.NewHistogramVec("llm_request_time", []string{"target"}),
		llmErrorCounter:      metrics.NewCounterVec("llm_error", []string{"type"}),
		detectTime:           metrics.NewHistogramVec("relation_detect_time", []string{"strategy"}),
		clusterPassTime:      metrics.NewHistogramVec("cluster_pass_time", nil),
		analyzeErrorCounter:  metrics.NewCounterVec("analyze_error", []string{"job"}),
	}

	return m
}

func (m *Metrics) EmbeddingTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.embeddingRequestTime.WithLabelValues())
}

func (m *Metrics) LLMTimer(target string) *prometheus.Timer {
	return prometheus.NewTimer(m.llmRequestTime.WithLabelValues(target))
}

func (m *Metrics) LLMErrorInc(types string) {
	m.llmErrorCounter.WithLabelValues(types).Inc()
}

func (m *Metrics) DetectTimer(strategy string) *prometheus.Timer {
	return prometheus.NewTimer(m.detectTime.WithLabelValues(strategy))
}

func (m *Metrics) ClusterPassTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.clusterPassTime.WithLabelValues())
}

func (m *Metrics) AnalyzeErrorInc(job string) {
	m.analyzeErrorCounter.WithLabelValues(job).Inc()
}
