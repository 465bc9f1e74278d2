package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swapcycle/internal/swap"
)

// Metrics 暴露批次执行的 prometheus 指标。
type Metrics struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	feeLamports     prometheus.Counter
	attemptDuration prometheus.Histogram
}

// NewMetrics 创建并注册指标。
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapcycle",
			Name:      "swap_attempts_total",
			Help:      "兑换尝试总数，按结果分类。",
		}, []string{"outcome", "direction"}),
		feeLamports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swapcycle",
			Name:      "fee_lamports_total",
			Help:      "成功兑换累计测得的手续费（lamports）。",
		}),
		attemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swapcycle",
			Name:      "swap_attempt_duration_seconds",
			Help:      "单次兑换尝试耗时。",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	registry.MustRegister(m.attempts, m.feeLamports, m.attemptDuration)
	return m
}

// ObserveAttempt 更新一次尝试对应的指标。
func (m *Metrics) ObserveAttempt(result swap.AttemptResult) {
	m.attempts.WithLabelValues(string(result.Outcome), result.Direction.String()).Inc()
	m.attemptDuration.Observe(result.Duration.Seconds())
	if result.Outcome.Succeeded() && result.FeeLamports != nil {
		m.feeLamports.Add(float64(*result.FeeLamports))
	}
}

// Handler 返回 /metrics 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
