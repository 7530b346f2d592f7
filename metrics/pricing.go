package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics 蒙特卡洛定价引擎的指标集合，所有方法对 nil 接收者安全。
type PricingMetrics struct {
	PathsTotal            *prometheus.CounterVec   // 已完成模拟的路径数 (维度: model)
	DomainErrorsTotal     *prometheus.CounterVec   // 数值定义域错误次数
	PricingDuration       *prometheus.HistogramVec // 单次定价调用耗时
	NegativeVarianceFixes *prometheus.GaugeVec     // 吸收格式的累计负方差修正次数
	RealizedCorrelation   *prometheus.GaugeVec     // 诊断器测得的平均实现相关系数
}

// NewPricingMetrics 在给定注册表上创建定价指标。
func NewPricingMetrics(m *Metrics) *PricingMetrics {
	return &PricingMetrics{
		PathsTotal: m.NewCounterVec(prometheus.CounterOpts{
			Name: "stochvol_paths_total",
			Help: "Total number of simulated paths",
		}, []string{"model"}),
		DomainErrorsTotal: m.NewCounterVec(prometheus.CounterOpts{
			Name: "stochvol_domain_errors_total",
			Help: "Total number of numerical domain failures",
		}, []string{"model"}),
		PricingDuration: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stochvol_pricing_duration_seconds",
			Help:    "Monte Carlo pricing call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"model"}),
		NegativeVarianceFixes: m.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stochvol_negative_variance_fixes",
			Help: "Cumulative negative variance fixes applied by the absorption scheme",
		}, []string{"model"}),
		RealizedCorrelation: m.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stochvol_realized_correlation",
			Help: "Average realized correlation of simulated asset and variance increments",
		}, []string{"model"}),
	}
}

// ObservePricing 记录一次成功的定价调用。
func (p *PricingMetrics) ObservePricing(model string, paths int, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.PathsTotal.WithLabelValues(model).Add(float64(paths))
	p.PricingDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// RecordDomainErrors 累加数值定义域错误次数。
func (p *PricingMetrics) RecordDomainErrors(model string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.DomainErrorsTotal.WithLabelValues(model).Add(float64(n))
}

// SetNegativeVarianceFixes 记录吸收格式模型当前的负方差修正累计次数。
func (p *PricingMetrics) SetNegativeVarianceFixes(model string, fixes int64) {
	if p == nil {
		return
	}
	p.NegativeVarianceFixes.WithLabelValues(model).Set(float64(fixes))
}

// SetRealizedCorrelation 记录诊断装饰器测得的平均实现相关系数。
func (p *PricingMetrics) SetRealizedCorrelation(model string, corr float64) {
	if p == nil {
		return
	}
	p.RealizedCorrelation.WithLabelValues(model).Set(corr)
}
