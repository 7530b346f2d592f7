package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineInfo 描述当前进程的构建版本与引擎运行方式。
type EngineInfo struct {
	Service string
	Version string
	Scheme  string // Heston 方差离散格式
	Source  string // 随机源: seeded 或 system
}

func (i EngineInfo) labelValues() []string {
	values := []string{i.Service, i.Version, runtime.Version(), i.Scheme, i.Source}
	for k, v := range values {
		if v == "" {
			values[k] = "unknown"
		}
	}
	return values
}

// RegisterBuildInfo 注册构建信息指标，常量 1，信息放在标签中。只有第一次调用生效。
func (m *Metrics) RegisterBuildInfo(info EngineInfo) {
	if m == nil || m.BuildInfo != nil {
		return
	}

	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stochvol_build_info",
		Help: "Build and engine information for the pricing engine",
	}, []string{"service", "version", "go_version", "scheme", "source"})

	m.BuildInfo.WithLabelValues(info.labelValues()...).Set(1)
}
