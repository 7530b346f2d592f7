package sim

import (
	"math"
	"sync"
)

// CorrelationDiagnostics 相关性泄漏诊断装饰器。
// 透传内层模型的每一步转移，同时按 1/N 权重累计本条路径上 (ΔL, ΔV) 的一阶、二阶与交叉矩，
// 路径结束时计算实现相关系数并并入全生命周期的滚动平均。
// 单个实例只能被一个 goroutine 驱动；并行时通过 Fork/Join 使用独立实例。
type CorrelationDiagnostics struct {
	inner Model

	// 当前路径的累计量
	weight    float64
	pendingDV float64
	sumL      float64
	sumV      float64
	sumLL     float64
	sumVV     float64
	sumLV     float64

	mu         sync.Mutex
	paths      int64
	degenerate int64
	avgCorr    float64
}

// NewCorrelationDiagnostics 包装一个模型，inner 为 nil 时返回配置错误。
func NewCorrelationDiagnostics(inner Model) (*CorrelationDiagnostics, error) {
	if inner == nil {
		return nil, errNilModel()
	}
	return &CorrelationDiagnostics{inner: inner}, nil
}

func (d *CorrelationDiagnostics) Name() string { return d.inner.Name() + "+diagnostics" }

func (d *CorrelationDiagnostics) InitialVariance() float64 { return d.inner.InitialVariance() }

func (d *CorrelationDiagnostics) Correlation() float64 { return d.inner.Correlation() }

func (d *CorrelationDiagnostics) Steps(requested int) int { return d.inner.Steps(requested) }

func (d *CorrelationDiagnostics) StepVariance(v, dt, zV float64) (float64, float64, error) {
	next, used, err := d.inner.StepVariance(v, dt, zV)
	if err != nil {
		return next, used, err
	}
	d.pendingDV = next - v
	return next, used, nil
}

func (d *CorrelationDiagnostics) StepLogAsset(logS, used, dt, zL float64) float64 {
	next := d.inner.StepLogAsset(logS, used, dt, zL)
	dl, dv, w := next-logS, d.pendingDV, d.weight
	d.sumL += w * dl
	d.sumV += w * dv
	d.sumLL += w * dl * dl
	d.sumVV += w * dv * dv
	d.sumLV += w * dl * dv
	d.pendingDV = 0
	return next
}

// BeginPath 重置本条路径的累计量。
func (d *CorrelationDiagnostics) BeginPath(steps int) {
	if steps < 1 {
		steps = 1
	}
	d.weight = 1 / float64(steps)
	d.pendingDV = 0
	d.sumL, d.sumV, d.sumLL, d.sumVV, d.sumLV = 0, 0, 0, 0, 0
	if o, ok := d.inner.(PathObserver); ok {
		o.BeginPath(steps)
	}
}

// EndPath 计算本条路径的实现相关系数并折叠进滚动平均。
// 任一增量方差为 0 的路径只计入退化路径数。
func (d *CorrelationDiagnostics) EndPath() {
	if o, ok := d.inner.(PathObserver); ok {
		o.EndPath()
	}
	varL := d.sumLL - d.sumL*d.sumL
	varV := d.sumVV - d.sumV*d.sumV

	d.mu.Lock()
	defer d.mu.Unlock()
	if !(varL > 0) || !(varV > 0) {
		d.degenerate++
		return
	}
	corr := (d.sumLV - d.sumL*d.sumV) / (math.Sqrt(varL) * math.Sqrt(varV))
	corr = math.Max(-1, math.Min(1, corr))
	d.paths++
	n := float64(d.paths)
	d.avgCorr = (d.avgCorr*(n-1) + corr) / n
}

// AverageCorrelation 已折叠路径的平均实现相关系数。
func (d *CorrelationDiagnostics) AverageCorrelation() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.avgCorr
}

// Paths 已折叠进平均值的路径数。
func (d *CorrelationDiagnostics) Paths() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paths
}

// DegeneratePaths 因增量方差为 0 而未折叠的路径数。
func (d *CorrelationDiagnostics) DegeneratePaths() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.degenerate
}

// Target 理论瞬时相关系数 ρ。
func (d *CorrelationDiagnostics) Target() float64 { return d.inner.Correlation() }

// Leakage 平均实现相关系数与 ρ 的偏差。
func (d *CorrelationDiagnostics) Leakage() float64 {
	return d.AverageCorrelation() - d.Target()
}

// Unwrap 返回被包装的模型。
func (d *CorrelationDiagnostics) Unwrap() Model { return d.inner }

// NegativeVarianceFixes 透传内层吸收格式的修正计数，其他格式返回 0。
func (d *CorrelationDiagnostics) NegativeVarianceFixes() int64 {
	if c, ok := d.inner.(NegativeVarianceCounter); ok {
		return c.NegativeVarianceFixes()
	}
	return 0
}

// Fork 返回一个零累计量的新装饰器，内层模型同样被 Fork。
func (d *CorrelationDiagnostics) Fork() Model {
	inner := d.inner
	if f, ok := inner.(Forker); ok {
		inner = f.Fork()
	}
	return &CorrelationDiagnostics{inner: inner}
}

// Join 以路径数加权合并另一个实例的滚动平均，并合并内层计数。
func (d *CorrelationDiagnostics) Join(other Model) {
	o, ok := other.(*CorrelationDiagnostics)
	if !ok || o == d {
		return
	}
	if f, ok := d.inner.(Forker); ok {
		f.Join(o.inner)
	}

	o.mu.Lock()
	oPaths, oDegenerate, oAvg := o.paths, o.degenerate, o.avgCorr
	o.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.degenerate += oDegenerate
	if oPaths == 0 {
		return
	}
	total := d.paths + oPaths
	d.avgCorr = (d.avgCorr*float64(d.paths) + oAvg*float64(oPaths)) / float64(total)
	d.paths = total
}
