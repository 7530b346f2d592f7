package sim

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/sourcegraph/conc/pool"
	"github.com/wyfcoding/stochvol/xerrors"
)

// HestonBenchmarkPrice 基准参数集下欧式看涨期权的公开参考远期价格（S = K = 100, T = 5）。
const HestonBenchmarkPrice = 44.94063

// BenchmarkHestonParams 基准参数集：κ = 2, θ = 0.09, ω = 1, ρ = −0.3, V₀ = 0.09, μ = 0.05。
func BenchmarkHestonParams() HestonParams {
	return HestonParams{
		Drift: 0.05,
		Kappa: 2,
		Theta: 0.09,
		Omega: 1,
		Rho:   -0.3,
		V0:    0.09,
	}
}

// ModelFactory 为每个网格点创建一个全新的模型实例.
type ModelFactory func() (Model, error)

// ConvergencePoint 单个步数下的定价结果，离散偏差与统计误差分开报告。
type ConvergencePoint struct {
	Steps  int     `json:"steps"`
	Mean   float64 `json:"mean"`
	StdErr float64 `json:"std_err"`
	Bias   float64 `json:"bias"` // Mean − benchmark
}

// AbsBias 偏差的绝对值.
func (p ConvergencePoint) AbsBias() float64 { return math.Abs(p.Bias) }

// LeakagePoint 单个步数下测得的相关性泄漏。
type LeakagePoint struct {
	Steps           int     `json:"steps"`
	AvgCorrelation  float64 `json:"avg_correlation"`
	Target          float64 `json:"target"`
	Leakage         float64 `json:"leakage"` // AvgCorrelation − Target
	DegeneratePaths int64   `json:"degenerate_paths"`
}

// Convergence 在一组步数上为看涨期权定价，报告每个点相对 benchmark 的离散偏差与标准误。
// 各网格点并行运行且共享同一组随机流，结果按步数升序返回。
func (mc *MonteCarlo) Convergence(ctx context.Context, factory ModelFactory, spot, strike, maturity float64, steps []int, paths int, benchmark float64) ([]ConvergencePoint, error) {
	if factory == nil {
		return nil, xerrors.ErrInvalidInput.Derive("model factory is nil")
	}
	if len(steps) == 0 {
		return nil, xerrors.ErrInvalidGrid.Derive("empty step grid")
	}

	p := pool.NewWithResults[ConvergencePoint]().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, n := range steps {
		p.Go(func(ctx context.Context) (ConvergencePoint, error) {
			m, err := factory()
			if err != nil {
				return ConvergencePoint{}, err
			}
			res, err := mc.PriceCall(ctx, m, spot, strike, maturity, n, paths)
			if err != nil {
				return ConvergencePoint{}, err
			}
			return ConvergencePoint{
				Steps:  n,
				Mean:   res.Mean,
				StdErr: res.StdErr,
				Bias:   res.Mean - benchmark,
			}, nil
		})
	}
	points, err := p.Wait()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(points, func(a, b ConvergencePoint) int { return cmp.Compare(a.Steps, b.Steps) })
	return points, nil
}

// Leakage 在一组步数上用全截断格式加诊断装饰器模拟路径，报告平均实现相关系数与 ρ 的偏差。
func (mc *MonteCarlo) Leakage(ctx context.Context, params HestonParams, steps []int, spot, maturity float64, paths int) ([]LeakagePoint, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, xerrors.ErrInvalidGrid.Derive("empty step grid")
	}

	p := pool.NewWithResults[LeakagePoint]().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, n := range steps {
		p.Go(func(ctx context.Context) (LeakagePoint, error) {
			inner, err := NewHestonFullTruncation(params)
			if err != nil {
				return LeakagePoint{}, err
			}
			diag, err := NewCorrelationDiagnostics(inner)
			if err != nil {
				return LeakagePoint{}, err
			}
			if _, err := mc.PriceCall(ctx, diag, spot, spot, maturity, n, paths); err != nil {
				return LeakagePoint{}, err
			}
			return LeakagePoint{
				Steps:           n,
				AvgCorrelation:  diag.AverageCorrelation(),
				Target:          diag.Target(),
				Leakage:         diag.Leakage(),
				DegeneratePaths: diag.DegeneratePaths(),
			}, nil
		})
	}
	points, err := p.Wait()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(points, func(a, b LeakagePoint) int { return cmp.Compare(a.Steps, b.Steps) })
	return points, nil
}
