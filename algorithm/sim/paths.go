package sim

import (
	"context"
	"math"
	mrand "math/rand/v2"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/stochvol/tracing"
	"github.com/wyfcoding/stochvol/xerrors"
)

// PathSummary 到期价格的描述统计，供报表层展示.
type PathSummary struct {
	Average decimal.Decimal `json:"average"`
	Min     decimal.Decimal `json:"min"`
	Max     decimal.Decimal `json:"max"`
	StdDev  decimal.Decimal `json:"stddev"`
}

// PathSample 一批路径中等概率保留的若干完整轨迹与全部到期价格的统计.
type PathSample struct {
	Trajectories [][]PathState `json:"trajectories"`
	Summary      PathSummary   `json:"summary"`
	Paths        int           `json:"paths"`
}

// SamplePaths 单线程模拟 paths 条完整轨迹，用蓄水池采样保留 keep 条，并汇总所有到期价格。
// picker 为 nil 时使用 crypto/rand 选取轨迹.
func (mc *MonteCarlo) SamplePaths(ctx context.Context, m Model, spot, maturity float64, steps, paths, keep int, picker mrand.Source) (PathSample, error) {
	if err := validateCall(m, spot, maturity, steps, paths); err != nil {
		return PathSample{}, err
	}
	if keep < 1 {
		return PathSample{}, xerrors.ErrInvalidInput.Derive("keep=%d", keep)
	}

	ctx, span := tracing.StartSpan(ctx, "sim.MonteCarlo.SamplePaths")
	defer span.End()
	tracing.AddTag(ctx, "model", m.Name())

	ps := NewPathSimulator(mc.sources(0))
	reservoir := NewReservoirSampler[[]PathState](keep, picker)
	terminals := make([]float64, 0, paths)
	for i := range paths {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return PathSample{}, xerrors.ErrSimulationCanceled.Derive("completed %d of %d paths", i, paths).WithCause(err)
			}
		}
		trajectory, err := ps.SimulatePath(m, spot, maturity, steps)
		if err != nil {
			tracing.SetError(ctx, err)
			return PathSample{}, err
		}
		reservoir.Observe(trajectory)
		terminals = append(terminals, trajectory[len(trajectory)-1].Asset())
	}

	summary, err := SummarizeTerminals(terminals)
	if err != nil {
		tracing.SetError(ctx, err)
		return PathSample{}, err
	}

	mc.logger.DebugContext(ctx, "path sample collected", "model", m.Name(), "paths", paths, "kept", len(reservoir.GetSamples()))
	return PathSample{
		Trajectories: reservoir.GetSamples(),
		Summary:      summary,
		Paths:        paths,
	}, nil
}

// SummarizeTerminals 计算到期价格的均值、极值与总体标准差.
// 任一价格溢出为 ±Inf 或 NaN 时返回 ErrNumericOverflow.
func SummarizeTerminals(terminals []float64) (PathSummary, error) {
	if len(terminals) == 0 {
		return PathSummary{}, nil
	}

	finalPrices := make([]decimal.Decimal, len(terminals))
	for i, t := range terminals {
		if !isFinite(t) {
			return PathSummary{}, xerrors.ErrNumericOverflow.Derive("terminal price %g on path %d", t, i)
		}
		finalPrices[i] = decimal.NewFromFloat(t)
	}

	sum := decimal.Zero
	minPrice := finalPrices[0]
	maxPrice := finalPrices[0]
	for _, price := range finalPrices {
		sum = sum.Add(price)
		if price.LessThan(minPrice) {
			minPrice = price
		}
		if price.GreaterThan(maxPrice) {
			maxPrice = price
		}
	}

	n := decimal.NewFromInt(int64(len(finalPrices)))
	avgPrice := sum.Div(n)

	varSum := decimal.Zero
	for _, price := range finalPrices {
		diff := price.Sub(avgPrice)
		varSum = varSum.Add(diff.Mul(diff))
	}
	variance := varSum.Div(n)

	return PathSummary{
		Average: avgPrice,
		Min:     minPrice,
		Max:     maxPrice,
		StdDev:  decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64())),
	}, nil
}
