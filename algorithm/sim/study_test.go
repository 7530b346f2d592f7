package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stochvol/xerrors"
)

func TestConvergenceReportsBiasPerGridPoint(t *testing.T) {
	factory := func() (Model, error) {
		return NewHestonFullTruncation(BenchmarkHestonParams())
	}
	mc := newTestMonteCarlo(31, 2)

	points, err := mc.Convergence(context.Background(), factory, 100, 100, 5, []int{40, 10, 20}, 4000, HestonBenchmarkPrice)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []int{10, 20, 40}, []int{points[0].Steps, points[1].Steps, points[2].Steps})

	for _, p := range points {
		assert.InDelta(t, p.Mean-HestonBenchmarkPrice, p.Bias, 1e-12)
		assert.Equal(t, math.Abs(p.Bias), p.AbsBias())
		assert.Positive(t, p.StdErr)

		single, err := mc.PriceCall(context.Background(), mustModel(t, factory), 100, 100, 5, p.Steps, 4000)
		require.NoError(t, err)
		assert.Equal(t, single.Mean, p.Mean, "grid points share the same random streams")
	}
}

func mustModel(t *testing.T, f ModelFactory) Model {
	t.Helper()
	m, err := f()
	require.NoError(t, err)
	return m
}

func TestConvergencePropagatesErrors(t *testing.T) {
	mc := newTestMonteCarlo(1, 2)
	naive := func() (Model, error) { return NewHestonNaive(BenchmarkHestonParams()) }

	_, err := mc.Convergence(context.Background(), naive, 100, 100, 5, []int{10, 50}, 1000, HestonBenchmarkPrice)
	assert.True(t, errors.Is(err, xerrors.ErrNegativeVariance))

	_, err = mc.Convergence(context.Background(), nil, 100, 100, 5, []int{10}, 1000, HestonBenchmarkPrice)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
	_, err = mc.Convergence(context.Background(), naive, 100, 100, 5, nil, 1000, HestonBenchmarkPrice)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidGrid))
}

func TestLeakageStudy(t *testing.T) {
	mc := newTestMonteCarlo(13, 4)
	points, err := mc.Leakage(context.Background(), BenchmarkHestonParams(), []int{100, 5, 1}, 100, 5, 3000)
	require.NoError(t, err)
	require.Len(t, points, 3)

	one, coarse, fine := points[0], points[1], points[2]
	assert.Equal(t, 1, one.Steps)
	assert.EqualValues(t, 3000, one.DegeneratePaths)
	assert.Equal(t, 5, coarse.Steps)
	assert.Equal(t, 100, fine.Steps)

	for _, p := range points[1:] {
		assert.Equal(t, -0.3, p.Target)
		assert.LessOrEqual(t, math.Abs(p.AvgCorrelation), 1.0)
		assert.InDelta(t, p.AvgCorrelation-p.Target, p.Leakage, 1e-15)
	}
	assert.Less(t, math.Abs(fine.Leakage), math.Abs(coarse.Leakage))

	bad := BenchmarkHestonParams()
	bad.Rho = 2
	_, err = mc.Leakage(context.Background(), bad, []int{10}, 100, 5, 100)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidModelParam))
}
