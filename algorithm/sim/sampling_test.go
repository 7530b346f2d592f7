package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stochvol/xerrors"
)

func TestReservoirSampler(t *testing.T) {
	s := NewReservoirSampler[int](5, rand.NewPCG(1, 2))
	for i := range 3 {
		s.Observe(i)
	}
	assert.Equal(t, []int{0, 1, 2}, s.GetSamples())

	for i := 3; i < 1000; i++ {
		s.Observe(i)
	}
	assert.Len(t, s.GetSamples(), 5)
	assert.Equal(t, 1000, s.Count())
	for _, v := range s.GetSamples() {
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 1000)
	}

	s.Reset()
	assert.Empty(t, s.GetSamples())
	assert.Zero(t, s.Count())
}

func TestReservoirSamplerIsUniform(t *testing.T) {
	hits := make([]int, 10)
	for trial := range 4000 {
		s := NewReservoirSampler[int](2, rand.NewPCG(uint64(trial), 7))
		for i := range 10 {
			s.Observe(i)
		}
		for _, v := range s.GetSamples() {
			hits[v]++
		}
	}
	// 每个元素期望被保留 4000·2/10 = 800 次
	for i, h := range hits {
		assert.InDelta(t, 800, h, 120, "element %d", i)
	}
}

func TestSummarizeTerminals(t *testing.T) {
	s, err := SummarizeTerminals([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 2, s.Average.InexactFloat64(), 1e-12)
	assert.InDelta(t, 1, s.Min.InexactFloat64(), 1e-12)
	assert.InDelta(t, 3, s.Max.InexactFloat64(), 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), s.StdDev.InexactFloat64(), 1e-9)

	empty, err := SummarizeTerminals(nil)
	require.NoError(t, err)
	assert.Equal(t, PathSummary{}, empty)

	_, err = SummarizeTerminals([]float64{1, math.Inf(1)})
	assert.ErrorIs(t, err, xerrors.ErrNumericOverflow)
	_, err = SummarizeTerminals([]float64{math.NaN()})
	assert.ErrorIs(t, err, xerrors.ErrNumericOverflow)
}

func TestSamplePathsRejectsOverflowingTerminals(t *testing.T) {
	// exp(ln 100 + 5·(200 − 0.02)) 超出 float64 范围
	m, err := NewBlackScholes(BlackScholesParams{Drift: 200, Volatility: 0.2})
	require.NoError(t, err)

	var sample PathSample
	require.NotPanics(t, func() {
		sample, err = newTestMonteCarlo(1, 1).SamplePaths(context.Background(), m, 100, 5, 1, 10, 2, nil)
	})
	assert.ErrorIs(t, err, xerrors.ErrNumericOverflow)
	assert.Empty(t, sample.Trajectories)
}

func TestSamplePaths(t *testing.T) {
	m, err := NewHestonFullTruncation(BenchmarkHestonParams())
	require.NoError(t, err)

	sample, err := newTestMonteCarlo(4, 1).SamplePaths(context.Background(), m, 100, 5, 20, 300, 4, rand.NewPCG(3, 3))
	require.NoError(t, err)
	assert.Equal(t, 300, sample.Paths)
	require.Len(t, sample.Trajectories, 4)
	for _, tr := range sample.Trajectories {
		assert.Len(t, tr, 21)
	}
	assert.True(t, sample.Summary.Min.LessThanOrEqual(sample.Summary.Average))
	assert.True(t, sample.Summary.Average.LessThanOrEqual(sample.Summary.Max))

	_, err = newTestMonteCarlo(4, 1).SamplePaths(context.Background(), m, 100, 5, 20, 300, 0, nil)
	assert.Error(t, err)
}
