package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stochvol/xerrors"
)

func TestSimulatePathShape(t *testing.T) {
	m, err := NewHestonFullTruncation(BenchmarkHestonParams())
	require.NoError(t, err)
	ps := NewPathSimulator(NewSeededSource(1, 0))

	path, err := ps.SimulatePath(m, 100, 5, 20)
	require.NoError(t, err)
	require.Len(t, path, 21)
	assert.Equal(t, 0, path[0].Step)
	assert.InDelta(t, math.Log(100), path[0].LogAsset, 1e-15)
	assert.Equal(t, 0.09, path[0].Variance)
	for i, st := range path {
		assert.Equal(t, i, st.Step)
		assert.Greater(t, st.Asset(), 0.0)
	}

	bs, err := NewBlackScholes(BlackScholesParams{Volatility: 0.2})
	require.NoError(t, err)
	path, err = ps.SimulatePath(bs, 100, 5, 20)
	require.NoError(t, err)
	assert.Len(t, path, 2)
}

func TestSimulateTerminalMatchesPath(t *testing.T) {
	m, err := NewHestonAbsorption(BenchmarkHestonParams())
	require.NoError(t, err)

	terminal, err := NewPathSimulator(NewSeededSource(9, 0)).SimulateTerminal(m, 100, 5, 50)
	require.NoError(t, err)
	path, err := NewPathSimulator(NewSeededSource(9, 0)).SimulatePath(m, 100, 5, 50)
	require.NoError(t, err)
	assert.InDelta(t, path[len(path)-1].Asset(), terminal, 1e-9)
}

func TestSimulatorRejectsInvalidGrid(t *testing.T) {
	m, err := NewHestonFullTruncation(BenchmarkHestonParams())
	require.NoError(t, err)
	ps := NewPathSimulator(NewSeededSource(1, 0))

	cases := []struct {
		name           string
		spot, maturity float64
		steps          int
	}{
		{"zero steps", 100, 5, 0},
		{"negative maturity", 100, -1, 10},
		{"zero maturity", 100, 0, 10},
		{"zero spot", 0, 5, 10},
		{"nan spot", math.NaN(), 5, 10},
		{"inf maturity", 100, math.Inf(1), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ps.SimulateTerminal(m, tc.spot, tc.maturity, tc.steps)
			assert.True(t, errors.Is(err, xerrors.ErrInvalidGrid), "%v", err)
		})
	}

	_, err = ps.SimulateTerminal(nil, 100, 5, 10)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
}

func TestNaiveDomainErrorCarriesStep(t *testing.T) {
	m, err := NewHestonNaive(BenchmarkHestonParams())
	require.NoError(t, err)
	ps := NewPathSimulator(NewSeededSource(3, 0))

	var domainErr *xerrors.Error
	for range 100 {
		_, err = ps.SimulateTerminal(m, 100, 5, 10)
		if err != nil {
			require.True(t, errors.As(err, &domainErr))
			break
		}
	}
	require.NotNil(t, domainErr, "the unprotected scheme must fail on some path")
	assert.True(t, errors.Is(domainErr, xerrors.ErrNegativeVariance))
	step, ok := domainErr.Context["step"].(int)
	require.True(t, ok)
	assert.GreaterOrEqual(t, step, 2, "the first step always starts from V₀ > 0")
	assert.LessOrEqual(t, step, 10)
	assert.Less(t, domainErr.Context["variance"].(float64), 0.0)
}
