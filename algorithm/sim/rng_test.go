package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestSeededSourceIsReproducible(t *testing.T) {
	a := NewSeededSource(7, 0)
	b := NewSeededSource(7, 0)
	c := NewSeededSource(7, 1)

	same, differ := true, false
	for range 100 {
		x, y, z := a.NormFloat64(), b.NormFloat64(), c.NormFloat64()
		same = same && x == y
		differ = differ || x != z
	}
	assert.True(t, same, "same seed and stream must replay")
	assert.True(t, differ, "different streams must diverge")
}

func TestSourcesAreStandardNormal(t *testing.T) {
	for name, src := range map[string]Source{
		"seeded": NewSeededSource(11, 3),
		"system": System()(0),
	} {
		t.Run(name, func(t *testing.T) {
			xs := make([]float64, 50000)
			for i := range xs {
				xs[i] = src.NormFloat64()
			}
			mean, std := stat.MeanStdDev(xs, nil)
			assert.InDelta(t, 0, mean, 0.03)
			assert.InDelta(t, 1, std, 0.03)
		})
	}
}

func TestCorrelate(t *testing.T) {
	zV, zL := Correlate(0, 0.4, -1.2)
	assert.Equal(t, 0.4, zV)
	assert.InDelta(t, -1.2, zL, 1e-15)

	zV, zL = Correlate(1, 0.4, -1.2)
	assert.Equal(t, 0.4, zV)
	assert.InDelta(t, 0.4, zL, 1e-15)

	zV, zL = Correlate(-0.3, 1, 1)
	assert.Equal(t, 1.0, zV)
	assert.InDelta(t, -0.3+math.Sqrt(0.91), zL, 1e-15)
}

func TestCorrelateRealizesRho(t *testing.T) {
	src := NewSeededSource(5, 0)
	n := 40000
	vs, ls := make([]float64, n), make([]float64, n)
	for i := range n {
		vs[i], ls[i] = Correlate(-0.6, src.NormFloat64(), src.NormFloat64())
	}
	assert.InDelta(t, -0.6, stat.Correlation(vs, ls, nil), 0.02)
}
