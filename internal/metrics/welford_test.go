package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWelford(t *testing.T) {
	t.Run("matches direct computation", func(t *testing.T) {
		var w Welford
		for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
			w.Add(x)
		}
		assert.Equal(t, 8, w.Count)
		assert.InDelta(t, 5.0, w.Mean, 1e-9)
		assert.InDelta(t, 4.0, w.Variance(), 1e-9)
		assert.InDelta(t, 2.0, w.StdDev(), 1e-9)
	})

	t.Run("single observation has no spread", func(t *testing.T) {
		var w Welford
		w.Add(120)
		assert.Equal(t, 120.0, w.Mean)
		assert.Equal(t, 0.0, w.StdDev())
	})

	t.Run("resume continues from persisted state", func(t *testing.T) {
		var full Welford
		var first Welford
		for _, x := range []float64{-30, 60, 90} {
			full.Add(x)
			first.Add(x)
		}
		resumed := Resume(first.Count, first.Mean, first.M2)
		for _, x := range []float64{300, 0} {
			full.Add(x)
			resumed.Add(x)
		}
		assert.Equal(t, full.Count, resumed.Count)
		assert.InDelta(t, full.Mean, resumed.Mean, 1e-9)
		assert.InDelta(t, full.M2, resumed.M2, 1e-6)
		assert.Equal(t, Welford{}, *Resume(0, 10, 10))
	})

	t.Run("merge equals sequential", func(t *testing.T) {
		var a, b, all Welford
		for _, x := range []float64{1, 2, 3} {
			a.Add(x)
			all.Add(x)
		}
		for _, x := range []float64{10, 20} {
			b.Add(x)
			all.Add(x)
		}
		a.Merge(b)
		assert.Equal(t, all.Count, a.Count)
		assert.InDelta(t, all.Mean, a.Mean, 1e-9)
		assert.InDelta(t, all.M2, a.M2, 1e-6)

		var empty Welford
		empty.Merge(b)
		assert.Equal(t, b, empty)
	})
}
