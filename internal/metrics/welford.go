package metrics

import "math"

// Welford holds running statistics using Welford's online algorithm,
// so mean and deviation can be updated without keeping the observations.
type Welford struct {
	Count int     // number of observations
	Mean  float64 // running mean
	M2    float64 // sum of squared differences from the mean
}

// Resume rebuilds a state from persisted aggregates
func Resume(count int, mean, m2 float64) *Welford {
	if count <= 0 {
		return &Welford{}
	}
	return &Welford{Count: count, Mean: mean, M2: m2}
}

// Add records one observation
func (w *Welford) Add(x float64) {
	w.Count++
	delta := x - w.Mean
	w.Mean += delta / float64(w.Count)
	w.M2 += delta * (x - w.Mean)
}

// Variance returns the population variance, 0 below two observations
func (w *Welford) Variance() float64 {
	if w.Count < 2 {
		return 0
	}
	return w.M2 / float64(w.Count)
}

// StdDev returns the population standard deviation
func (w *Welford) StdDev() float64 {
	return math.Sqrt(w.Variance())
}

// Merge folds other into w (Chan et al. parallel update)
func (w *Welford) Merge(other Welford) {
	if other.Count == 0 {
		return
	}
	if w.Count == 0 {
		*w = other
		return
	}
	n := w.Count + other.Count
	delta := other.Mean - w.Mean
	mean := w.Mean + delta*float64(other.Count)/float64(n)
	w.M2 += other.M2 + delta*delta*float64(w.Count)*float64(other.Count)/float64(n)
	w.Mean = mean
	w.Count = n
}
