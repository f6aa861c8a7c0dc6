package indicator

import "math"

// Series primitives shared by the indicator formulas. Every function
// returns a slice of the same length as its input; positions where a
// value is not yet defined (warm-up, empty window) hold NaN.

// nans returns a slice of n NaN values.
func nans(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Ref shifts s right by n positions: out[i] = s[i-n].
func Ref(s []float64, n int) []float64 {
	out := nans(len(s))
	if n < 0 {
		return out
	}
	for i := n; i < len(s); i++ {
		out[i] = s[i-n]
	}
	return out
}

// rolling applies f to every complete n-window of s. A window that
// contains NaN yields NaN, so warm-up gaps propagate downstream.
func rolling(s []float64, n int, f func(w []float64) float64) []float64 {
	out := nans(len(s))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(s); i++ {
		w := s[i-n+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = f(w)
	}
	return out
}

// MA is the simple moving average over the last n values.
func MA(s []float64, n int) []float64 {
	return rolling(s, n, func(w []float64) float64 {
		var sum float64
		for _, v := range w {
			sum += v
		}
		return sum / float64(len(w))
	})
}

// Sum is the rolling sum over the last n values.
func Sum(s []float64, n int) []float64 {
	return rolling(s, n, func(w []float64) float64 {
		var sum float64
		for _, v := range w {
			sum += v
		}
		return sum
	})
}

// HHV is the highest value over the last n values.
func HHV(s []float64, n int) []float64 {
	return rolling(s, n, func(w []float64) float64 {
		max := w[0]
		for _, v := range w[1:] {
			if v > max {
				max = v
			}
		}
		return max
	})
}

// LLV is the lowest value over the last n values.
func LLV(s []float64, n int) []float64 {
	return rolling(s, n, func(w []float64) float64 {
		min := w[0]
		for _, v := range w[1:] {
			if v < min {
				min = v
			}
		}
		return min
	})
}

// Std is the population standard deviation over the last n values.
func Std(s []float64, n int) []float64 {
	return rolling(s, n, func(w []float64) float64 {
		var mean float64
		for _, v := range w {
			mean += v
		}
		mean /= float64(len(w))
		var ss float64
		for _, v := range w {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(len(w)))
	})
}

// AveDev is the mean absolute deviation over the last n values.
func AveDev(s []float64, n int) []float64 {
	return rolling(s, n, func(w []float64) float64 {
		var mean float64
		for _, v := range w {
			mean += v
		}
		mean /= float64(len(w))
		var dev float64
		for _, v := range w {
			dev += math.Abs(v - mean)
		}
		return dev / float64(len(w))
	})
}

// EMA is the exponential moving average with smoothing 2/(n+1), seeded
// at the first finite value. NaN inputs after the seed repeat the
// previous value instead of resetting the average.
func EMA(s []float64, n int) []float64 {
	out := nans(len(s))
	alpha := 2 / (float64(n) + 1)
	var state float64
	seeded := false
	for i, v := range s {
		if math.IsNaN(v) {
			if seeded {
				out[i] = state
			}
			continue
		}
		if !seeded {
			state = v
			seeded = true
		} else {
			state = alpha*v + (1-alpha)*state
		}
		out[i] = state
	}
	return out
}

// SMA is the recursively weighted moving average used by RSI. It starts
// from the plain n-period mean and then follows
//
//	out[i] = (m*s[i] + (n-m)*out[i-1]) / n
//
// from position n+1 on, so one leading NaN in s leaves the result
// defined from position n.
func SMA(s []float64, n int, m float64) []float64 {
	out := MA(s, n)
	for i := n + 1; i < len(s); i++ {
		out[i] = (m*s[i] + (float64(n)-m)*out[i-1]) / float64(n)
	}
	return out
}

// sub returns a-b elementwise.
func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = a[i] - b[i]
	}
	return out
}

// ratio returns a/b*scale elementwise.
func ratio(a, b []float64, scale float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = a[i] / b[i] * scale
	}
	return out
}

// fillNaN replaces NaN entries with v, in place, and returns s.
func fillNaN(s []float64, v float64) []float64 {
	for i := range s {
		if math.IsNaN(s[i]) {
			s[i] = v
		}
	}
	return s
}

func hasNaN(w []float64) bool {
	for _, v := range w {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
