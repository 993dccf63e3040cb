package analysis

import (
	"math"
	"sort"
)

// MannWhitneyU performs a two-sided two-sample rank test. The null
// hypothesis is that a value drawn from one group is equally likely to
// exceed or fall below a value drawn from the other. Ties receive average
// ranks; the p-value uses the tie-corrected normal approximation with a
// continuity correction.
func MannWhitneyU(a, b []float64) (u, p float64) {
	n1 := float64(len(a))
	n2 := float64(len(b))
	if n1 == 0 || n2 == 0 {
		return 0, 1
	}

	combined := make([]float64, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	ranks, tieTerm := averageRanks(combined)

	r1 := 0.0
	for i := range a {
		r1 += ranks[i]
	}
	u1 := r1 - n1*(n1+1)/2
	u2 := n1*n2 - u1
	u = math.Min(u1, u2)

	n := n1 + n2
	mean := n1 * n2 / 2
	variance := n1 * n2 / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if variance <= 0 {
		// Every observation tied: the groups are indistinguishable.
		return u, 1
	}

	z := (math.Abs(u1-mean) - 0.5) / math.Sqrt(variance)
	if z < 0 {
		z = 0
	}
	p = 2 * (1 - normalCDF(z))
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return u, p
}

// averageRanks assigns 1-based ranks with ties averaged, and returns the tie
// correction term sum(t^3 - t) over tie groups.
func averageRanks(data []float64) ([]float64, float64) {
	n := len(data)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return data[order[i]] < data[order[j]] })

	ranks := make([]float64, n)
	tieTerm := 0.0
	i := 0
	for i < n {
		j := i + 1
		for j < n && data[order[j]] == data[order[i]] {
			j++
		}
		size := j - i
		avg := float64(i+1) + float64(size-1)/2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		if size > 1 {
			t := float64(size)
			tieTerm += t*t*t - t
		}
		i = j
	}
	return ranks, tieTerm
}

// normalCDF approximates the standard normal CDF.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
