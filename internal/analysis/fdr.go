package analysis

import "sort"

// BenjaminiHochberg adjusts a family of p-values for false discovery rate
// using the step-up procedure. The returned slice is positionally aligned
// with the input; adjusted values are monotone over the sorted p-values and
// clamped to 1.
func BenjaminiHochberg(pvalues []float64) []float64 {
	n := len(pvalues)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return pvalues[order[i]] < pvalues[order[j]] })

	adjusted := make([]float64, n)
	running := 1.0
	for rank := n; rank >= 1; rank-- {
		idx := order[rank-1]
		q := pvalues[idx] * float64(n) / float64(rank)
		if q < running {
			running = q
		}
		adjusted[idx] = running
	}
	return adjusted
}
