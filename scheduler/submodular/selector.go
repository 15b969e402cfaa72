package submodular

import (
	"math"
	"sort"
)

// Epsilon is the floor applied to a zero-valued off-diagonal latency in
// the coverage function, so distinct cores never divide by zero. A zero
// item cost is handled separately: its ratio is the raw gain.
const Epsilon = 1e-10

// Selector runs the budgeted greedy submodular maximization described
// in "Multi-document Summarization via Budgeted Maximization of
// Submodular Functions" (Lin & Bilmes), with the standard singleton
// fallback that preserves its constant-factor approximation guarantee
// even when the greedy loop places nothing.
//
// This module resolves one deliberate ambiguity in the algorithm's
// coverage function: f(S) sums over i in V\S and j in S (not i in V, or
// i,j both in S), matching the original Lin-Bilmes coverage formulation.
type Selector struct {
	Policy IndexSetPolicy

	// Exponent is the cost exponent r in the gain/cost^r ratio.
	// Defaults to 1.0.
	Exponent float64
}

// NewSelector returns a Selector with the default exponent of 1.0.
func NewSelector(policy IndexSetPolicy) *Selector {
	return &Selector{Policy: policy, Exponent: 1.0}
}

// Select runs the greedy budgeted algorithm with budget parameter b
// (the request is "approximately b times the cheapest single item").
// The budget in absolute cost units is B = min(cost over items) * b.
func (s *Selector) Select(b float64) []int {
	items := append([]int(nil), s.Policy.Items()...)
	sort.Ints(items)

	if len(items) == 0 {
		return nil
	}

	cost := s.Policy.CostVector()
	weight := s.Policy.WeightVector()
	r := s.Exponent
	if r == 0 {
		r = 1.0
	}

	minCost := math.Inf(1)
	for _, i := range items {
		if cost[i] < minCost {
			minCost = cost[i]
		}
	}
	budget := minCost * b

	f := func(set map[int]bool) float64 {
		return coverage(items, weight, s.Policy.Similarity, set)
	}

	G := make(map[int]bool)
	var Gorder []int
	Gcost := 0.0

	U := append([]int(nil), items...)
	fG := 0.0

	for len(U) > 0 {
		bestIdx := -1
		bestRatio := math.Inf(-1)
		bestGain := 0.0

		for idx, l := range U {
			trial := cloneSet(G)
			trial[l] = true
			gain := f(trial) - fG

			denom := math.Pow(cost[l], r)
			var ratio float64
			if cost[l] <= 0 {
				ratio = gain
			} else {
				ratio = gain / denom
			}

			if ratio > bestRatio {
				bestRatio = ratio
				bestIdx = idx
				bestGain = gain
			}
		}

		k := U[bestIdx]
		U = append(U[:bestIdx], U[bestIdx+1:]...)

		if Gcost+cost[k] <= budget && bestGain >= 0 {
			G[k] = true
			Gorder = append(Gorder, k)
			Gcost += cost[k]
			fG += bestGain
		}
	}

	var bestSingleton int
	bestSingletonF := math.Inf(-1)
	haveSingleton := false
	for _, v := range items {
		if cost[v] > budget {
			continue
		}
		fv := f(map[int]bool{v: true})
		if fv > bestSingletonF {
			bestSingletonF = fv
			bestSingleton = v
			haveSingleton = true
		}
	}

	if !haveSingleton {
		return sortedKeys(Gorder)
	}

	if fG >= bestSingletonF {
		return sortedKeys(Gorder)
	}
	return []int{bestSingleton}
}

// coverage computes f(S) = sum_{i in items\S} sum_{j in S} (w[i]+w[j]) /
// max(latency(i,j), Epsilon), iterating both i and j in ascending item
// order so floating point summation is deterministic across runs.
func coverage(items []int, weight []float64, similarity func(int, int) float64, S map[int]bool) float64 {
	if len(S) == 0 {
		return 0
	}
	var sOrder []int
	for _, i := range items {
		if S[i] {
			sOrder = append(sOrder, i)
		}
	}

	total := 0.0
	for _, i := range items {
		if S[i] {
			continue
		}
		for _, j := range sOrder {
			lat := math.Max(similarity(i, j), Epsilon)
			total += (weight[i] + weight[j]) / lat
		}
	}
	return total
}

func cloneSet(s map[int]bool) map[int]bool {
	out := make(map[int]bool, len(s)+1)
	for k := range s {
		out[k] = true
	}
	return out
}

func sortedKeys(keys []int) []int {
	out := append([]int(nil), keys...)
	sort.Ints(out)
	return out
}
