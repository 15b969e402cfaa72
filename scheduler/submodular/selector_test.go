package submodular

import (
	"testing"

	"github.com/shoenig/test/must"
)

type fakePolicy struct {
	items  []int
	lat    [][]float64
	cost   []float64
	weight []float64
}

func (p *fakePolicy) Items() []int               { return p.items }
func (p *fakePolicy) Similarity(i, j int) float64 { return p.lat[i][j] }
func (p *fakePolicy) CostVector() []float64       { return p.cost }
func (p *fakePolicy) WeightVector() []float64     { return p.weight }

func TestSelector_PureCPU(t *testing.T) {
	policy := &fakePolicy{
		items: []int{0, 1, 2, 3},
		lat: [][]float64{
			{0, 1, 2, 3},
			{1, 0, 1, 2},
			{2, 1, 0, 1},
			{3, 2, 1, 0},
		},
		cost:   []float64{1, 2, 1, 1},
		weight: []float64{1, 1, 1, 1},
	}

	sel := NewSelector(policy)
	got := sel.Select(2.0)

	must.SliceNotContains(t, got, 1, must.Sprint("cheap pair should exclude the cost-2 core"))
	must.Len(t, 2, got)
}

func TestSelector_GPUAnchored(t *testing.T) {
	neighbors := []int{4, 5}
	// non-neighbor cores have heavy simulated load (high weight) but
	// CudaPolicy must zero their weight so they never get picked.
	weight := make([]float64, 8)
	for i := range weight {
		weight[i] = 10
	}
	weight[4] = 1
	weight[5] = 1
	// zero every non-neighbor per CudaPolicy semantics
	for i := range weight {
		found := false
		for _, n := range neighbors {
			if i == n {
				found = true
			}
		}
		if !found {
			weight[i] = 0
		}
	}

	lat := make([][]float64, 8)
	for i := range lat {
		lat[i] = make([]float64, 8)
		for j := range lat[i] {
			if i != j {
				lat[i][j] = 1
			}
		}
	}

	cost := make([]float64, 8)
	for i := range cost {
		cost[i] = 1
	}

	policy := &fakePolicy{items: neighbors, lat: lat, cost: cost, weight: weight}
	sel := NewSelector(policy)
	got := sel.Select(2.0)

	must.Eq(t, []int{4, 5}, got)
}

func TestSelector_Deterministic(t *testing.T) {
	policy := &fakePolicy{
		items: []int{0, 1, 2, 3},
		lat: [][]float64{
			{0, 1, 2, 3},
			{1, 0, 1, 2},
			{2, 1, 0, 1},
			{3, 2, 1, 0},
		},
		cost:   []float64{1, 2, 1, 1},
		weight: []float64{1, 1, 1, 1},
	}

	sel := NewSelector(policy)
	first := sel.Select(2.0)
	second := sel.Select(2.0)
	must.Eq(t, first, second)
}

func TestSelector_BudgetMonotonicity(t *testing.T) {
	policy := &fakePolicy{
		items: []int{0, 1, 2, 3},
		lat: [][]float64{
			{0, 1, 2, 3},
			{1, 0, 1, 2},
			{2, 1, 0, 1},
			{3, 2, 1, 0},
		},
		cost:   []float64{1, 1, 1, 1},
		weight: []float64{1, 1, 1, 1},
	}

	sel := NewSelector(policy)
	small := sel.Select(1.0)
	large := sel.Select(4.0)

	fSmall := coverage(policy.items, policy.weight, policy.Similarity, toSet(small))
	fLarge := coverage(policy.items, policy.weight, policy.Similarity, toSet(large))
	must.True(t, fSmall <= fLarge)
}

func TestSelector_EmptyItems(t *testing.T) {
	policy := &fakePolicy{items: nil, lat: nil, cost: nil, weight: nil}
	sel := NewSelector(policy)
	must.Len(t, 0, sel.Select(2.0))
}

func toSet(ids []int) map[int]bool {
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
