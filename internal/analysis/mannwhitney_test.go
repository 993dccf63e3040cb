package analysis

import (
	"math"
	"testing"
)

func TestMannWhitneyUSeparatedGroups(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{10, 11, 12, 13}
	u, p := MannWhitneyU(a, b)
	if u != 0 {
		t.Fatalf("expected U=0 for fully separated groups, got %v", u)
	}
	if p <= 0 || p >= 0.05 {
		t.Fatalf("expected small p for separated groups, got %v", p)
	}
}

func TestMannWhitneyUSymmetry(t *testing.T) {
	a := []float64{3.1, 4.5, 2.2, 7.8, 5.0}
	b := []float64{4.0, 6.6, 1.3, 9.9}
	uAB, pAB := MannWhitneyU(a, b)
	uBA, pBA := MannWhitneyU(b, a)
	if uAB != uBA {
		t.Fatalf("U not symmetric: %v vs %v", uAB, uBA)
	}
	if math.Abs(pAB-pBA) > 1e-12 {
		t.Fatalf("p not symmetric: %v vs %v", pAB, pBA)
	}
}

func TestMannWhitneyUAllTied(t *testing.T) {
	a := []float64{5, 5, 5}
	b := []float64{5, 5}
	_, p := MannWhitneyU(a, b)
	if p != 1 {
		t.Fatalf("expected p=1 when every observation is tied, got %v", p)
	}
}

func TestMannWhitneyUWithTies(t *testing.T) {
	a := []float64{1, 2, 2, 3}
	b := []float64{2, 3, 4, 5}
	_, p := MannWhitneyU(a, b)
	if p <= 0 || p > 1 {
		t.Fatalf("p out of range with ties: %v", p)
	}
}

func TestMannWhitneyUOverlappingGroups(t *testing.T) {
	a := []float64{1, 3, 5, 7}
	b := []float64{2, 4, 6, 8}
	_, p := MannWhitneyU(a, b)
	if p < 0.5 {
		t.Fatalf("expected large p for interleaved groups, got %v", p)
	}
}

func TestMannWhitneyUEmptyGroup(t *testing.T) {
	_, p := MannWhitneyU(nil, []float64{1, 2})
	if p != 1 {
		t.Fatalf("expected p=1 for empty group, got %v", p)
	}
}

func TestAverageRanks(t *testing.T) {
	ranks, tieTerm := averageRanks([]float64{7, 3, 3, 9})
	// sorted: 3, 3, 7, 9 → ranks 1.5, 1.5, 3, 4
	want := []float64{3, 1.5, 1.5, 4}
	for i := range want {
		if ranks[i] != want[i] {
			t.Fatalf("rank %d is %v, expected %v", i, ranks[i], want[i])
		}
	}
	// one tie group of size 2: 2^3 - 2 = 6
	if tieTerm != 6 {
		t.Fatalf("tie term %v, expected 6", tieTerm)
	}
}
