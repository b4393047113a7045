package prosegen

import (
	"errors"
	"math"
	"testing"
)

func TestSampleEmptyCandidates(t *testing.T) {
	s := NewSampler(1, nil)
	_, err := s.Sample(nil)
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestSampleSingleCandidate(t *testing.T) {
	s := NewSampler(1, nil)
	for i := 0; i < 10; i++ {
		token, err := s.Sample([]Candidate{{Token: "only", Weight: 3}})
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		if token != "only" {
			t.Errorf("expected 'only', got %q", token)
		}
	}
}

func TestSampleNeverOutsideList(t *testing.T) {
	s := NewSampler(7, nil)
	cands := []Candidate{
		{Token: "alpha", Weight: 9},
		{Token: "beta", Weight: 5},
		{Token: "gamma", Weight: 1},
	}
	allowed := map[string]bool{"alpha": true, "beta": true, "gamma": true}
	for i := 0; i < 1000; i++ {
		token, err := s.Sample(cands)
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		if !allowed[token] {
			t.Fatalf("sampled token %q is not in the candidate list", token)
		}
	}
}

func TestSampleDeterminism(t *testing.T) {
	cands := []Candidate{
		{Token: "alpha", Weight: 9},
		{Token: "beta", Weight: 5},
		{Token: "gamma", Weight: 1},
	}

	s1 := NewSampler(42, nil)
	s2 := NewSampler(42, nil)
	for i := 0; i < 100; i++ {
		t1, err := s1.Sample(cands)
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		t2, err := s2.Sample(cands)
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		if t1 != t2 {
			t.Fatalf("draw %d diverged: %q vs %q", i, t1, t2)
		}
	}
}

func TestSampleConvergence(t *testing.T) {
	// A fixed 9:1 split over two rank positions. Over many draws the
	// empirical ratio has to converge to the distribution, independent of
	// the raw corpus weights.
	fixed := func(rank, _ int) float64 {
		if rank == 0 {
			return 0.9
		}
		return 0.1
	}

	s := NewSampler(1234, fixed)
	cands := []Candidate{
		{Token: "first", Weight: 1},
		{Token: "second", Weight: 1},
	}

	const draws = 100000
	firstCount := 0
	for i := 0; i < draws; i++ {
		token, err := s.Sample(cands)
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		if token == "first" {
			firstCount++
		}
	}

	ratio := float64(firstCount) / draws
	if math.Abs(ratio-0.9) > 0.02 {
		t.Errorf("empirical ratio %.4f outside tolerance of theoretical 0.9", ratio)
	}
}

func TestRankDecayWeights(t *testing.T) {
	// Linear decay: total 4 yields weights 4, 3, 2, 1.
	for rank, want := range []float64{4, 3, 2, 1} {
		if got := RankDecay(rank, 4); got != want {
			t.Errorf("RankDecay(%d, 4) = %v, want %v", rank, got, want)
		}
	}
}

func TestExponentialMonotonic(t *testing.T) {
	dist := Exponential(0.5)
	prev := math.Inf(1)
	for rank := 0; rank < 5; rank++ {
		w := dist(rank, 5)
		if w <= 0 {
			t.Fatalf("exponential weight at rank %d should be positive, got %v", rank, w)
		}
		if w >= prev {
			t.Fatalf("exponential weight must decrease with rank, got %v after %v", w, prev)
		}
		prev = w
	}
}
