package prosegen

import (
	"math"
	"math/rand/v2"
)

// Distribution maps a candidate's rank position (0 is the most frequent) and
// the total candidate count to an unnormalized selection weight. It must be a
// pure function so that draws are reproducible under a fixed seed. Raw corpus
// frequencies never enter the calculation; ranking already encoded them.
type Distribution func(rank, total int) float64

// RankDecay is the default distribution: a linear decay over rank, so the
// top-ranked candidate gets weight total and the last gets weight 1.
func RankDecay(rank, total int) float64 {
	return float64(total - rank)
}

// Exponential returns a distribution whose weight falls off as
// exp(-lambda*rank). Larger lambda concentrates the draws on the most
// frequent candidates.
func Exponential(lambda float64) Distribution {
	return func(rank, _ int) float64 {
		return math.Exp(-lambda * float64(rank))
	}
}

// Sampler draws one candidate from a ranked list according to a Distribution
// over rank positions. It owns its own random source, so two samplers created
// with the same seed produce identical draw sequences.
type Sampler struct {
	rng  *rand.Rand
	dist Distribution
}

// NewSampler creates a Sampler seeded with the given value. A nil dist falls
// back to RankDecay.
func NewSampler(seed uint64, dist Distribution) *Sampler {
	if dist == nil {
		dist = RankDecay
	}
	return &Sampler{
		rng:  rand.New(rand.NewPCG(seed, seed)),
		dist: dist,
	}
}

// Sample selects exactly one token from the ranked candidate list. The list
// must be non-empty; an empty list returns ErrNoCandidates. Candidates with
// equal corpus weight keep their store-provided order, since selection
// depends only on rank position.
func (s *Sampler) Sample(cands []Candidate) (string, error) {
	if len(cands) == 0 {
		return "", ErrNoCandidates
	}

	weights := make([]float64, len(cands))
	var total float64
	for i := range cands {
		w := s.dist(i, len(cands))
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		// A degenerate distribution still has to pick something; take the
		// highest-ranked candidate.
		return cands[0].Token, nil
	}

	r := s.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return cands[i].Token, nil
		}
	}
	return cands[len(cands)-1].Token, nil
}
