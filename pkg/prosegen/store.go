package prosegen

import (
	"context"
	"errors"
)

const (
	// StartMarkerID is the reserved vocabulary ID for the start-of-sentence marker.
	StartMarkerID = 0
	// StartMarker is the reserved text for the start-of-sentence marker. It pads
	// the context window until two real words have been emitted, so lookups for
	// the second word of a sentence use the context (StartMarker, firstWord).
	StartMarker = "<s>"
)

var (
	// ErrNoStarters is returned when the corpus has no starter words at all.
	// Generation cannot begin against such a corpus.
	ErrNoStarters = errors.New("prosegen: corpus contains no starter words")

	// ErrNoCandidates is returned by Sampler.Sample when called with an empty
	// candidate list. Callers are expected to check for dead ends first, so
	// hitting this indicates a bug in the caller rather than a corpus problem.
	ErrNoCandidates = errors.New("prosegen: no candidates to sample from")
)

// Candidate is a possible next token together with its corpus frequency.
type Candidate struct {
	Token  string
	Weight int
}

// Context is the two-word lookup key for trigram continuations, ordered
// oldest first.
type Context [2]string

// Sentence is an ordered sequence of generated words.
type Sentence []string

// Paragraph is an ordered sequence of generated sentences.
type Paragraph []Sentence

// Store is the read contract the generation core needs from a corpus.
// Implementations must return candidate lists ordered by weight descending
// with a stable tie-break, and must be safe for concurrent reads.
type Store interface {
	// Starters returns the weighted list of words eligible to open a sentence,
	// ordered by weight descending.
	Starters(ctx context.Context) ([]Candidate, error)

	// Continuations returns at most topK candidates observed to follow the
	// given two-word context, ordered by weight descending. An empty result
	// with a nil error means the context is a dead end, not a failure.
	Continuations(ctx context.Context, key Context, topK int) ([]Candidate, error)
}
