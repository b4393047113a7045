package prosegen

import (
	"context"
)

// CorpusStats holds aggregated statistics for the corpus database.
type CorpusStats struct {
	VocabSize       int // Unique tokens, including the start marker.
	StarterCount    int // Unique words eligible to open a sentence.
	ContextCount    int // Unique two-word contexts with at least one continuation.
	TransitionCount int // Unique context -> next-word links.
	TotalFrequency  int // Sum of all link frequencies; total trained trigrams.
}

// Stats returns a snapshot of corpus-wide counts.
func (s *SQLStore) Stats(ctx context.Context) (*CorpusStats, error) {
	stats := &CorpusStats{}

	if err := s.stmtVocabLen.QueryRowContext(ctx).Scan(&stats.VocabSize); err != nil {
		return nil, err
	}
	if err := s.stmtStarterLen.QueryRowContext(ctx).Scan(&stats.StarterCount); err != nil {
		return nil, err
	}
	if err := s.stmtContextLen.QueryRowContext(ctx).Scan(&stats.ContextCount); err != nil {
		return nil, err
	}
	if err := s.stmtChainLen.QueryRowContext(ctx).Scan(&stats.TransitionCount); err != nil {
		return nil, err
	}
	if err := s.stmtTotalFreq.QueryRowContext(ctx).Scan(&stats.TotalFrequency); err != nil {
		return nil, err
	}

	return stats, nil
}
