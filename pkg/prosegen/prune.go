package prosegen

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Prune removes continuation links with frequency at or below minFreq, then
// garbage-collects vocabulary tokens that are no longer referenced by any
// starter or continuation. Rare transitions are usually noise from small
// corpora; removing them shrinks the database without changing the character
// of the output much. The starter list itself is never pruned, and the start
// marker always survives.
func (s *SQLStore) Prune(ctx context.Context, minFreq int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin prune transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM prosegen_continuations WHERE freq <= ?;`, minFreq)
	if err != nil {
		return fmt.Errorf("could not prune continuations: %w", err)
	}
	linksRemoved, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
DELETE FROM prosegen_vocabulary
WHERE token_id != ?
  AND token_id NOT IN (SELECT token_id FROM prosegen_starters)
  AND token_id NOT IN (SELECT w1_id FROM prosegen_continuations)
  AND token_id NOT IN (SELECT w2_id FROM prosegen_continuations)
  AND token_id NOT IN (SELECT next_id FROM prosegen_continuations);`, StartMarkerID)
	if err != nil {
		return fmt.Errorf("could not garbage-collect vocabulary: %w", err)
	}
	tokensRemoved, _ := res.RowsAffected()

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit prune transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Corpus pruned",
		slog.Int("min_frequency", minFreq),
		slog.Int64("links_removed", linksRemoved),
		slog.Int64("tokens_removed", tokensRemoved),
	)
	return nil
}

// Compact drops continuation rows ranked beyond the top-K by frequency within
// each context, making the generation-time truncation a persistent property
// of the stored corpus. Ties are broken by token ID, matching the lookup
// order used by Continuations.
func (s *SQLStore) Compact(ctx context.Context, topK int) error {
	if topK <= 0 {
		return fmt.Errorf("compact requires a positive topK, got %d", topK)
	}

	res, err := s.db.ExecContext(ctx, `
DELETE FROM prosegen_continuations
WHERE (w1_id, w2_id, next_id) IN (
    SELECT w1_id, w2_id, next_id FROM (
        SELECT w1_id, w2_id, next_id,
               ROW_NUMBER() OVER (
                   PARTITION BY w1_id, w2_id
                   ORDER BY freq DESC, next_id ASC
               ) AS rank
        FROM prosegen_continuations
    )
    WHERE rank > ?
);`, topK)
	if err != nil {
		return fmt.Errorf("could not compact continuations: %w", err)
	}
	rowsRemoved, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Corpus compacted",
		slog.Int("top_k", topK),
		slog.Int64("links_removed", rowsRemoved),
	)
	return nil
}
