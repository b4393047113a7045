package prosegen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// maxSentenceWords caps how many words of a runaway sentence are kept in
// memory during ingestion.
const maxSentenceWords = 4096

// Ingest tokenizes a stream of corpus text and folds it into the frequency
// tables: the first word of each sentence bumps its starter count, and every
// trigram bumps its continuation count. The context for a sentence's second
// word is padded with the start marker, so generation can look up the word
// after the opening one through the same continuation table. The whole
// operation runs in a single transaction; on error nothing is written.
func (s *SQLStore) Ingest(ctx context.Context, data io.Reader) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin ingest transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtBumpStarter := tx.StmtContext(ctx, s.stmtBumpStarter)
	stmtBumpContinuation, err := tx.PrepareContext(ctx, `INSERT INTO prosegen_continuations (w1_id, w2_id, next_id, freq) VALUES (?, ?, ?, 1) ON CONFLICT(w1_id, w2_id, next_id) DO UPDATE SET freq = freq + 1;`)
	if err != nil {
		return fmt.Errorf("failed to prepare continuation insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtBumpContinuation)

	vocabCache := map[string]int{StartMarker: StartMarkerID}

	resolveToken := func(text string) (int, error) {
		if id, ok := vocabCache[text]; ok {
			return id, nil
		}
		var id int
		if err := stmtInsertVocab.QueryRowContext(ctx, text).Scan(&id); err != nil {
			return 0, fmt.Errorf("vocabulary insert failed for token %q: %w", text, err)
		}
		vocabCache[text] = id
		return id, nil
	}

	processSentence := func(ids []int) error {
		if len(ids) == 0 {
			return nil
		}
		if _, err := stmtBumpStarter.ExecContext(ctx, ids[0]); err != nil {
			return fmt.Errorf("starter insert failed: %w", err)
		}
		// Pad with one start marker so (marker, w1) -> w2 is recorded.
		padded := make([]int, 0, len(ids)+1)
		padded = append(padded, StartMarkerID)
		padded = append(padded, ids...)
		for i := 0; i+2 < len(padded); i++ {
			if _, err := stmtBumpContinuation.ExecContext(ctx, padded[i], padded[i+1], padded[i+2]); err != nil {
				return fmt.Errorf("continuation insert failed: %w", err)
			}
		}
		return nil
	}

	stream := s.tokenizer.NewStream(data)
	var currentSentence []int
	var sentenceCount, wordCount int64

	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("tokenizer error: %w", err)
		}

		if !token.End && len(currentSentence) < maxSentenceWords {
			id, err := resolveToken(token.Text)
			if err != nil {
				return err
			}
			currentSentence = append(currentSentence, id)
			wordCount++
		} else if len(currentSentence) > 0 {
			if err := processSentence(currentSentence); err != nil {
				return fmt.Errorf("sentence processing error: %w", err)
			}
			sentenceCount++
			currentSentence = currentSentence[:0]
		}
	}

	if len(currentSentence) > 0 {
		if err := processSentence(currentSentence); err != nil {
			return fmt.Errorf("final sentence processing error: %w", err)
		}
		sentenceCount++
	}

	s.logger.InfoContext(ctx, "Ingestion completed",
		slog.Int64("sentences_processed", sentenceCount),
		slog.Int64("words_processed", wordCount),
	)

	return tx.Commit()
}
