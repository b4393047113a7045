package prosegen

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// ExportedCorpus is the serializable representation of a trained corpus,
// used for JSON-based backup and transfer between databases.
type ExportedCorpus struct {
	Vocabulary    map[string]int         `json:"vocabulary"` // token_text -> token_id
	Starters      []ExportedStarter      `json:"starters"`
	Continuations []ExportedContinuation `json:"continuations"`
}

// ExportedStarter is one weighted starter entry within an ExportedCorpus.
type ExportedStarter struct {
	TokenID int `json:"token_id"`
	Freq    int `json:"freq"`
}

// ExportedContinuation is one trigram link within an ExportedCorpus.
type ExportedContinuation struct {
	W1   int `json:"w1"`
	W2   int `json:"w2"`
	Next int `json:"next"`
	Freq int `json:"freq"`
}

// Export serializes the whole corpus as JSON to the provided writer.
func (s *SQLStore) Export(ctx context.Context, w io.Writer) error {
	vocab := make(map[string]int)
	rows, err := s.db.QueryContext(ctx, `SELECT token_id, token_text FROM prosegen_vocabulary`)
	if err != nil {
		return fmt.Errorf("could not query vocabulary for export: %w", err)
	}
	for rows.Next() {
		var id int
		var text string
		if err = rows.Scan(&id, &text); err != nil {
			_ = rows.Close()
			return err
		}
		vocab[text] = id
	}
	_ = rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	var starters []ExportedStarter
	rows, err = s.db.QueryContext(ctx, `SELECT token_id, freq FROM prosegen_starters`)
	if err != nil {
		return fmt.Errorf("could not query starters for export: %w", err)
	}
	for rows.Next() {
		var entry ExportedStarter
		if err = rows.Scan(&entry.TokenID, &entry.Freq); err != nil {
			_ = rows.Close()
			return err
		}
		starters = append(starters, entry)
	}
	_ = rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	var continuations []ExportedContinuation
	rows, err = s.db.QueryContext(ctx, `SELECT w1_id, w2_id, next_id, freq FROM prosegen_continuations`)
	if err != nil {
		return fmt.Errorf("could not query continuations for export: %w", err)
	}
	for rows.Next() {
		var link ExportedContinuation
		if err = rows.Scan(&link.W1, &link.W2, &link.Next, &link.Freq); err != nil {
			_ = rows.Close()
			return err
		}
		continuations = append(continuations, link)
	}
	_ = rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Corpus exported",
		slog.Int("vocab_items_exported", len(vocab)),
		slog.Int("starters_exported", len(starters)),
		slog.Int("continuations_exported", len(continuations)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportedCorpus{
		Vocabulary:    vocab,
		Starters:      starters,
		Continuations: continuations,
	})
}

// Import reads a JSON corpus from the reader and merges it into the database:
// token IDs are re-mapped through the local vocabulary and frequencies are
// added to any existing entries. The entire operation is transactional.
func (s *SQLStore) Import(ctx context.Context, r io.Reader) error {
	var imported ExportedCorpus
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return fmt.Errorf("failed to decode json corpus: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)

	idMap := make(map[int]int) // old_id -> new_id
	idMap[StartMarkerID] = StartMarkerID

	for text, oldID := range imported.Vocabulary {
		if text == StartMarker {
			continue
		}
		var newID int
		if err := stmtInsertVocab.QueryRowContext(ctx, text).Scan(&newID); err != nil {
			return fmt.Errorf("failed to get/insert vocab %q: %w", text, err)
		}
		idMap[oldID] = newID
	}

	remap := func(oldID int) (int, error) {
		newID, ok := idMap[oldID]
		if !ok {
			return 0, fmt.Errorf("import consistency error: token id %d not found in vocabulary map", oldID)
		}
		return newID, nil
	}

	stmtMergeStarter, err := tx.PrepareContext(ctx, `
INSERT INTO prosegen_starters (token_id, freq) VALUES (?, ?)
ON CONFLICT(token_id) DO UPDATE SET freq = freq + excluded.freq;`)
	if err != nil {
		return fmt.Errorf("failed to prepare starter merge statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtMergeStarter)

	for _, entry := range imported.Starters {
		tokenID, err := remap(entry.TokenID)
		if err != nil {
			return err
		}
		if _, err := stmtMergeStarter.ExecContext(ctx, tokenID, entry.Freq); err != nil {
			return fmt.Errorf("failed to merge starter %d: %w", tokenID, err)
		}
	}

	stmtMergeContinuation, err := tx.PrepareContext(ctx, `
INSERT INTO prosegen_continuations (w1_id, w2_id, next_id, freq) VALUES (?, ?, ?, ?)
ON CONFLICT(w1_id, w2_id, next_id) DO UPDATE SET freq = freq + excluded.freq;`)
	if err != nil {
		return fmt.Errorf("failed to prepare continuation merge statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtMergeContinuation)

	for _, link := range imported.Continuations {
		w1, err := remap(link.W1)
		if err != nil {
			return err
		}
		w2, err := remap(link.W2)
		if err != nil {
			return err
		}
		next, err := remap(link.Next)
		if err != nil {
			return err
		}
		if _, err := stmtMergeContinuation.ExecContext(ctx, w1, w2, next, link.Freq); err != nil {
			return fmt.Errorf("failed to merge continuation (%d %d -> %d): %w", w1, w2, next, err)
		}
	}

	s.logger.InfoContext(ctx, "Corpus imported successfully",
		slog.Int("vocab_items_merged", len(imported.Vocabulary)),
		slog.Int("starters_merged", len(imported.Starters)),
		slog.Int("continuations_merged", len(imported.Continuations)),
	)

	return tx.Commit()
}
