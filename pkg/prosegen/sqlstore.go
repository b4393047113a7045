package prosegen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// SetupSchema initializes the corpus tables and the reserved start-marker
// vocabulary entry in the provided database. Call it once on a new database
// before constructing a SQLStore. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS prosegen_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaStarters = `
CREATE TABLE IF NOT EXISTS prosegen_starters (
    token_id INTEGER PRIMARY KEY,
    freq INTEGER NOT NULL DEFAULT 1
);
`
		schemaContinuations = `
CREATE TABLE IF NOT EXISTS prosegen_continuations (
    w1_id INTEGER NOT NULL,
    w2_id INTEGER NOT NULL,
    next_id INTEGER NOT NULL,
    freq INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (w1_id, w2_id, next_id)
);
`
	)

	startMarker := fmt.Sprintf("INSERT OR IGNORE INTO prosegen_vocabulary (token_id, token_text) VALUES (%d, '%s');", StartMarkerID, StartMarker)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() runs first and this rollback
	// is a no-op. On failure it cleans up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaVocab); err != nil {
		return fmt.Errorf("could not create vocabulary schema: %w", err)
	}

	if _, err = tx.Exec(schemaStarters); err != nil {
		return fmt.Errorf("could not create starters schema: %w", err)
	}

	if _, err = tx.Exec(schemaContinuations); err != nil {
		return fmt.Errorf("could not create continuations schema: %w", err)
	}

	if _, err = tx.Exec(startMarker); err != nil {
		return fmt.Errorf("could not insert start marker: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// SQLStore is the SQLite-backed Store implementation. It holds the database
// connection, a tokenizer for ingestion, and prepared SQL statements for
// efficient lookups. All reads are safe for concurrent use.
type SQLStore struct {
	db                *sql.DB
	tokenizer         Tokenizer
	stmtStarters      *sql.Stmt
	stmtContinuations *sql.Stmt
	stmtGetTokenID    *sql.Stmt
	stmtGetTokenText  *sql.Stmt
	stmtInsertVocab   *sql.Stmt
	stmtBumpStarter   *sql.Stmt
	stmtVocabLen      *sql.Stmt
	stmtStarterLen    *sql.Stmt
	stmtContextLen    *sql.Stmt
	stmtChainLen      *sql.Stmt
	stmtTotalFreq     *sql.Stmt
	logger            *slog.Logger
}

// NewSQLStore creates a SQLStore over an initialized database. It takes the
// connection and a Tokenizer used by Ingest, pre-compiles all statements, and
// returns an error if any preparation fails.
func NewSQLStore(db *sql.DB, tokenizer Tokenizer) (*SQLStore, error) {
	stmtStarters, err := db.Prepare(`
SELECT v.token_text, s.freq
FROM prosegen_starters s
JOIN prosegen_vocabulary v ON v.token_id = s.token_id
ORDER BY s.freq DESC, s.token_id ASC;`)
	if err != nil {
		return nil, err
	}

	stmtContinuations, err := db.Prepare(`
SELECT v.token_text, c.freq
FROM prosegen_continuations c
JOIN prosegen_vocabulary v ON v.token_id = c.next_id
WHERE c.w1_id = ? AND c.w2_id = ?
ORDER BY c.freq DESC, c.next_id ASC
LIMIT ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetTokenID, err := db.Prepare(`SELECT token_id FROM prosegen_vocabulary WHERE token_text = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetTokenText, err := db.Prepare(`SELECT token_text FROM prosegen_vocabulary WHERE token_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtInsertVocab, err := db.Prepare(`INSERT INTO prosegen_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`)
	if err != nil {
		return nil, err
	}

	stmtBumpStarter, err := db.Prepare(`INSERT INTO prosegen_starters (token_id, freq) VALUES (?, 1) ON CONFLICT(token_id) DO UPDATE SET freq = freq + 1;`)
	if err != nil {
		return nil, err
	}

	stmtVocabLen, err := db.Prepare(`SELECT COUNT(*) FROM prosegen_vocabulary;`)
	if err != nil {
		return nil, err
	}

	stmtStarterLen, err := db.Prepare(`SELECT COUNT(*) FROM prosegen_starters;`)
	if err != nil {
		return nil, err
	}

	stmtContextLen, err := db.Prepare(`SELECT COUNT(*) FROM (SELECT DISTINCT w1_id, w2_id FROM prosegen_continuations);`)
	if err != nil {
		return nil, err
	}

	stmtChainLen, err := db.Prepare(`SELECT COUNT(*) FROM prosegen_continuations;`)
	if err != nil {
		return nil, err
	}

	stmtTotalFreq, err := db.Prepare(`SELECT coalesce(SUM(freq), 0) FROM prosegen_continuations;`)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		db:                db,
		tokenizer:         tokenizer,
		stmtStarters:      stmtStarters,
		stmtContinuations: stmtContinuations,
		stmtGetTokenID:    stmtGetTokenID,
		stmtGetTokenText:  stmtGetTokenText,
		stmtInsertVocab:   stmtInsertVocab,
		stmtBumpStarter:   stmtBumpStarter,
		stmtVocabLen:      stmtVocabLen,
		stmtStarterLen:    stmtStarterLen,
		stmtContextLen:    stmtContextLen,
		stmtChainLen:      stmtChainLen,
		stmtTotalFreq:     stmtTotalFreq,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared statements held by the store. It does not close
// the underlying database connection, which the caller owns.
func (s *SQLStore) Close() {
	_ = s.stmtStarters.Close()
	_ = s.stmtContinuations.Close()
	_ = s.stmtGetTokenID.Close()
	_ = s.stmtGetTokenText.Close()
	_ = s.stmtInsertVocab.Close()
	_ = s.stmtBumpStarter.Close()
	_ = s.stmtVocabLen.Close()
	_ = s.stmtStarterLen.Close()
	_ = s.stmtContextLen.Close()
	_ = s.stmtChainLen.Close()
	_ = s.stmtTotalFreq.Close()
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *SQLStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Starters returns the full weighted starter list, ordered by frequency
// descending with token ID as the stable tie-break.
func (s *SQLStore) Starters(ctx context.Context) ([]Candidate, error) {
	rows, err := s.stmtStarters.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not query starters: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var starters []Candidate
	for rows.Next() {
		var cand Candidate
		if err = rows.Scan(&cand.Token, &cand.Weight); err != nil {
			return nil, err
		}
		starters = append(starters, cand)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return starters, nil
}

// Continuations returns at most topK candidates observed to follow the given
// context, ranked by frequency descending. A context containing any word
// missing from the vocabulary is a dead end, not an error.
func (s *SQLStore) Continuations(ctx context.Context, key Context, topK int) ([]Candidate, error) {
	w1ID, ok, err := s.tokenID(ctx, key[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	w2ID, ok, err := s.tokenID(ctx, key[1])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	rows, err := s.stmtContinuations.QueryContext(ctx, w1ID, w2ID, topK)
	if err != nil {
		return nil, fmt.Errorf("could not query continuations: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var cands []Candidate
	for rows.Next() {
		var cand Candidate
		if err = rows.Scan(&cand.Token, &cand.Weight); err != nil {
			return nil, err
		}
		cands = append(cands, cand)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return cands, nil
}

// tokenID resolves a token string to its vocabulary ID. The second return
// value reports whether the token exists.
func (s *SQLStore) tokenID(ctx context.Context, text string) (int, bool, error) {
	var id int
	err := s.stmtGetTokenID.QueryRowContext(ctx, text).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not look up token %q: %w", text, err)
	}
	return id, true, nil
}

// TokenText resolves a vocabulary ID back to its token string. It returns an
// error wrapping sql.ErrNoRows if the ID is not in the vocabulary.
func (s *SQLStore) TokenText(ctx context.Context, id int) (string, error) {
	var text string
	if err := s.stmtGetTokenText.QueryRowContext(ctx, id).Scan(&text); err != nil {
		return "", fmt.Errorf("could not look up token id %d: %w", id, err)
	}
	return text, nil
}
