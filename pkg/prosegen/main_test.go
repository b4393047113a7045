package prosegen

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

// testCorpus forms a closed loop of contexts so generation of any length
// never dead-ends: (the cat) -> sat -> on -> the -> cat -> ...
const testCorpus = "the cat sat on the cat sat on the cat. a cat sat on the cat."

// setupTestStore creates a temp-file SQLite database and a SQLStore for
// testing. It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *SQLStore) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=cache_size(-4000)")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	store, err := NewSQLStore(db, NewDefaultTokenizer())
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	t.Cleanup(store.Close)

	return db, store
}

// setupTestStoreWithCorpus is a convenience helper that also ingests the
// default test corpus.
func setupTestStoreWithCorpus(t *testing.T) (context.Context, *sql.DB, *SQLStore) {
	db, store := setupTestStore(t)
	ctx := context.Background()
	if err := store.Ingest(ctx, strings.NewReader(testCorpus)); err != nil {
		t.Fatalf("setup: Ingest() failed: %v", err)
	}
	return ctx, db, store
}

// setupBenchStore creates a database for benchmarking.
func setupBenchStore(b *testing.B) (*sql.DB, *SQLStore) {
	dbFile := filepath.Join(b.TempDir(), "bench.db")
	db, err := sql.Open("sqlite", dbFile+"?_pragma=journal_mode(WAL)&_pragma=synchronous(OFF)&_pragma=cache_size(-16000)")
	if err != nil {
		b.Fatalf("failed to open database: %v", err)
	}
	b.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		b.Fatalf("failed to set up schema: %v", err)
	}

	store, err := NewSQLStore(db, NewDefaultTokenizer())
	if err != nil {
		b.Fatalf("NewSQLStore() error = %v", err)
	}
	b.Cleanup(store.Close)

	return db, store
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a synthetic corpus with enough distinct
// trigrams to exercise ranking and truncation.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		for i := 0; i < 2000; i++ {
			fmt.Fprintf(&sb, "word%d links word%d with word%d often. ", i%97, (i*7)%89, (i*13)%83)
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
