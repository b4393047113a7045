package prosegen

import (
	"bytes"
	"context"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx, _, store := setupTestStoreWithCorpus(t)

	var buf bytes.Buffer
	if err := store.Export(ctx, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Import into a completely fresh database.
	_, fresh := setupTestStore(t)
	if err := fresh.Import(ctx, &buf); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	wantStats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats on source failed: %v", err)
	}
	gotStats, err := fresh.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats on target failed: %v", err)
	}
	if *gotStats != *wantStats {
		t.Errorf("imported stats %+v differ from source stats %+v", gotStats, wantStats)
	}

	// The imported corpus has to be generation-ready.
	g := New(fresh, WithWordsPerSentence(5), WithSeed(42))
	sentence, err := g.Sentence(ctx)
	if err != nil {
		t.Fatalf("Sentence from imported corpus failed: %v", err)
	}
	if len(sentence) != 5 {
		t.Errorf("expected 5 words from imported corpus, got %d: %v", len(sentence), sentence)
	}
}

func TestImportMergesFrequencies(t *testing.T) {
	ctx, _, store := setupTestStoreWithCorpus(t)

	var buf bytes.Buffer
	if err := store.Export(ctx, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	before, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	// Importing a corpus into itself doubles every frequency but adds no
	// new tokens or links.
	if err := store.Import(ctx, &buf); err != nil {
		t.Fatalf("self Import failed: %v", err)
	}

	after, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if after.VocabSize != before.VocabSize {
		t.Errorf("VocabSize changed from %d to %d", before.VocabSize, after.VocabSize)
	}
	if after.TransitionCount != before.TransitionCount {
		t.Errorf("TransitionCount changed from %d to %d", before.TransitionCount, after.TransitionCount)
	}
	if after.TotalFrequency != 2*before.TotalFrequency {
		t.Errorf("TotalFrequency = %d, want %d", after.TotalFrequency, 2*before.TotalFrequency)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	_, store := setupTestStore(t)
	err := store.Import(context.Background(), bytes.NewReader([]byte("not json at all")))
	if err == nil {
		t.Error("expected an error importing malformed JSON")
	}
}
