package docstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewBoltStore(path, log, DefaultMaxAge)
	if err != nil {
		t.Fatalf("failed to open bolt store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestBoltStore(t)

	in := makeDocs(5)
	if err := s.Store(ctx, in); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	docs, err := s.Retrieve(ctx)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(docs) != 5 {
		t.Fatalf("got %d docs, want 5", len(docs))
	}

	byID := make(map[string]ReferenceDocument, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}
	for _, want := range in {
		got, ok := byID[want.ID]
		if !ok {
			t.Errorf("document %s missing after round trip", want.ID)
			continue
		}
		if got.Title != want.Title || got.Content != want.Content {
			t.Errorf("document %s changed across round trip", want.ID)
		}
	}
}

func TestBoltStoreReplacesCorpus(t *testing.T) {
	ctx := context.Background()
	s := newTestBoltStore(t)

	if err := s.Store(ctx, makeDocs(5)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	replacement := []ReferenceDocument{{
		ID: "only", Title: "Only", Content: "only doc", UpdatedAt: time.Now(),
	}}
	if err := s.Store(ctx, replacement); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	docs, err := s.Retrieve(ctx)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "only" {
		t.Errorf("store did not replace the corpus wholesale: %v", docs)
	}
}

func TestBoltStoreClearAndStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestBoltStore(t)

	if ts, err := s.LastSync(ctx); err != nil || ts != nil {
		t.Errorf("fresh store should have nil last sync, got %v (%v)", ts, err)
	}

	if err := s.Store(ctx, makeDocs(2)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	st, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if st.DocumentCount != 2 || st.LastSyncAt == nil || st.IsStale {
		t.Errorf("unexpected status after store: %+v", st)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	st, err = s.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if st.DocumentCount != 0 || st.LastSyncAt != nil || !st.IsStale {
		t.Errorf("unexpected status after clear: %+v", st)
	}
}
