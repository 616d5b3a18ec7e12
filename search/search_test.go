package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func mustIndex(t *testing.T, idx *Index, doc Document) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := idx.IndexMessage(ctx, doc); err != nil {
		t.Fatalf("IndexMessage: %v", err)
	}
}

func mustCommit(t *testing.T, idx *Index) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestIndexAndSearch(t *testing.T) {
	idx := openTestIndex(t)

	mustIndex(t, idx, Document{ChatID: 100, MessageID: 1, Timestamp: 1000, Content: "hello from the bridge"})
	mustIndex(t, idx, Document{ChatID: 100, MessageID: 2, Timestamp: 2000, Content: "completely unrelated text"})
	mustCommit(t, idx)

	results, err := idx.Search(100, nil, "bridge", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].MessageID != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].Timestamp != 1000 {
		t.Fatalf("unexpected timestamp: %+v", results[0])
	}
}

func TestSearchScopedByChat(t *testing.T) {
	idx := openTestIndex(t)

	mustIndex(t, idx, Document{ChatID: 100, MessageID: 1, Content: "apples"})
	mustIndex(t, idx, Document{ChatID: 200, MessageID: 2, Content: "apples"})
	mustCommit(t, idx)

	results, err := idx.Search(100, nil, "apples", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].MessageID != 1 {
		t.Fatalf("expected only chat 100's message, got %+v", results)
	}
}

func TestSearchScopedByTopic(t *testing.T) {
	idx := openTestIndex(t)

	mustIndex(t, idx, Document{ChatID: 100, TopicID: 5, MessageID: 1, Content: "bananas"})
	mustIndex(t, idx, Document{ChatID: 100, TopicID: 6, MessageID: 2, Content: "bananas"})
	mustCommit(t, idx)

	topic := int32(5)
	results, err := idx.Search(100, &topic, "bananas", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].MessageID != 1 {
		t.Fatalf("expected only topic 5's message, got %+v", results)
	}
}

func TestSearchPaginationCursor(t *testing.T) {
	idx := openTestIndex(t)

	for i := int32(1); i <= 3; i++ {
		mustIndex(t, idx, Document{ChatID: 100, MessageID: i, Content: "cherries"})
	}
	mustCommit(t, idx)

	firstPage, err := idx.Search(100, nil, "cherries", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(firstPage) != 3 {
		t.Fatalf("expected 3 results, got %d", len(firstPage))
	}
	// Results are newest-first (message_id DESC), so the first page's last
	// entry is message id 1.
	cursor := firstPage[len(firstPage)-1].MessageID

	nextPage, err := idx.Search(100, nil, "cherries", &cursor, 10)
	if err != nil {
		t.Fatalf("Search with cursor: %v", err)
	}
	if len(nextPage) != 0 {
		t.Fatalf("expected no results past the last message id, got %+v", nextPage)
	}
}

func TestSearchNoKeywordReturnsAllInChat(t *testing.T) {
	idx := openTestIndex(t)

	mustIndex(t, idx, Document{ChatID: 100, MessageID: 1, Content: "first"})
	mustIndex(t, idx, Document{ChatID: 100, MessageID: 2, Content: "second"})
	mustCommit(t, idx)

	results, err := idx.Search(100, nil, "", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results with no keyword filter, got %+v", results)
	}
}
