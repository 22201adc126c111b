package pinecone

import (
	"context"
	"testing"
)

func TestMemoryRecordStoreSearchAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore("")
	err := store.UpsertRecords(ctx, DefaultNamespace, []Record{
		{ID: "a_0", Fields: map[string]any{"chunk_text": "grace period of thirty days", "document_id": "a"}},
		{ID: "a_1", Fields: map[string]any{"chunk_text": "maternity benefits waiting period", "document_id": "a"}},
		{ID: "b_0", Fields: map[string]any{"chunk_text": "grace period for premium payment", "document_id": "b"}},
	})
	if err != nil {
		t.Fatalf("UpsertRecords: %v", err)
	}

	hits, err := store.SearchRecords(ctx, DefaultNamespace, SearchRequest{Text: "grace period", TopK: 5, Fields: []string{"chunk_text", "document_id"}})
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(hits) != 3 || hits[0].Score != 1 {
		t.Fatalf("hits: got=%+v", hits)
	}

	scoped, err := store.SearchRecords(ctx, DefaultNamespace, SearchRequest{
		Text:   "grace period",
		TopK:   5,
		Filter: map[string]any{"document_id": map[string]any{"$in": []any{"b"}}},
	})
	if err != nil {
		t.Fatalf("scoped search: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ID != "b_0" {
		t.Fatalf("scoped: got=%+v", scoped)
	}

	if err := store.DeleteByFilter(ctx, DefaultNamespace, map[string]any{"document_id": map[string]any{"$in": []any{"a"}}}); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	if got := store.Len(DefaultNamespace); got != 1 {
		t.Fatalf("Len after delete: want=1 got=%d", got)
	}
	if err := store.DeleteByFilter(ctx, DefaultNamespace, nil); err == nil {
		t.Fatalf("expected error for empty delete filter")
	}
}

func TestMemoryRecordStoreRejectsUnknownOperator(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore("")
	_ = store.UpsertRecords(ctx, "ns", []Record{{ID: "x", Fields: map[string]any{"document_id": "x"}}})
	_, err := store.SearchRecords(ctx, "ns", SearchRequest{Text: "q", Filter: map[string]any{"document_id": map[string]any{"$gt": 1}}})
	if err == nil {
		t.Fatalf("expected unsupported operator error")
	}
}
