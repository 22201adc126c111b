package app

import (
	"context"
	"errors"
	"testing"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/pinecone"
)

func TestInstrumentRecordStorePassThrough(t *testing.T) {
	inner := &fakeRecordStore{}
	store := instrumentRecordStore("pinecone", inner)
	if store == nil {
		t.Fatalf("instrumentRecordStore: expected non-nil wrapper")
	}

	if err := store.UpsertRecords(context.Background(), "ns", []pinecone.Record{{ID: "c1"}}); err != nil {
		t.Fatalf("UpsertRecords: %v", err)
	}
	hits, err := store.SearchRecords(context.Background(), "ns", pinecone.SearchRequest{Text: "q", TopK: 2})
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "c1" {
		t.Fatalf("SearchRecords: got=%+v", hits)
	}
	if err := store.DeleteByFilter(context.Background(), "ns", map[string]any{"document_id": "d1"}); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	if inner.upsertCalls != 1 || inner.searchCalls != 1 || inner.deleteCalls != 1 {
		t.Fatalf("unexpected call counts: upsert=%d search=%d delete=%d", inner.upsertCalls, inner.searchCalls, inner.deleteCalls)
	}
}

func TestInstrumentRecordStoreErrorPassThrough(t *testing.T) {
	want := errors.New("delete failed")
	store := instrumentRecordStore("qdrant", &fakeRecordStore{deleteErr: want})
	err := store.DeleteByFilter(context.Background(), "ns", nil)
	if !errors.Is(err, want) {
		t.Fatalf("DeleteByFilter: expected %v, got=%v", want, err)
	}
}

func TestInstrumentRecordStoreNil(t *testing.T) {
	if store := instrumentRecordStore("memory", nil); store != nil {
		t.Fatalf("instrumentRecordStore(nil): want nil got=%T", store)
	}
}

type fakeRecordStore struct {
	upsertCalls int
	searchCalls int
	deleteCalls int

	deleteErr error
}

func (f *fakeRecordStore) UpsertRecords(_ context.Context, _ string, _ []pinecone.Record) error {
	f.upsertCalls++
	return nil
}

func (f *fakeRecordStore) SearchRecords(_ context.Context, _ string, _ pinecone.SearchRequest) ([]pinecone.Hit, error) {
	f.searchCalls++
	return []pinecone.Hit{{ID: "c1", Score: 0.9}}, nil
}

func (f *fakeRecordStore) DeleteByFilter(_ context.Context, _ string, _ map[string]any) error {
	f.deleteCalls++
	return f.deleteErr
}
