package app

import (
	"context"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/pinecone"
)

type instrumentedRecordStore struct {
	provider string
	inner    pinecone.RecordStore
	metrics  *observability.Metrics
}

func instrumentRecordStore(provider string, inner pinecone.RecordStore) pinecone.RecordStore {
	if inner == nil {
		return nil
	}
	return &instrumentedRecordStore{
		provider: provider,
		inner:    inner,
		metrics:  observability.Current(),
	}
}

func (s *instrumentedRecordStore) UpsertRecords(ctx context.Context, namespace string, records []pinecone.Record) error {
	start := time.Now()
	err := s.inner.UpsertRecords(ctx, namespace, records)
	s.observe("upsert_records", err, time.Since(start))
	return err
}

func (s *instrumentedRecordStore) SearchRecords(ctx context.Context, namespace string, req pinecone.SearchRequest) ([]pinecone.Hit, error) {
	start := time.Now()
	out, err := s.inner.SearchRecords(ctx, namespace, req)
	s.observe("search_records", err, time.Since(start))
	return out, err
}

func (s *instrumentedRecordStore) DeleteByFilter(ctx context.Context, namespace string, filter map[string]any) error {
	start := time.Now()
	err := s.inner.DeleteByFilter(ctx, namespace, filter)
	s.observe("delete_by_filter", err, time.Since(start))
	return err
}

func (s *instrumentedRecordStore) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorOp(s.provider, operation, status, dur)
}
