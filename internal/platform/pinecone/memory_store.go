package pinecone

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// MemoryRecordStore is an in-process RecordStore that scores records by term
// overlap with the query. It backs VECTOR_PROVIDER=memory for local runs and tests.
type MemoryRecordStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Record
	textField  string
}

func NewMemoryRecordStore(textField string) *MemoryRecordStore {
	if textField == "" {
		textField = "chunk_text"
	}
	return &MemoryRecordStore{namespaces: map[string]map[string]Record{}, textField: textField}
}

func (m *MemoryRecordStore) UpsertRecords(ctx context.Context, namespace string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	if ns == nil {
		ns = map[string]Record{}
		m.namespaces[namespace] = ns
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record id required")
		}
		fields := make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			fields[k] = v
		}
		ns[r.ID] = Record{ID: r.ID, Fields: fields}
	}
	return nil
}

func (m *MemoryRecordStore) SearchRecords(ctx context.Context, namespace string, req SearchRequest) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := terms(req.Text)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []Hit
	for id, r := range m.namespaces[namespace] {
		ok, err := matchesFilter(r.Fields, req.Filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		text, _ := r.Fields[m.textField].(string)
		hits = append(hits, Hit{ID: id, Score: overlapScore(query, terms(text)), Fields: pickFields(r.Fields, req.Fields)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if req.TopK > 0 && len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return hits, nil
}

func (m *MemoryRecordStore) DeleteByFilter(ctx context.Context, namespace string, filter map[string]any) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete filter required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.namespaces[namespace] {
		ok, err := matchesFilter(r.Fields, filter)
		if err != nil {
			return err
		}
		if ok {
			delete(m.namespaces[namespace], id)
		}
	}
	return nil
}

// Len reports how many records a namespace holds.
func (m *MemoryRecordStore) Len(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.namespaces[namespace])
}

// matchesFilter supports field equality, $eq, $ne and $in.
func matchesFilter(fields map[string]any, filter map[string]any) (bool, error) {
	for key, cond := range filter {
		val := fields[key]
		ops, isOps := cond.(map[string]any)
		if !isOps {
			if !sameValue(val, cond) {
				return false, nil
			}
			continue
		}
		for op, arg := range ops {
			switch op {
			case "$eq":
				if !sameValue(val, arg) {
					return false, nil
				}
			case "$ne":
				if sameValue(val, arg) {
					return false, nil
				}
			case "$in":
				found := false
				for _, candidate := range toAnySlice(arg) {
					if sameValue(val, candidate) {
						found = true
						break
					}
				}
				if !found {
					return false, nil
				}
			default:
				return false, fmt.Errorf("memory store: unsupported filter operator %s", op)
			}
		}
	}
	return true, nil
}

func toAnySlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func sameValue(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func pickFields(fields map[string]any, want []string) map[string]any {
	out := map[string]any{}
	if len(want) == 0 {
		for k, v := range fields {
			out[k] = v
		}
		return out
	}
	for _, k := range want {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

func terms(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[w] = struct{}{}
	}
	return out
}

// overlapScore is the share of query terms present in the record, in [0,1].
func overlapScore(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hit := 0
	for w := range query {
		if _, ok := doc[w]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(query))
}
