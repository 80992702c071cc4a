package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and for local runs
// without a Couchbase cluster. Filter semantics match CouchbaseStore.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[Kind]map[string]memEntry
	casSeq uint64
}

type memEntry struct {
	body []byte
	cas  Cas
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Kind]map[string]memEntry)}
}

func (s *MemoryStore) bucket(kind Kind) map[string]memEntry {
	b, ok := s.data[kind]
	if !ok {
		b = make(map[string]memEntry)
		s.data[kind] = b
	}
	return b
}

// readBucket never allocates, so it is safe under the read lock
func (s *MemoryStore) readBucket(kind Kind) map[string]memEntry {
	return s.data[kind]
}

func (s *MemoryStore) nextCas() Cas {
	s.casSeq++
	return Cas(s.casSeq)
}

// Get retrieves a document by id
func (s *MemoryStore) Get(ctx context.Context, kind Kind, id string, out interface{}) error {
	_, err := s.GetWithCAS(ctx, kind, id, out)
	return err
}

// GetWithCAS retrieves a document and its CAS token
func (s *MemoryStore) GetWithCAS(ctx context.Context, kind Kind, id string, out interface{}) (Cas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.readBucket(kind)[id]
	if !ok {
		return 0, ErrNotFound
	}
	if err := json.Unmarshal(entry.body, out); err != nil {
		return 0, fmt.Errorf("decode %s/%s: %w", kind, id, err)
	}
	return entry.cas, nil
}

// Insert stores a new document, failing if the key exists
func (s *MemoryStore) Insert(ctx context.Context, kind Kind, id string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucket(kind)
	if _, ok := b[id]; ok {
		return ErrAlreadyExists
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, id, err)
	}
	b[id] = memEntry{body: body, cas: s.nextCas()}
	return nil
}

// Upsert stores or overwrites a document
func (s *MemoryStore) Upsert(ctx context.Context, kind Kind, id string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, id, err)
	}
	s.bucket(kind)[id] = memEntry{body: body, cas: s.nextCas()}
	return nil
}

// Replace overwrites a document only if the CAS token is still current
func (s *MemoryStore) Replace(ctx context.Context, kind Kind, id string, doc interface{}, cas Cas) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucket(kind)
	entry, ok := b[id]
	if !ok {
		return ErrNotFound
	}
	if entry.cas != cas {
		return ErrCASMismatch
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, id, err)
	}
	b[id] = memEntry{body: body, cas: s.nextCas()}
	return nil
}

// Remove deletes a document by id
func (s *MemoryStore) Remove(ctx context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucket(kind)
	if _, ok := b[id]; !ok {
		return ErrNotFound
	}
	delete(b, id)
	return nil
}

// Find evaluates the query against all documents of the kind
func (s *MemoryStore) Find(ctx context.Context, kind Kind, q Query) ([]Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type matched struct {
		doc    Doc
		fields map[string]interface{}
	}

	var results []matched
	for id, entry := range s.readBucket(kind) {
		fields := make(map[string]interface{})
		if err := json.Unmarshal(entry.body, &fields); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", kind, id, err)
		}
		if matchFilter(fields, id, q.Filter) {
			results = append(results, matched{
				doc:    Doc{ID: id, Body: append(json.RawMessage(nil), entry.body...)},
				fields: fields,
			})
		}
	}

	if q.Sort.Field != "" {
		field, desc := q.Sort.Field, q.Sort.Desc
		sort.SliceStable(results, func(i, j int) bool {
			a := lookupField(results[i].fields, results[i].doc.ID, field)
			b := lookupField(results[j].fields, results[j].doc.ID, field)
			cmp, ok := compareValues(a, b)
			if !ok {
				// Documents without the sort field go last
				return a != nil && b == nil
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(results) {
			results = nil
		} else {
			results = results[q.Offset:]
		}
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	docs := make([]Doc, 0, len(results))
	for _, m := range results {
		docs = append(docs, m.doc)
	}
	return docs, nil
}

// Count returns the number of documents matching the filter
func (s *MemoryStore) Count(ctx context.Context, kind Kind, f Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for id, entry := range s.readBucket(kind) {
		fields := make(map[string]interface{})
		if err := json.Unmarshal(entry.body, &fields); err != nil {
			return 0, fmt.Errorf("decode %s/%s: %w", kind, id, err)
		}
		if matchFilter(fields, id, f) {
			total++
		}
	}
	return total, nil
}

func lookupField(fields map[string]interface{}, id, field string) interface{} {
	if field == "_id" {
		return id
	}
	return fields[field]
}

func matchFilter(fields map[string]interface{}, id string, f Filter) bool {
	for _, c := range f.All {
		if !matchCond(fields, id, c) {
			return false
		}
	}
	if len(f.Any) > 0 {
		hit := false
		for _, c := range f.Any {
			if matchCond(fields, id, c) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func matchCond(fields map[string]interface{}, id string, c Cond) bool {
	actual := lookupField(fields, id, c.Field)
	expected := condValue(c.Value)

	switch c.Op {
	case OpNe:
		if actual == nil {
			// Missing fields satisfy !=, matching the N1QL compilation
			return true
		}
		cmp, ok := compareValues(actual, expected)
		return !ok || cmp != 0
	case OpIn:
		for _, item := range toSlice(expected) {
			if cmp, ok := compareValues(actual, condValue(item)); ok && cmp == 0 {
				return true
			}
		}
		return false
	case OpContains:
		as, aok := actual.(string)
		es, eok := expected.(string)
		return aok && eok && strings.Contains(strings.ToLower(as), strings.ToLower(es))
	case OpGte:
		cmp, ok := compareValues(actual, expected)
		return ok && cmp >= 0
	case OpLte:
		cmp, ok := compareValues(actual, expected)
		return ok && cmp <= 0
	default:
		cmp, ok := compareValues(actual, expected)
		return ok && cmp == 0
	}
}

func toSlice(v interface{}) []interface{} {
	switch vv := v.(type) {
	case []interface{}:
		return vv
	case []string:
		out := make([]interface{}, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

// compareValues orders two JSON-decoded values of the same shape.
// RFC 3339 timestamps compare correctly as strings.
func compareValues(a, b interface{}) (int, bool) {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			if av == bv {
				return 0, true
			}
			return 1, true
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1, true
			case av.After(bv):
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	}
	return 0, false
}
