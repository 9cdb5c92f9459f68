package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory Store with the same single-key atomicity
// guarantees as the gorm implementation. It backs unit tests and local
// development without a database.
type MemStore struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
}

func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]json.RawMessage)}
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) Get(ctx context.Context, key string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{Key: key, Body: cloneBody(body), UpdatedAt: time.Now().UTC()}, nil
}

func (s *MemStore) Put(ctx context.Context, key string, body json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = cloneBody(body)
	return nil
}

func (s *MemStore) PutIfAbsent(ctx context.Context, key string, body json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[key]; ok {
		return ErrAlreadyExists
	}
	s.docs[key] = cloneBody(body)
	return nil
}

func (s *MemStore) UpdateIf(ctx context.Context, key string, mutate Mutation, pred Predicate) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	if pred != nil && !pred(current) {
		return nil, ErrPredicateFailed
	}

	next, err := mutate(cloneBody(current))
	if err != nil {
		return nil, err
	}
	s.docs[key] = cloneBody(next)
	return &Document{Key: key, Body: cloneBody(next), UpdatedAt: time.Now().UTC()}, nil
}

func (s *MemStore) Increment(ctx context.Context, key string, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[key]
	if !ok {
		return 0, ErrNotFound
	}

	doc := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(current))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("malformed document %s: %w", key, err)
	}

	var value int64
	switch v := doc[field].(type) {
	case nil:
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %s of %s is not an integer: %w", field, key, err)
		}
		value = parsed
	default:
		return 0, fmt.Errorf("field %s of %s is not numeric", field, key)
	}

	value += delta
	doc[field] = value

	next, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	s.docs[key] = next
	return value, nil
}

func (s *MemStore) FindByField(ctx context.Context, field string, value any) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *Document
	for key, body := range s.docs {
		doc := map[string]any{}
		if err := json.Unmarshal(body, &doc); err != nil {
			continue
		}
		if fmt.Sprintf("%v", doc[field]) != fmt.Sprintf("%v", value) || doc[field] == nil {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("field %s has multiple documents with value %v", field, value)
		}
		found = &Document{Key: key, Body: cloneBody(body), UpdatedAt: time.Now().UTC()}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, key)
	return nil
}

// Len reports the number of stored documents. Test helper.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func cloneBody(body json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out
}
