package store

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

// entry is a stored document with its decoded top-level fields.
type entry struct {
	raw    json.RawMessage
	fields map[string]any
}

// Memory is an in-process Store. Documents are kept in insertion order.
// Its zero value is not ready to use, call NewMemory.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]entry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]entry)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Find(ctx context.Context, collection string, q Query) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []json.RawMessage
	for _, e := range m.collections[collection] {
		if q.Match(e.fields) {
			docs = append(docs, slices.Clone(e.raw))
		}
	}
	return docs, nil
}

func (m *Memory) Insert(ctx context.Context, collection string, docs ...json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := newEntries(docs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], entries...)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection string, q Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delete(collection, q), nil
}

func (m *Memory) Replace(ctx context.Context, collection string, q Query, docs ...json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := newEntries(docs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delete(collection, q)
	m.collections[collection] = append(m.collections[collection], entries...)
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

// delete must be called with the lock held.
func (m *Memory) delete(collection string, q Query) int {
	before := len(m.collections[collection])
	m.collections[collection] = slices.DeleteFunc(m.collections[collection], func(e entry) bool {
		return q.Match(e.fields)
	})
	return before - len(m.collections[collection])
}

func newEntries(docs []json.RawMessage) ([]entry, error) {
	entries := make([]entry, 0, len(docs))
	for _, doc := range docs {
		fields, err := Fields(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{raw: slices.Clone(doc), fields: fields})
	}
	return entries, nil
}
