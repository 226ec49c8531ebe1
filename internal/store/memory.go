package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process backend used by tests and dev fixtures. It keeps
// documents in insertion order per collection.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]memEntry
}

type memEntry struct {
	id  string
	doc Document
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]memEntry)}
}

func (m *Memory) Query(_ context.Context, q Query) (Result, error) {
	m.mu.RLock()
	entries := m.collections[q.Collection]
	docs := make([]Document, len(entries))
	for i, e := range entries {
		docs[i] = e.doc
	}
	m.mu.RUnlock()
	return evaluate(docs, q), nil
}

func (m *Memory) Get(_ context.Context, collection, idField, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.collections[collection] {
		if e.id == id {
			return e.doc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
}

func (m *Memory) Insert(_ context.Context, collection, idField string, docs ...Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		id, _ := d.Lookup(idField)
		entry := memEntry{id: fmt.Sprint(id), doc: d}
		replaced := false
		for i, e := range m.collections[collection] {
			if e.id == entry.id {
				m.collections[collection][i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			m.collections[collection] = append(m.collections[collection], entry)
		}
	}
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }
