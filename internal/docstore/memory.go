package docstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store used in tests and local development.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Document
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]Document)}
}

// Add inserts a document into a collection.
func (m *Memory) Add(collection string, doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], doc)
}

func (m *Memory) QueryByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, doc := range m.collections[collection] {
		if doc.Fields[field] == value {
			out = append(out, doc)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) GetByID(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, doc := range m.collections[collection] {
		if doc.ID == id {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

func (m *Memory) QueryByComposite(ctx context.Context, collection, field1 string, value1 any, field2 string, value2 any, limit int) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, doc := range m.collections[collection] {
		if doc.Fields[field1] == value1 && doc.Fields[field2] == value2 {
			out = append(out, doc)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) All(ctx context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document, len(m.collections[collection]))
	copy(docs, m.collections[collection])
	return docs, nil
}
