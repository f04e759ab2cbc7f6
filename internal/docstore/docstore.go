// Package docstore abstracts the document database behind the three
// read operations the chat pipeline needs: exact field match, fetch by
// id, and two-field composite match. No write path is exposed.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetByID when no document exists.
var ErrNotFound = errors.New("document not found")

// Document is one record: its id plus a field-to-value mapping.
type Document struct {
	ID     string
	Fields map[string]any
}

// String returns the named field as a string, or "" when absent or not
// a string.
func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Strings returns the named field as a string slice, tolerating both
// []string and []any encodings.
func (d Document) Strings(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Store is the read-only document database contract.
type Store interface {
	// QueryByField returns up to limit documents whose field equals value.
	QueryByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error)

	// GetByID fetches one document by id. Returns ErrNotFound on miss.
	GetByID(ctx context.Context, collection, id string) (Document, error)

	// QueryByComposite returns up to limit documents matching both
	// field/value pairs.
	QueryByComposite(ctx context.Context, collection, field1 string, value1 any, field2 string, value2 any, limit int) ([]Document, error)

	// All enumerates every document in a collection.
	All(ctx context.Context, collection string) ([]Document, error)
}
