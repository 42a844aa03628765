// Package store defines the document store the recalculation engine reads
// from and writes to, and ships the in-memory and JSONL implementations.
//
// Documents are JSON objects. A Query only ever looks at top-level string
// fields: dates are persisted as "YYYY-MM-DD" strings so that a
// lexicographic range is a chronological range.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrNotFound is returned when a single document was expected and none matched.
var ErrNotFound = errors.New("document not found")

// Store is a collection oriented document store.
type Store interface {
	// Find returns all documents of the collection matching q.
	Find(ctx context.Context, collection string, q Query) ([]json.RawMessage, error)
	// Insert adds documents to the collection.
	Insert(ctx context.Context, collection string, docs ...json.RawMessage) error
	// Delete removes all documents matching q and returns how many were removed.
	Delete(ctx context.Context, collection string, q Query) (int, error)
	// Replace deletes all documents matching q and inserts docs as one logical step.
	// Implementations make it atomic when the backend supports it.
	Replace(ctx context.Context, collection string, q Query, docs ...json.RawMessage) error
	// Close releases the backend resources.
	Close(ctx context.Context) error
}

// Range restricts a field to the inclusive range [From, To]. An empty bound is open.
type Range struct {
	Field    string
	From, To string
}

// In restricts a field to a set of values. An empty set matches nothing.
type In struct {
	Field  string
	Values []string
}

// Query is a conjunction of clauses. The zero Query matches every document.
type Query struct {
	Ranges []Range
	Ins    []In
}

// All returns a query matching every document.
func All() Query { return Query{} }

// Between returns a copy of q also restricting field to [from, to].
func (q Query) Between(field, from, to string) Query {
	q.Ranges = append(slices.Clone(q.Ranges), Range{Field: field, From: from, To: to})
	return q
}

// From returns a copy of q also restricting field to values >= from.
func (q Query) From(field, from string) Query { return q.Between(field, from, "") }

// Until returns a copy of q also restricting field to values <= to.
func (q Query) Until(field, to string) Query { return q.Between(field, "", to) }

// Eq returns a copy of q also restricting field to value.
func (q Query) Eq(field, value string) Query { return q.In(field, value) }

// In returns a copy of q also restricting field to one of values.
func (q Query) In(field string, values ...string) Query {
	q.Ins = append(slices.Clone(q.Ins), In{Field: field, Values: slices.Clone(values)})
	return q
}

// Match reports whether a document, given by its decoded top-level fields, matches q.
func (q Query) Match(fields map[string]any) bool {
	for _, r := range q.Ranges {
		v, ok := fields[r.Field].(string)
		if !ok {
			return false
		}
		if r.From != "" && v < r.From {
			return false
		}
		if r.To != "" && v > r.To {
			return false
		}
	}
	for _, in := range q.Ins {
		v, ok := fields[in.Field].(string)
		if !ok || !slices.Contains(in.Values, v) {
			return false
		}
	}
	return true
}

// Fields decodes the top-level fields of a JSON document.
func Fields(doc json.RawMessage) (map[string]any, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("document is not a json object: %w", err)
	}
	return fields, nil
}

// FindAll finds and decodes documents into T.
func FindAll[T any](ctx context.Context, s Store, collection string, q Query) ([]T, error) {
	raws, err := s.Find(ctx, collection, q)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", collection, err)
	}
	docs := make([]T, 0, len(raws))
	for _, raw := range raws {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("cannot decode %s document %s: %w", collection, raw, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FindOne returns the single document matching q, or ErrNotFound.
// If several documents match, the first one is returned.
func FindOne[T any](ctx context.Context, s Store, collection string, q Query) (T, error) {
	var zero T
	docs, err := FindAll[T](ctx, s, collection, q)
	if err != nil {
		return zero, err
	}
	if len(docs) == 0 {
		return zero, fmt.Errorf("%s: %w", collection, ErrNotFound)
	}
	return docs[0], nil
}

// Encode marshals docs to raw JSON documents.
func Encode[T any](docs []T) ([]json.RawMessage, error) {
	raws := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("cannot encode document: %w", err)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// InsertAll encodes and inserts docs.
func InsertAll[T any](ctx context.Context, s Store, collection string, docs []T) error {
	raws, err := Encode(docs)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", collection, err)
	}
	if len(raws) == 0 {
		return nil
	}
	if err := s.Insert(ctx, collection, raws...); err != nil {
		return fmt.Errorf("cannot write %s: %w", collection, err)
	}
	return nil
}

// ReplaceAll encodes docs and replaces every document matching q with them.
func ReplaceAll[T any](ctx context.Context, s Store, collection string, q Query, docs []T) error {
	raws, err := Encode(docs)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", collection, err)
	}
	if err := s.Replace(ctx, collection, q, raws...); err != nil {
		return fmt.Errorf("cannot replace %s: %w", collection, err)
	}
	return nil
}
