// Package surrealstore implements store.Store on SurrealDB, one database per
// tenant and one schemaless table per store collection.
//
// Each document is stored as a row {raw, f}: raw is the JSON document
// verbatim, f holds its top-level string fields for query push down.
package surrealstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/etnz/fintrack/store"
	"github.com/surrealdb/surrealdb.go"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds the connection settings.
type Config struct {
	Address   string // e.g. ws://localhost:8000/rpc
	Username  string
	Password  string
	Namespace string
	Database  string
}

// Store is a SurrealDB backed store.Store. Replace runs in a single
// transaction.
type Store struct {
	db      *surrealdb.DB
	mu      sync.Mutex
	defined map[string]bool
}

var _ store.Store = (*Store)(nil)

type row struct {
	Raw string `json:"raw"`
}

// Open connects, signs in and selects the namespace and database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}
	if _, err := db.SignIn(ctx, map[string]any{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}
	return &Store{db: db, defined: make(map[string]bool)}, nil
}

// table returns the table name of collection, defining the table on first use.
// SurrealDB v3 errors on querying non-existent tables.
func (s *Store) table(ctx context.Context, collection string) (string, error) {
	if !identifier.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defined[collection] {
		return collection, nil
	}
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", collection)
	if _, err := surrealdb.Query[any](ctx, s.db, sql, nil); err != nil {
		return "", fmt.Errorf("failed to define table %s: %w", collection, err)
	}
	s.defined[collection] = true
	return collection, nil
}

// where translates q into a WHERE clause and its variables.
func where(q store.Query) (string, map[string]any, error) {
	var conds []string
	vars := make(map[string]any)
	field := func(name string) (string, error) {
		if !identifier.MatchString(name) {
			return "", fmt.Errorf("invalid field name %q", name)
		}
		return "f.`" + name + "`", nil
	}
	for i, r := range q.Ranges {
		f, err := field(r.Field)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, fmt.Sprintf("type::is::string(%s)", f))
		if r.From != "" {
			conds = append(conds, fmt.Sprintf("%s >= $from%d", f, i))
			vars[fmt.Sprintf("from%d", i)] = r.From
		}
		if r.To != "" {
			conds = append(conds, fmt.Sprintf("%s <= $to%d", f, i))
			vars[fmt.Sprintf("to%d", i)] = r.To
		}
	}
	for i, in := range q.Ins {
		f, err := field(in.Field)
		if err != nil {
			return "", nil, err
		}
		values := in.Values
		if values == nil {
			values = []string{}
		}
		conds = append(conds, fmt.Sprintf("%s IN $in%d", f, i))
		vars[fmt.Sprintf("in%d", i)] = values
	}
	if len(conds) == 0 {
		return "", vars, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), vars, nil
}

// rows converts documents into table rows.
func rows(docs []json.RawMessage) ([]map[string]any, error) {
	list := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		fields, err := store.Fields(doc)
		if err != nil {
			return nil, err
		}
		f := make(map[string]any)
		for k, v := range fields {
			if s, ok := v.(string); ok {
				f[k] = s
			}
		}
		list = append(list, map[string]any{"raw": string(doc), "f": f})
	}
	return list, nil
}

func (s *Store) Find(ctx context.Context, collection string, q store.Query) ([]json.RawMessage, error) {
	tb, err := s.table(ctx, collection)
	if err != nil {
		return nil, err
	}
	cond, vars, err := where(q)
	if err != nil {
		return nil, err
	}
	results, err := surrealdb.Query[[]row](ctx, s.db, "SELECT raw FROM "+tb+cond, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	var docs []json.RawMessage
	for _, r := range (*results)[0].Result {
		docs = append(docs, json.RawMessage(r.Raw))
	}
	return docs, nil
}

func (s *Store) Insert(ctx context.Context, collection string, docs ...json.RawMessage) error {
	if len(docs) == 0 {
		return nil
	}
	tb, err := s.table(ctx, collection)
	if err != nil {
		return err
	}
	list, err := rows(docs)
	if err != nil {
		return err
	}
	if _, err := surrealdb.Query[any](ctx, s.db, "INSERT INTO "+tb+" $rows", map[string]any{"rows": list}); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, q store.Query) (int, error) {
	tb, err := s.table(ctx, collection)
	if err != nil {
		return 0, err
	}
	cond, vars, err := where(q)
	if err != nil {
		return 0, err
	}
	results, err := surrealdb.Query[[]row](ctx, s.db, "DELETE FROM "+tb+cond+" RETURN BEFORE", vars)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

func (s *Store) Replace(ctx context.Context, collection string, q store.Query, docs ...json.RawMessage) error {
	tb, err := s.table(ctx, collection)
	if err != nil {
		return err
	}
	cond, vars, err := where(q)
	if err != nil {
		return err
	}
	list, err := rows(docs)
	if err != nil {
		return err
	}
	sql := "BEGIN TRANSACTION;\nDELETE FROM " + tb + cond + ";\n"
	if len(list) > 0 {
		sql += "INSERT INTO " + tb + " $rows;\n"
		vars["rows"] = list
	}
	sql += "COMMIT TRANSACTION;"
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to replace in %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error { return s.db.Close(ctx) }
