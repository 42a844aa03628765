package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// maxLineSize bounds a single document; day balances of large rosters are long lines.
const maxLineSize = 64 << 20

// JSONL is a Store persisting each collection in a "<collection>.jsonl" file,
// one document per line, in a directory. The layout stays human-readable and
// git-friendly, one directory per tenant.
//
// Every write rewrites the collection file through a temporary file and a
// rename, so Replace is atomic on a given collection.
type JSONL struct {
	dir string
	mu  sync.Mutex
}

// OpenJSONL opens (and creates if needed) a JSONL store rooted at dir.
func OpenJSONL(dir string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create store directory %q: %w", dir, err)
	}
	return &JSONL{dir: dir}, nil
}

var _ Store = (*JSONL)(nil)

func (s *JSONL) filename(collection string) string {
	return filepath.Join(s.dir, collection+".jsonl")
}

// fileLine structures a line from a collection file as the persistence layer represent them.
type fileLine struct {
	filename string
	i        int
	doc      json.RawMessage
}

// load reads all documents of a collection. A missing file is an empty collection.
func (s *JSONL) load(collection string) ([]fileLine, error) {
	filename := s.filename(collection)
	r, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open %q for reading: %w", filename, err)
	}
	defer r.Close()

	var list []fileLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	i := 0
	for scanner.Scan() {
		i++
		line := bytes.TrimSpace(scanner.Bytes())
		// Start simply ignoring empty lines.
		if len(line) == 0 {
			continue
		}
		list = append(list, fileLine{filename: filename, i: i, doc: bytes.Clone(line)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", filename, err)
	}
	return list, nil
}

// write replaces the collection file content with docs.
func (s *JSONL) write(collection string, docs []json.RawMessage) error {
	filename := s.filename(collection)
	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temporary file for %q: %w", filename, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, doc := range docs {
		var compact bytes.Buffer
		if err := json.Compact(&compact, doc); err != nil {
			tmp.Close()
			return fmt.Errorf("invalid document for %q: %w", filename, err)
		}
		compact.WriteByte('\n')
		if _, err := w.Write(compact.Bytes()); err != nil {
			tmp.Close()
			return fmt.Errorf("cannot write %q: %w", filename, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write %q: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot write %q: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("cannot replace %q: %w", filename, err)
	}
	return nil
}

// filter splits lines into the documents matching q and the others.
func filter(lines []fileLine, q Query) (matched, kept []json.RawMessage, err error) {
	for _, l := range lines {
		fields, err := Fields(l.doc)
		if err != nil {
			return nil, nil, fmt.Errorf("parse error %s:%v: %w", l.filename, l.i, err)
		}
		if q.Match(fields) {
			matched = append(matched, l.doc)
		} else {
			kept = append(kept, l.doc)
		}
	}
	return matched, kept, nil
}

func (s *JSONL) Find(ctx context.Context, collection string, q Query) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	matched, _, err := filter(lines, q)
	return matched, err
}

func (s *JSONL) Insert(ctx context.Context, collection string, docs ...json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, doc := range docs {
		if _, err := Fields(doc); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.load(collection)
	if err != nil {
		return err
	}
	all := make([]json.RawMessage, 0, len(lines)+len(docs))
	for _, l := range lines {
		all = append(all, l.doc)
	}
	return s.write(collection, append(all, docs...))
}

func (s *JSONL) Delete(ctx context.Context, collection string, q Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.load(collection)
	if err != nil {
		return 0, err
	}
	matched, kept, err := filter(lines, q)
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}
	return len(matched), s.write(collection, kept)
}

func (s *JSONL) Replace(ctx context.Context, collection string, q Query, docs ...json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, doc := range docs {
		if _, err := Fields(doc); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.load(collection)
	if err != nil {
		return err
	}
	_, kept, err := filter(lines, q)
	if err != nil {
		return err
	}
	return s.write(collection, append(kept, docs...))
}

func (s *JSONL) Close(context.Context) error { return nil }
