package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/fintrack"
	"github.com/etnz/fintrack/store"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type importCmd struct {
	collection string
	path       string
	replace    bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import documents into a collection" }
func (*importCmd) Usage() string {
	return `fintrack import -c <collection> [-path <jsonpath>] [-replace] <file.json|file.jsonl>

  Inserts the documents of a file into a collection. A .jsonl file holds one
  document per line. A .json file holds a document or an array of documents,
  optionally selected with a jsonpath expression, e.g. '$.data.rates'.
  Documents are checked against the collection schema before any insert.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Target collection")
	f.StringVar(&c.path, "path", "$", "jsonpath expression selecting the documents of a .json file")
	f.BoolVar(&c.replace, "replace", false, "Delete the whole collection before inserting")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 || !slices.Contains(fintrack.Collections, c.collection) {
		fmt.Fprintf(os.Stderr, "Usage: %s\nCollections: %v\n", c.Usage(), fintrack.Collections)
		return subcommands.ExitUsageError
	}
	filename := f.Arg(0)
	r, err := os.Open(filename)
	if err != nil {
		return fail("Error: %v", err)
	}
	defer r.Close()

	var docs []json.RawMessage
	if filepath.Ext(filename) == ".jsonl" {
		docs, err = readJSONL(r)
	} else {
		docs, err = readJSON(r, c.path)
	}
	if err != nil {
		return fail("Error reading %q: %v", filename, err)
	}
	if err := checkDocuments(c.collection, docs); err != nil {
		return fail("Error in %q: %v", filename, err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail("Error: %v", err)
	}
	defer a.close(ctx)

	if c.replace {
		err = a.store.Replace(ctx, c.collection, store.All(), docs...)
	} else {
		err = a.store.Insert(ctx, c.collection, docs...)
	}
	if err != nil {
		return fail("Error importing into %s: %v", c.collection, err)
	}
	a.logger.Info("documents imported", zap.String("collection", c.collection), zap.Int("documents", len(docs)), zap.Bool("replace", c.replace))
	return subcommands.ExitSuccess
}

// readJSONL reads one document per non empty line.
func readJSONL(r io.Reader) ([]json.RawMessage, error) {
	var docs []json.RawMessage
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64<<20)
	for i := 1; scanner.Scan(); i++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("line %d: invalid JSON", i)
		}
		docs = append(docs, bytes.Clone(line))
	}
	return docs, scanner.Err()
}

// readJSON reads a JSON document and returns the documents selected by path.
// A selection that is an array yields its elements.
func readJSON(r io.Reader, path string) ([]json.RawMessage, error) {
	dec := json.NewDecoder(r)
	// Numbers are kept verbatim: rates and amounts must not go through float64.
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		return nil, err
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", path, err)
	}
	list, ok := jval.([]any)
	if !ok {
		list = []any{jval}
	}
	docs := make([]json.RawMessage, 0, len(list))
	for i, v := range list {
		if _, ok := v.(map[string]any); !ok {
			return nil, fmt.Errorf("%s[%d] is not an object", path, i)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		docs = append(docs, raw)
	}
	return docs, nil
}

// checkDocuments decodes docs as the type of the collection and validates
// them when the type knows how.
func checkDocuments(collection string, docs []json.RawMessage) error {
	for i, raw := range docs {
		var err error
		switch collection {
		case fintrack.AccountsCollection:
			err = check[fintrack.Account](raw)
		case fintrack.AccountCategoriesCollection:
			err = check[fintrack.AccountCategory](raw)
		case fintrack.TransactionsCollection:
			err = check[fintrack.Transaction](raw)
		case fintrack.ForexRatesCollection:
			err = check[fintrack.ForexRate](raw)
		case fintrack.StockPricesCollection:
			err = check[fintrack.StockPrice](raw)
		default:
			err = fmt.Errorf("%s is derived, run 'fintrack recalc' instead", collection)
		}
		if err != nil {
			return fmt.Errorf("document %d: %w", i+1, err)
		}
	}
	return nil
}

func check[T any](raw json.RawMessage) error {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if v, ok := any(doc).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}
