// Package storetest provides the conformance tests every store.Store
// implementation must pass.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/etnz/fintrack/store"
)

type doc struct {
	ID        string `json:"_id"`
	AccountID string `json:"accountId"`
	Date      string `json:"date"`
	Balance   string `json:"balance"`
}

func ids(t *testing.T, raws []json.RawMessage) []string {
	t.Helper()
	var list []string
	for _, raw := range raws {
		var d doc
		if err := json.Unmarshal(raw, &d); err != nil {
			t.Fatalf("json.Unmarshal(%s) error = %v", raw, err)
		}
		list = append(list, d.ID)
	}
	slices.Sort(list)
	return list
}

// Run runs the conformance tests against stores returned by open. Each call
// to open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()
	seed := func(t *testing.T, s store.Store) {
		t.Helper()
		docs := []doc{
			{ID: "a/2020-01-01", AccountID: "a", Date: "2020-01-01", Balance: "1"},
			{ID: "a/2020-01-05", AccountID: "a", Date: "2020-01-05", Balance: "2.5"},
			{ID: "b/2020-01-03", AccountID: "b", Date: "2020-01-03", Balance: "-3"},
			{ID: "c/2020-02-01", AccountID: "c", Date: "2020-02-01", Balance: "4"},
		}
		if err := store.InsertAll(ctx, s, "dayLedgers", docs); err != nil {
			t.Fatalf("InsertAll() error = %v", err)
		}
	}

	t.Run("find with queries", func(t *testing.T) {
		s := open(t)
		seed(t, s)
		testCases := []struct {
			name string
			q    store.Query
			want []string
		}{
			{"all", store.All(), []string{"a/2020-01-01", "a/2020-01-05", "b/2020-01-03", "c/2020-02-01"}},
			{"from", store.All().From("date", "2020-01-03"), []string{"a/2020-01-05", "b/2020-01-03", "c/2020-02-01"}},
			{"until", store.All().Until("date", "2020-01-03"), []string{"a/2020-01-01", "b/2020-01-03"}},
			{"between and in", store.All().Between("date", "2020-01-02", "2020-01-31").In("accountId", "a", "c"), []string{"a/2020-01-05"}},
			{"eq", store.All().Eq("_id", "b/2020-01-03"), []string{"b/2020-01-03"}},
			{"empty in", store.All().In("accountId"), nil},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				raws, err := s.Find(ctx, "dayLedgers", tc.q)
				if err != nil {
					t.Fatalf("Find() error = %v", err)
				}
				if got := ids(t, raws); !slices.Equal(got, tc.want) {
					t.Errorf("Find() = %v, want %v", got, tc.want)
				}
			})
		}
	})

	t.Run("documents round trip", func(t *testing.T) {
		s := open(t)
		seed(t, s)
		got, err := store.FindOne[doc](ctx, s, "dayLedgers", store.All().Eq("_id", "a/2020-01-05"))
		if err != nil {
			t.Fatalf("FindOne() error = %v", err)
		}
		want := doc{ID: "a/2020-01-05", AccountID: "a", Date: "2020-01-05", Balance: "2.5"}
		if got != want {
			t.Errorf("FindOne() = %v, want %v", got, want)
		}
	})

	t.Run("find one not found", func(t *testing.T) {
		s := open(t)
		_, err := store.FindOne[doc](ctx, s, "dayLedgers", store.All())
		if !isNotFound(err) {
			t.Errorf("FindOne() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		seed(t, s)
		n, err := s.Delete(ctx, "dayLedgers", store.All().From("date", "2020-01-03"))
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if n != 3 {
			t.Errorf("Delete() = %d, want 3", n)
		}
		raws, err := s.Find(ctx, "dayLedgers", store.All())
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if got, want := ids(t, raws), []string{"a/2020-01-01"}; !slices.Equal(got, want) {
			t.Errorf("Find() after Delete() = %v, want %v", got, want)
		}
	})

	t.Run("replace", func(t *testing.T) {
		s := open(t)
		seed(t, s)
		q := store.All().In("accountId", "a").From("date", "2020-01-02")
		docs := []doc{
			{ID: "a/2020-01-02", AccountID: "a", Date: "2020-01-02", Balance: "7"},
			{ID: "a/2020-01-09", AccountID: "a", Date: "2020-01-09", Balance: "8"},
		}
		if err := store.ReplaceAll(ctx, s, "dayLedgers", q, docs); err != nil {
			t.Fatalf("ReplaceAll() error = %v", err)
		}
		raws, err := s.Find(ctx, "dayLedgers", store.All())
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		want := []string{"a/2020-01-01", "a/2020-01-02", "a/2020-01-09", "b/2020-01-03", "c/2020-02-01"}
		if got := ids(t, raws); !slices.Equal(got, want) {
			t.Errorf("Find() after ReplaceAll() = %v, want %v", got, want)
		}
	})

	t.Run("collections are independent", func(t *testing.T) {
		s := open(t)
		seed(t, s)
		raws, err := s.Find(ctx, "dayBalances", store.All())
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(raws) != 0 {
			t.Errorf("Find(dayBalances) = %d documents, want 0", len(raws))
		}
	})
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
