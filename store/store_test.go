package store_test

import (
	"testing"

	"github.com/etnz/fintrack/store"
	"github.com/etnz/fintrack/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return store.NewMemory() })
}

func TestJSONL(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := store.OpenJSONL(t.TempDir())
		if err != nil {
			t.Fatalf("OpenJSONL() error = %v", err)
		}
		return s
	})
}
