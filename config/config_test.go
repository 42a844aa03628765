package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/fintrack"
	"github.com/etnz/fintrack/date"
	"github.com/etnz/fintrack/store"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	base := writeFile(t, "base.toml", `
reference_currency = "CHF"
base_currency = "USD"
opening_date = "2020-01-01"

[store]
driver = "mongo"
uri = "mongodb://localhost:27017"
database = "family"

[logging]
level = "debug"
`)
	local := writeFile(t, "local.toml", `
cash_category = "cash"

[store]
database = "family-test"
`)
	t.Setenv("FINTRACK_ADDR", ":9090")

	got, err := LoadConfig(base, filepath.Join(t.TempDir(), "missing.toml"), local)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := &Config{
		ReferenceCurrency: "CHF",
		BaseCurrency:      "USD",
		OpeningDate:       "2020-01-01",
		CashCategory:      "cash",
		Store: StoreConfig{
			Driver:    MongoDriver,
			Path:      ".fintrack",
			URI:       "mongodb://localhost:27017",
			Database:  "family-test",
			Namespace: "fintrack",
		},
		Server:  ServerConfig{Addr: ":9090"},
		Logging: LoggingConfig{Level: "debug"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}

	settings, err := got.Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	wantSettings := fintrack.Settings{
		ReferenceCurrency: "CHF",
		BaseCurrency:      "USD",
		OpeningDate:       date.New(2020, 1, 1),
		CashCategoryID:    "cash",
	}
	if settings != wantSettings {
		t.Errorf("Settings() = %v, want %v", settings, wantSettings)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("FINTRACK_OPENING_DATE", "2021-06-01")
	t.Setenv("FINTRACK_REFERENCE_CURRENCY", "JPY")
	t.Setenv("FINTRACK_STORE_DRIVER", "memory")

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got.OpeningDate != "2021-06-01" || got.ReferenceCurrency != "JPY" || got.Store.Driver != MemoryDriver {
		t.Errorf("LoadConfig() = %+v, want environment values", got)
	}
	s, err := got.OpenStore(t.Context())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if _, ok := s.(*store.Memory); !ok {
		t.Errorf("OpenStore() = %T, want *store.Memory", s)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{"no opening date", `reference_currency = "CHF"`, "opening date is required"},
		{"bad opening date", `opening_date = "01/02/2020"`, "invalid opening date"},
		{"unknown currency", "opening_date = \"2020-01-01\"\nreference_currency = \"XXQ\"", "reference currency"},
		{"unknown driver", "opening_date = \"2020-01-01\"\n[store]\ndriver = \"redis\"", `unknown store driver "redis"`},
		{"mongo without uri", "opening_date = \"2020-01-01\"\n[store]\ndriver = \"mongo\"", "store uri is required"},
		{"malformed", `opening_date = `, "failed to parse config file"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "fintrack.toml", tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("LoadConfig() error = %v, want it to contain %q", err, tc.want)
			}
		})
	}
}
