package fintrack

import (
	"errors"
	"testing"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

func TestProjectDayBalances(t *testing.T) {
	a := currencyAccount("a", "CHF", "cash")
	u := currencyAccount("u", "USD", "cash")
	u.OpeningDate, u.ClosingDate, u.OpeningBalance = day("2020-01-03"), day("2020-01-05"), dec("10")
	accounts := []Account{a, u}

	ledgers := []DayLedger{
		{ID: "a/2020-01-02", AccountID: "a", Date: day("2020-01-02"), Change: dec("100"), Balance: dec("100")},
		{ID: "a/2020-01-04", AccountID: "a", Date: day("2020-01-04"), Change: dec("-50"), Balance: dec("50")},
		{ID: "u/2020-01-04", AccountID: "u", Date: day("2020-01-04"), Change: dec("20"), Balance: dec("30")},
	}
	var triplets []string
	for d := range date.NewRange(day("2020-01-01"), day("2020-01-06")).Days() {
		triplets = append(triplets, "USD", d.String(), "0.5")
	}
	conv := Converter{Rates: rateTable("CHF", triplets...), Prices: noPrices}

	got, err := ProjectDayBalances(newDayBalances(day("2019-12-31")), ledgers, accounts, day("2020-01-01"), day("2020-01-06"), conv, "CHF")
	if err != nil {
		t.Fatalf("ProjectDayBalances() error = %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("ProjectDayBalances() returned %d days, want 6", len(got))
	}

	type balance struct{ native, ref string }
	want := []map[string]balance{
		{"a": {"0", "0"}},
		{"a": {"100", "100"}},
		{"a": {"100", "100"}, "u": {"10", "20"}},
		{"a": {"50", "50"}, "u": {"30", "60"}},
		{"a": {"50", "50"}, "u": {"30", "60"}},
		{"a": {"50", "50"}},
	}
	for i, d := range got {
		if d.ID != d.Date.String() {
			t.Errorf("day %d: ID = %q, want %q", i, d.ID, d.Date)
		}
		if len(d.ByAccount) != len(want[i]) {
			t.Errorf("%s: %d accounts, want %d", d.Date, len(d.ByAccount), len(want[i]))
		}
		for id, w := range want[i] {
			b := d.ByAccount[id]
			if !b.BalanceInAccountCurrency.Equal(dec(w.native)) || !b.BalanceInReferenceCurrency.Equal(dec(w.ref)) {
				t.Errorf("%s[%s] = %v / %v, want %s / %s", d.Date, id, b.BalanceInAccountCurrency, b.BalanceInReferenceCurrency, w.native, w.ref)
			}
		}
	}

	// Balance continuity: balance(d+1) = balance(d) + ledger change on d+1.
	changes := make(map[string]decimal.Decimal)
	for _, l := range ledgers {
		changes[l.ID] = l.Change
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		for id, b := range cur.ByAccount {
			p, ok := prev.ByAccount[id]
			if !ok {
				continue
			}
			want := p.BalanceInAccountCurrency.Add(changes[dayLedgerID(id, cur.Date)])
			if !b.BalanceInAccountCurrency.Equal(want) {
				t.Errorf("%s[%s] = %v, want continuity %v", cur.Date, id, b.BalanceInAccountCurrency, want)
			}
		}
	}
}

func TestProjectDayBalances_Base(t *testing.T) {
	a := currencyAccount("a", "CHF", "cash")
	base := newDayBalances(day("2020-01-31"))
	base.ByAccount["a"] = AccountBalance{BalanceInAccountCurrency: dec("500"), BalanceInReferenceCurrency: dec("500")}
	conv := Converter{Rates: rateTable("CHF"), Prices: noPrices}

	got, err := ProjectDayBalances(base, nil, []Account{a}, day("2020-02-01"), day("2020-02-02"), conv, "CHF")
	if err != nil {
		t.Fatalf("ProjectDayBalances() error = %v", err)
	}
	for _, d := range got {
		if b := d.ByAccount["a"]; !b.BalanceInAccountCurrency.Equal(dec("500")) {
			t.Errorf("%s[a] = %v, want 500 from base", d.Date, b.BalanceInAccountCurrency)
		}
	}
	if got, err := ProjectDayBalances(base, nil, []Account{a}, day("2020-02-02"), day("2020-02-01"), conv, "CHF"); err != nil || len(got) != 0 {
		t.Errorf("ProjectDayBalances(empty window) = %v, %v, want nothing", got, err)
	}
}

func TestProjectDayBalances_MissingRate(t *testing.T) {
	u := currencyAccount("u", "USD", "cash")
	u.OpeningBalance = dec("10")
	conv := Converter{Rates: rateTable("CHF", "USD", "2020-01-01", "0.5"), Prices: noPrices}
	_, err := ProjectDayBalances(newDayBalances(day("2019-12-31")), nil, []Account{u}, day("2020-01-01"), day("2020-01-02"), conv, "CHF")
	if !errors.Is(err, ErrMissingRate) {
		t.Errorf("ProjectDayBalances() error = %v, want ErrMissingRate", err)
	}
}
