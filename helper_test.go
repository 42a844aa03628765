package fintrack

import (
	"github.com/etnz/fintrack/date"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
)

// dec is a helper for tests to create decimals from literals.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// day is a helper for tests to create dates from literals.
func day(s string) date.Date { return date.MustParse(s) }

// cmpOpts compares decimals by value ("1.50" equals "1.5"), dates as values,
// and nil slices or maps as empty ones.
var cmpOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b date.Date) bool { return a == b }),
}

// currencyAccount returns a tracked account in currency, opened on 2020-01-01.
func currencyAccount(id, currency, category string) Account {
	return Account{
		ID:          id,
		Type:        Tracked,
		Unit:        CurrencyOf(currency),
		CategoryID:  category,
		OpeningDate: date.New(2020, 1, 1),
	}
}

// rateTable builds a Rates from "currency", "date", "rate" triplets.
func rateTable(base string, triplets ...string) *Rates {
	var list []ForexRate
	for i := 0; i+2 < len(triplets); i += 3 {
		list = append(list, ForexRate{Currency: triplets[i], Date: day(triplets[i+1]), Rate: dec(triplets[i+2])})
	}
	r, err := NewRates(base, list)
	if err != nil {
		panic(err)
	}
	return r
}

// noPrices is a PriceProvider without any price.
var noPrices, _ = NewStockPrices(nil)
