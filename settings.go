package fintrack

import (
	"errors"
	"fmt"

	"github.com/etnz/fintrack/date"
)

// Collections of the document store.
const (
	AccountsCollection          = "accounts"
	AccountCategoriesCollection = "accountCategories"
	TransactionsCollection      = "transactions"
	ForexRatesCollection        = "forexRates"
	StockPricesCollection       = "stockPrices"
	DayLedgersCollection        = "dayLedgers"
	DayBalancesCollection       = "dayBalances"
	MonthBalancesCollection     = "monthBalances"
	MonthPeriodsCollection      = "monthPeriods"
	QuarterPeriodsCollection    = "quarterPeriods"
	YearPeriodsCollection       = "yearPeriods"
)

// Collections lists every collection name.
var Collections = []string{
	AccountsCollection, AccountCategoriesCollection, TransactionsCollection,
	ForexRatesCollection, StockPricesCollection,
	DayLedgersCollection, DayBalancesCollection, MonthBalancesCollection,
	MonthPeriodsCollection, QuarterPeriodsCollection, YearPeriodsCollection,
}

// PeriodCollection returns the collection holding periods of type t.
func PeriodCollection(t PeriodType) string {
	switch t {
	case QuarterPeriod:
		return QuarterPeriodsCollection
	case YearPeriod:
		return YearPeriodsCollection
	default:
		return MonthPeriodsCollection
	}
}

// Settings are the tenant wide parameters of the engine.
type Settings struct {
	// ReferenceCurrency is the currency every aggregate is expressed in.
	ReferenceCurrency string
	// BaseCurrency is the pivot of forex rates: its rate is always 1.
	BaseCurrency string
	// OpeningDate is the first day modeled.
	OpeningDate date.Date
	// CashCategoryID is the account category used for cash flow. When empty,
	// the category with the lowest order is used.
	CashCategoryID string
}

// Validate checks the settings.
func (s Settings) Validate() error {
	var errs []error
	if err := ValidateCurrency(s.ReferenceCurrency); err != nil {
		errs = append(errs, fmt.Errorf("reference currency: %w", err))
	}
	if err := ValidateCurrency(s.BaseCurrency); err != nil {
		errs = append(errs, fmt.Errorf("base currency: %w", err))
	}
	if s.OpeningDate.IsZero() {
		errs = append(errs, errors.New("opening date is required"))
	}
	return errors.Join(errs...)
}
