package fintrack

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

// MonthBalances is the state at the end of a month, in the reference currency.
type MonthBalances struct {
	ID                string                     `json:"_id"`
	Month             date.Date                  `json:"month"`
	AccountCategories map[string]decimal.Decimal `json:"accountCategories"`
	NetWorth          decimal.Decimal            `json:"netWorth"`
}

// monthID identifies a month as "YYYY-MM".
func monthID(day date.Date) string { return day.Format("2006-01") }

// AggregateMonthBalances keeps the last day of each month present in days and
// totals its reference currency balances per account category.
// Month is the first day of the month.
func AggregateMonthBalances(days []DayBalances, accounts []Account) ([]MonthBalances, error) {
	r := newRoster(accounts)
	days = slices.Clone(days)
	slices.SortFunc(days, func(a, b DayBalances) int { return a.Date.Compare(b.Date) })

	var months []MonthBalances
	for i, d := range days {
		if i+1 < len(days) && days[i+1].Date.StartOf(date.Monthly) == d.Date.StartOf(date.Monthly) {
			continue
		}
		m, err := monthBalances(d, r)
		if err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, nil
}

func monthBalances(d DayBalances, r roster) (MonthBalances, error) {
	month := d.Date.StartOf(date.Monthly)
	m := MonthBalances{
		ID:                monthID(month),
		Month:             month,
		AccountCategories: make(map[string]decimal.Decimal),
		NetWorth:          decimal.Zero,
	}
	for id, b := range d.ByAccount {
		a, err := r.get(id)
		if err != nil {
			return MonthBalances{}, fmt.Errorf("day balances of %s: %w", d.Date, err)
		}
		m.AccountCategories[a.CategoryID] = m.AccountCategories[a.CategoryID].Add(b.BalanceInReferenceCurrency)
		m.NetWorth = m.NetWorth.Add(b.BalanceInReferenceCurrency)
	}
	return m, nil
}

// categoryTotals sums the reference balances of d per category.
func categoryTotals(d DayBalances, categories []AccountCategory, r roster) (map[string]decimal.Decimal, error) {
	totals := make(map[string]decimal.Decimal, len(categories))
	for _, c := range categories {
		totals[c.ID] = decimal.Zero
	}
	for id, b := range d.ByAccount {
		a, err := r.get(id)
		if err != nil {
			return nil, err
		}
		totals[a.CategoryID] = totals[a.CategoryID].Add(b.BalanceInReferenceCurrency)
	}
	return totals, nil
}

// sortedKeys returns the keys of m in increasing order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp.Compare[string])
	return keys
}
