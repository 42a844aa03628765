package fintrack

import (
	"fmt"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

// PeriodType is the length of a Period.
type PeriodType string

const (
	MonthPeriod   PeriodType = "month"
	QuarterPeriod PeriodType = "quarter"
	YearPeriod    PeriodType = "year"
)

// Period returns the calendar period of t.
func (t PeriodType) Period() date.Period {
	switch t {
	case QuarterPeriod:
		return date.Quarterly
	case YearPeriod:
		return date.Yearly
	default:
		return date.Monthly
	}
}

// ParsePeriodType parses "month", "quarter" or "year" (or "monthly", "quarterly", "yearly").
func ParsePeriodType(s string) (PeriodType, error) {
	p, err := date.ParsePeriod(s)
	if err != nil {
		return "", err
	}
	switch p {
	case date.Monthly:
		return MonthPeriod, nil
	case date.Quarterly:
		return QuarterPeriod, nil
	case date.Yearly:
		return YearPeriod, nil
	default:
		return "", fmt.Errorf("no %s periods, want month, quarter or year", p)
	}
}

// BookingRef is an income or expense booking listed in a period.
type BookingRef struct {
	TransactionID             string          `json:"transactionId"`
	Date                      date.Date       `json:"date"`
	Note                      string          `json:"note,omitempty"`
	Currency                  string          `json:"currency"`
	Amount                    decimal.Decimal `json:"amount"`
	AmountInReferenceCurrency decimal.Decimal `json:"amountInReferenceCurrency"`
}

// CategoryTotal lists the bookings of an income or expense category.
type CategoryTotal struct {
	Bookings []BookingRef    `json:"bookings"`
	Total    decimal.Decimal `json:"total"`
}

// CategorySection totals income or expenses per category, in the reference currency.
type CategorySection struct {
	Categories map[string]CategoryTotal `json:"categories"`
	Total      decimal.Decimal          `json:"total"`
}

func newCategorySection() CategorySection {
	return CategorySection{Categories: make(map[string]CategoryTotal)}
}

func (s *CategorySection) add(categoryID string, ref BookingRef) {
	c := s.Categories[categoryID]
	c.Bookings = append(c.Bookings, ref)
	c.Total = c.Total.Add(ref.AmountInReferenceCurrency)
	s.Categories[categoryID] = c
	s.Total = s.Total.Add(ref.AmountInReferenceCurrency)
}

func (s *CategorySection) merge(o CategorySection) {
	for _, id := range sortedKeys(o.Categories) {
		oc := o.Categories[id]
		c := s.Categories[id]
		c.Bookings = append(c.Bookings, oc.Bookings...)
		c.Total = c.Total.Add(oc.Total)
		s.Categories[id] = c
	}
	s.Total = s.Total.Add(o.Total)
}

// ValueSection is the profit or loss from holding value, in the reference
// currency. The same per-account results are grouped several ways; every
// grouping sums to Total.
type ValueSection struct {
	Stocks            map[string]decimal.Decimal `json:"stocks"`
	Currencies        map[string]decimal.Decimal `json:"currencies"`
	ValuatedAccounts  map[string]decimal.Decimal `json:"valuatedAccounts"`
	AccountCategories map[string]decimal.Decimal `json:"accountCategories"`
	Accounts          map[string]decimal.Decimal `json:"accounts"`
	Types             map[string]decimal.Decimal `json:"types"`
	Subtypes          map[string]decimal.Decimal `json:"subtypes"`
	Total             decimal.Decimal            `json:"total"`
}

func newValueSection() ValueSection {
	return ValueSection{
		Stocks:            make(map[string]decimal.Decimal),
		Currencies:        make(map[string]decimal.Decimal),
		ValuatedAccounts:  make(map[string]decimal.Decimal),
		AccountCategories: make(map[string]decimal.Decimal),
		Accounts:          make(map[string]decimal.Decimal),
		Types:             make(map[string]decimal.Decimal),
		Subtypes:          make(map[string]decimal.Decimal),
	}
}

// add records the profit or loss of account a.
func (v *ValueSection) add(a Account, pl decimal.Decimal) {
	switch {
	case a.Type == Valuated:
		v.ValuatedAccounts[a.ID] = v.ValuatedAccounts[a.ID].Add(pl)
	case a.Unit.Kind == StockUnit:
		v.Stocks[a.Unit.StockID] = v.Stocks[a.Unit.StockID].Add(pl)
	default:
		v.Currencies[a.Unit.Currency] = v.Currencies[a.Unit.Currency].Add(pl)
	}
	v.AccountCategories[a.CategoryID] = v.AccountCategories[a.CategoryID].Add(pl)
	v.Accounts[a.ID] = v.Accounts[a.ID].Add(pl)
	v.Types[a.valueType()] = v.Types[a.valueType()].Add(pl)
	v.Subtypes[a.valueSubtype()] = v.Subtypes[a.valueSubtype()].Add(pl)
	v.Total = v.Total.Add(pl)
}

func (v *ValueSection) merge(o ValueSection) {
	mergeSums(v.Stocks, o.Stocks)
	mergeSums(v.Currencies, o.Currencies)
	mergeSums(v.ValuatedAccounts, o.ValuatedAccounts)
	mergeSums(v.AccountCategories, o.AccountCategories)
	mergeSums(v.Accounts, o.Accounts)
	mergeSums(v.Types, o.Types)
	mergeSums(v.Subtypes, o.Subtypes)
	v.Total = v.Total.Add(o.Total)
}

func mergeSums(dst, src map[string]decimal.Decimal) {
	for k, v := range src {
		dst[k] = dst[k].Add(v)
	}
}

// TransferLine is the profit or loss of a transfer across units.
type TransferLine struct {
	Date         date.Date       `json:"date"`
	Note         string          `json:"note,omitempty"`
	ProfitOrLoss decimal.Decimal `json:"profitOrLoss"`
}

// TransferSection lists transfers across units by transaction id.
type TransferSection struct {
	Transactions map[string]TransferLine `json:"transactions"`
	Total        decimal.Decimal          `json:"total"`
}

func newTransferSection() TransferSection {
	return TransferSection{Transactions: make(map[string]TransferLine)}
}

// EntryKind is the origin of a profit or loss entry.
type EntryKind string

const (
	IncomeEntry   EntryKind = "income"
	ExpenseEntry  EntryKind = "expense"
	ValueEntry    EntryKind = "value"
	TransferEntry EntryKind = "transfer"
)

// Entry is one line of the profits or losses lists. Amount is positive.
type Entry struct {
	Kind   EntryKind       `json:"kind"`
	ID     string          `json:"id,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// Period is the profit and loss statement of a month, a quarter or a year,
// in the reference currency.
type Period struct {
	ID                   string          `json:"_id"`
	Type                 PeriodType      `json:"type"`
	Start                date.Date       `json:"start"`
	Income               CategorySection `json:"income"`
	Expenses             CategorySection `json:"expenses"`
	ValueProfitOrLoss    ValueSection    `json:"valueProfitOrLoss"`
	TransferProfitOrLoss TransferSection `json:"transferProfitOrLoss"`
	Profits              []Entry         `json:"profits"`
	Losses               []Entry         `json:"losses"`
	ProfitOrLoss         decimal.Decimal `json:"profitOrLoss"`
	CashFlow             decimal.Decimal `json:"cashFlow"`
}

func newPeriod(t PeriodType, day date.Date) Period {
	r := t.Period().Range(day)
	return Period{
		ID:                   r.Identifier(),
		Type:                 t,
		Start:                r.From,
		Income:               newCategorySection(),
		Expenses:             newCategorySection(),
		ValueProfitOrLoss:    newValueSection(),
		TransferProfitOrLoss: newTransferSection(),
	}
}

// Range returns the days covered by p.
func (p Period) Range() date.Range { return p.Type.Period().Range(p.Start) }

// close computes the derived fields: profit or loss and the entry lists.
func (p *Period) close() {
	p.ProfitOrLoss = p.Income.Total.
		Sub(p.Expenses.Total).
		Add(p.ValueProfitOrLoss.Total).
		Add(p.TransferProfitOrLoss.Total)

	p.Profits, p.Losses = []Entry{}, []Entry{}
	for _, id := range sortedKeys(p.Income.Categories) {
		p.Profits = append(p.Profits, Entry{Kind: IncomeEntry, ID: id, Amount: p.Income.Categories[id].Total})
	}
	for _, id := range sortedKeys(p.Expenses.Categories) {
		p.Losses = append(p.Losses, Entry{Kind: ExpenseEntry, ID: id, Amount: p.Expenses.Categories[id].Total})
	}
	for _, id := range sortedKeys(p.ValueProfitOrLoss.Types) {
		switch v := p.ValueProfitOrLoss.Types[id]; {
		case v.IsPositive():
			p.Profits = append(p.Profits, Entry{Kind: ValueEntry, ID: id, Amount: v})
		case v.IsNegative():
			p.Losses = append(p.Losses, Entry{Kind: ValueEntry, ID: id, Amount: v.Neg()})
		}
	}
	switch v := p.TransferProfitOrLoss.Total; {
	case v.IsPositive():
		p.Profits = append(p.Profits, Entry{Kind: TransferEntry, Amount: v})
	case v.IsNegative():
		p.Losses = append(p.Losses, Entry{Kind: TransferEntry, Amount: v.Neg()})
	}
}
