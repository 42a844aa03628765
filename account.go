package fintrack

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

// AccountType tells how an account's value changes.
type AccountType string

const (
	// Tracked accounts change only through bookings; their value in the
	// reference currency also moves with exchange rates and stock prices.
	Tracked AccountType = "tracked"
	// Valuated accounts (real estate, pension) are re-estimated through
	// appreciation and depreciation bookings.
	Valuated AccountType = "valuated"
)

// otherValueType groups accounts without a value type or subtype.
const otherValueType = "other"

// AccountBalance is a balance in the account's unit and in the reference currency.
type AccountBalance struct {
	BalanceInAccountCurrency   decimal.Decimal `json:"balanceInAccountCurrency"`
	BalanceInReferenceCurrency decimal.Decimal `json:"balanceInReferenceCurrency"`
}

// Account is a place where value is held.
type Account struct {
	ID             string          `json:"_id"`
	Name           string          `json:"name,omitempty"`
	Type           AccountType     `json:"type"`
	Unit           Unit            `json:"unit"`
	CategoryID     string          `json:"categoryId"`
	ValueTypeID    string          `json:"valueTypeId,omitempty"`
	ValueSubtypeID string          `json:"valueSubtypeId,omitempty"`
	GroupID        string          `json:"groupId,omitempty"`
	OpeningDate    date.Date       `json:"openingDate"`
	ClosingDate    date.Date       `json:"closingDate"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	// CurrentBalance is a snapshot of yesterday's balance, refreshed by each run.
	CurrentBalance *AccountBalance `json:"currentBalance,omitempty"`
}

// IsOpen reports whether the account is open on day. Unset bounds are open.
func (a Account) IsOpen(day date.Date) bool {
	if !a.OpeningDate.IsZero() && a.OpeningDate.After(day) {
		return false
	}
	if !a.ClosingDate.IsZero() && a.ClosingDate.Before(day) {
		return false
	}
	return true
}

// valueType returns the account's value type, "other" when unset.
func (a Account) valueType() string { return cmp.Or(a.ValueTypeID, otherValueType) }

// valueSubtype returns the account's value subtype, "other" when unset.
func (a Account) valueSubtype() string { return cmp.Or(a.ValueSubtypeID, otherValueType) }

// Validate checks the account definition.
func (a Account) Validate() error {
	var errs []error
	if a.ID == "" {
		errs = append(errs, errors.New("account without id"))
	}
	switch a.Type {
	case Tracked:
	case Valuated:
		if a.Unit.Kind != CurrencyUnit {
			errs = append(errs, fmt.Errorf("valuated account %q must be denominated in a currency", a.ID))
		}
	default:
		errs = append(errs, fmt.Errorf("account %q has unknown type %q", a.ID, a.Type))
	}
	if err := a.Unit.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("account %q: %w", a.ID, err))
	}
	if a.CategoryID == "" {
		errs = append(errs, fmt.Errorf("account %q without category", a.ID))
	}
	if !a.OpeningDate.IsZero() && !a.ClosingDate.IsZero() && a.ClosingDate.Before(a.OpeningDate) {
		errs = append(errs, fmt.Errorf("account %q closes before it opens", a.ID))
	}
	return errors.Join(errs...)
}

// CategoryType tells whether a category holds assets or liabilities.
type CategoryType string

const (
	Asset     CategoryType = "asset"
	Liability CategoryType = "liability"
)

// AccountCategory groups accounts for display and aggregation.
type AccountCategory struct {
	ID    string       `json:"_id"`
	Name  string       `json:"name,omitempty"`
	Type  CategoryType `json:"type"`
	Order int          `json:"order"`
	// CurrentBalance is a snapshot of yesterday's total in the reference currency.
	CurrentBalance *decimal.Decimal `json:"currentBalance,omitempty"`
}

// cashCategory returns the category with the lowest order, ties broken by id.
func cashCategory(categories []AccountCategory) string {
	if len(categories) == 0 {
		return ""
	}
	c := slices.MinFunc(categories, func(a, b AccountCategory) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})
	return c.ID
}

// roster indexes accounts by id.
type roster map[string]Account

func newRoster(accounts []Account) roster {
	r := make(roster, len(accounts))
	for _, a := range accounts {
		r[a.ID] = a
	}
	return r
}

// get returns the account or ErrUnknownAccount.
func (r roster) get(id string) (Account, error) {
	a, ok := r[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownAccount, id)
	}
	return a, nil
}

// sorted returns the accounts ordered by id.
func (r roster) sorted() []Account {
	list := make([]Account, 0, len(r))
	for _, a := range r {
		list = append(list, a)
	}
	slices.SortFunc(list, func(a, b Account) int { return cmp.Compare(a.ID, b.ID) })
	return list
}
