package fintrack

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

// Transaction is a set of booking legs happening on the same day.
type Transaction struct {
	ID       string    `json:"_id"`
	Date     date.Date `json:"date"`
	Note     string    `json:"note,omitempty"`
	Bookings Bookings  `json:"bookings"`
}

// touches reports whether the transaction has a Charge or Deposit on accountID.
func (tx Transaction) touches(accountID string) bool {
	for _, b := range tx.Bookings {
		if id, _, _, ok := accountLeg(b); ok && id == accountID {
			return true
		}
	}
	return false
}

// Validate checks the transaction against the account roster.
//
// A transaction has at least two legs with positive amounts. Charges and
// deposits reference existing accounts in the account's unit. Appreciation and
// depreciation require exactly one valuated account leg. When every leg is
// in the same currency, the legs sum to zero.
func (tx Transaction) Validate(accounts []Account) error {
	r := newRoster(accounts)
	var errs []error
	if tx.ID == "" {
		errs = append(errs, fmt.Errorf("%w: transaction without id", ErrInvalidTransaction))
	}
	if tx.Date.IsZero() {
		errs = append(errs, fmt.Errorf("%w: transaction %q without date", ErrInvalidTransaction, tx.ID))
	}
	if len(tx.Bookings) < 2 {
		errs = append(errs, fmt.Errorf("%w: transaction %q has %d bookings, want at least 2", ErrMissingLeg, tx.ID, len(tx.Bookings)))
	}

	currencies := make(map[string]bool)
	valuated := 0
	revaluation := false
	sum := decimal.Zero
	for i, b := range tx.Bookings {
		amount, err := amountOf(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !amount.IsPositive() {
			errs = append(errs, fmt.Errorf("%w: transaction %q booking #%d has non positive amount %s", ErrInvalidTransaction, tx.ID, i, amount))
		}
		signed, _ := signedAmount(b)
		sum = sum.Add(signed)

		switch b := b.(type) {
		case Charge, Deposit:
			id, unit, _, _ := accountLeg(b)
			a, err := r.get(id)
			if err != nil {
				errs = append(errs, fmt.Errorf("transaction %q: %w", tx.ID, err))
				continue
			}
			if unit != a.Unit {
				errs = append(errs, fmt.Errorf("%w: transaction %q books %s on account %q denominated in %s", ErrInvalidTransaction, tx.ID, unit, id, a.Unit))
			}
			if a.Type == Valuated {
				valuated++
			}
			if unit.Kind == StockUnit {
				currencies[unit.Key()] = true
			} else {
				currencies[unit.Currency] = true
			}
		case Income:
			if err := ValidateCurrency(b.Currency); err != nil {
				errs = append(errs, fmt.Errorf("%w: transaction %q: %w", ErrInvalidTransaction, tx.ID, err))
			}
			if b.CategoryID == "" {
				errs = append(errs, fmt.Errorf("%w: transaction %q income without category", ErrInvalidTransaction, tx.ID))
			}
			currencies[b.Currency] = true
		case Expense:
			if err := ValidateCurrency(b.Currency); err != nil {
				errs = append(errs, fmt.Errorf("%w: transaction %q: %w", ErrInvalidTransaction, tx.ID, err))
			}
			if b.CategoryID == "" {
				errs = append(errs, fmt.Errorf("%w: transaction %q expense without category", ErrInvalidTransaction, tx.ID))
			}
			currencies[b.Currency] = true
		case Appreciation, Depreciation:
			revaluation = true
		default:
			errs = append(errs, fmt.Errorf("unhandled booking type: %T", b))
		}
	}
	if revaluation && valuated != 1 {
		errs = append(errs, fmt.Errorf("%w: transaction %q revalues %d valuated accounts, want exactly 1", ErrMissingLeg, tx.ID, valuated))
	}
	if len(currencies) == 1 && !sum.IsZero() {
		errs = append(errs, fmt.Errorf("%w: transaction %q legs sum to %s", ErrUnbalanced, tx.ID, sum))
	}
	return errors.Join(errs...)
}

// sortTransactions orders transactions by date, then by id.
func sortTransactions(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
}
