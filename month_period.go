package fintrack

import (
	"fmt"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

// MonthInput is what a month Period is computed from.
type MonthInput struct {
	// Month is any day of the month.
	Month date.Date
	// End is the last day covered, at most the end of the month.
	End date.Date
	// Transactions outside [start of Month, End] are ignored.
	Transactions []Transaction
	Accounts     []Account
	// OpeningDate is the first day modeled.
	OpeningDate date.Date
	// BroughtIn holds the native balance of accounts on the day before the
	// opening date, from their ledgers. Accounts without one bring in their
	// opening balance.
	BroughtIn map[string]decimal.Decimal
	// StartBalances are the balances of the day before the month. They are
	// empty when that day precedes the opening date.
	StartBalances DayBalances
	// EndBalances are the balances of End.
	EndBalances DayBalances
	// Previous and Current are the month balances used for the cash flow.
	// Previous is the zero value for the first month.
	Previous, Current MonthBalances
	CashCategoryID    string
	ReferenceCurrency string
	Converter         Converter
}

// CalculateMonthPeriod computes the profit and loss statement of a month.
func CalculateMonthPeriod(in MonthInput) (Period, error) {
	p := newPeriod(MonthPeriod, in.Month)
	window := date.NewRange(p.Start, in.End)
	r := newRoster(in.Accounts)
	ref := in.ReferenceCurrency

	var txs []Transaction
	for _, tx := range in.Transactions {
		if window.Contains(tx.Date) {
			txs = append(txs, tx)
		}
	}
	sortTransactions(txs)

	// Income and expenses.
	for _, tx := range txs {
		for _, b := range tx.Bookings {
			switch b := b.(type) {
			case Income:
				bref, err := bookingRef(tx, b.Currency, b.Amount, b.Note, ref, in.Converter)
				if err != nil {
					return Period{}, err
				}
				p.Income.add(b.CategoryID, bref)
			case Expense:
				bref, err := bookingRef(tx, b.Currency, b.Amount, b.Note, ref, in.Converter)
				if err != nil {
					return Period{}, err
				}
				p.Expenses.add(b.CategoryID, bref)
			case Charge, Deposit, Appreciation, Depreciation:
			default:
				return Period{}, fmt.Errorf("unhandled booking type: %T", b)
			}
		}
	}

	// Value from tracked accounts exposed to forex or stock prices.
	transfers := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		for _, b := range tx.Bookings {
			id, unit, signed, ok := accountLeg(b)
			if !ok {
				continue
			}
			v, err := in.Converter.ConvertUnit(signed, unit, ref, tx.Date)
			if err != nil {
				return Period{}, fmt.Errorf("transaction %q: %w", tx.ID, err)
			}
			transfers[id] = transfers[id].Add(v)
		}
	}
	for _, a := range r.sorted() {
		if a.Type != Tracked || (a.Unit.Kind == CurrencyUnit && a.Unit.Currency == ref) {
			continue
		}
		start, inStart := in.StartBalances.ByAccount[a.ID]
		end, inEnd := in.EndBalances.ByAccount[a.ID]
		moved, inTransfers := transfers[a.ID]
		if !inStart && !inEnd && !inTransfers {
			continue
		}
		if opened := date.Max(a.OpeningDate, in.OpeningDate); !inStart && window.Contains(opened) {
			// What the account holds when it starts being modeled is brought
			// in, not earned. It is valued on that day.
			native, ok := in.BroughtIn[a.ID]
			if !ok {
				native = a.OpeningBalance
			}
			v, err := in.Converter.ConvertUnit(native, a.Unit, ref, opened)
			if err != nil {
				return Period{}, fmt.Errorf("opening balance of %q: %w", a.ID, err)
			}
			start.BalanceInReferenceCurrency = v
		}
		pl := end.BalanceInReferenceCurrency.Sub(start.BalanceInReferenceCurrency).Sub(moved)
		p.ValueProfitOrLoss.add(a, pl)
	}

	// Value from valuated accounts.
	for _, tx := range txs {
		a, pl, ok, err := revaluation(tx, r, ref, in.Converter)
		if err != nil {
			return Period{}, err
		}
		if ok {
			p.ValueProfitOrLoss.add(a, pl)
		}
	}

	// Transfers across units.
	for _, tx := range txs {
		pl, ok, err := transferProfitOrLoss(tx, ref, in.Converter)
		if err != nil {
			return Period{}, err
		}
		if !ok {
			continue
		}
		p.TransferProfitOrLoss.Transactions[tx.ID] = TransferLine{Date: tx.Date, Note: tx.Note, ProfitOrLoss: pl}
		p.TransferProfitOrLoss.Total = p.TransferProfitOrLoss.Total.Add(pl)
	}

	p.CashFlow = in.Current.AccountCategories[in.CashCategoryID].Sub(in.Previous.AccountCategories[in.CashCategoryID])
	p.close()
	return p, nil
}

func bookingRef(tx Transaction, currency string, amount decimal.Decimal, note, ref string, conv Converter) (BookingRef, error) {
	v, err := conv.Convert(amount, currency, ref, tx.Date)
	if err != nil {
		return BookingRef{}, fmt.Errorf("transaction %q: %w", tx.ID, err)
	}
	return BookingRef{
		TransactionID:             tx.ID,
		Date:                      tx.Date,
		Note:                      note,
		Currency:                  currency,
		Amount:                    amount,
		AmountInReferenceCurrency: v,
	}, nil
}

// revaluation returns the valuated account of tx and its appreciation minus
// depreciation in the reference currency. ok is false when tx has no
// revaluation leg.
func revaluation(tx Transaction, r roster, ref string, conv Converter) (Account, decimal.Decimal, bool, error) {
	var (
		delta    decimal.Decimal
		found    bool
		accounts []Account
	)
	for _, b := range tx.Bookings {
		switch b := b.(type) {
		case Appreciation:
			delta, found = delta.Add(b.Amount), true
		case Depreciation:
			delta, found = delta.Sub(b.Amount), true
		case Charge, Deposit:
			id, _, _, _ := accountLeg(b)
			a, err := r.get(id)
			if err != nil {
				return Account{}, decimal.Zero, false, fmt.Errorf("transaction %q: %w", tx.ID, err)
			}
			if a.Type == Valuated {
				accounts = append(accounts, a)
			}
		case Income, Expense:
		default:
			return Account{}, decimal.Zero, false, fmt.Errorf("unhandled booking type: %T", b)
		}
	}
	if !found {
		return Account{}, decimal.Zero, false, nil
	}
	if len(accounts) != 1 {
		return Account{}, decimal.Zero, false, fmt.Errorf("%w: transaction %q revalues %d valuated accounts, want exactly 1", ErrMissingLeg, tx.ID, len(accounts))
	}
	a := accounts[0]
	pl, err := conv.Convert(delta, a.Unit.Currency, ref, tx.Date)
	if err != nil {
		return Account{}, decimal.Zero, false, fmt.Errorf("transaction %q: %w", tx.ID, err)
	}
	return a, pl, true, nil
}

// transferProfitOrLoss returns the reference currency value lost or gained by
// a transaction moving value across distinct units. ok is false when the
// charges and deposits of tx involve a single unit.
//
// It is the value of the deposits, minus the value of the charges, plus the
// expenses (fees) minus the incomes booked along.
func transferProfitOrLoss(tx Transaction, ref string, conv Converter) (decimal.Decimal, bool, error) {
	units := make(map[string]bool)
	for _, b := range tx.Bookings {
		if _, unit, _, ok := accountLeg(b); ok {
			units[unit.Key()] = true
		}
	}
	if len(units) < 2 {
		return decimal.Zero, false, nil
	}
	pl := decimal.Zero
	for _, b := range tx.Bookings {
		var (
			v   decimal.Decimal
			err error
		)
		switch b := b.(type) {
		case Charge:
			v, err = conv.ConvertUnit(b.Amount.Neg(), b.Unit, ref, tx.Date)
		case Deposit:
			v, err = conv.ConvertUnit(b.Amount, b.Unit, ref, tx.Date)
		case Income:
			v, err = conv.Convert(b.Amount.Neg(), b.Currency, ref, tx.Date)
		case Expense:
			v, err = conv.Convert(b.Amount, b.Currency, ref, tx.Date)
		case Appreciation, Depreciation:
		default:
			return decimal.Zero, false, fmt.Errorf("unhandled booking type: %T", b)
		}
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("transaction %q: %w", tx.ID, err)
		}
		pl = pl.Add(v)
	}
	return pl, true, nil
}
