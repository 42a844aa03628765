package fintrack

import (
	"fmt"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

// DayLedgerLine is one transaction as seen from an account.
type DayLedgerLine struct {
	TransactionID string `json:"transactionId"`
	Note          string `json:"note,omitempty"`
	// Bookings are the other legs of the transaction.
	Bookings Bookings        `json:"bookings"`
	Value    decimal.Decimal `json:"value"`
}

// DayLedger is the activity of one account on one day, in the account's unit.
type DayLedger struct {
	ID        string          `json:"_id"`
	AccountID string          `json:"accountId"`
	Date      date.Date       `json:"date"`
	Lines     []DayLedgerLine `json:"lines"`
	Change    decimal.Decimal `json:"change"`
	Balance   decimal.Decimal `json:"balance"`
}

// dayLedgerID returns the document id of an account's ledger on day.
func dayLedgerID(accountID string, day date.Date) string { return accountID + "/" + day.String() }

// BuildDayLedgers groups the transactions touching account by day and computes
// each day's change and running balance, starting from base.
//
// Transactions not touching the account are ignored. Each transaction must
// have exactly one Charge or Deposit on the account. Ledgers are returned in
// chronological order, lines within a day in transaction id order.
func BuildDayLedgers(account Account, txs []Transaction, base decimal.Decimal) ([]DayLedger, error) {
	txs = append([]Transaction(nil), txs...)
	sortTransactions(txs)

	var ledgers []DayLedger
	balance := base
	for _, tx := range txs {
		if !tx.touches(account.ID) {
			continue
		}
		line, err := ledgerLine(account.ID, tx)
		if err != nil {
			return nil, err
		}
		if n := len(ledgers); n == 0 || ledgers[n-1].Date != tx.Date {
			ledgers = append(ledgers, DayLedger{
				ID:        dayLedgerID(account.ID, tx.Date),
				AccountID: account.ID,
				Date:      tx.Date,
				Change:    decimal.Zero,
			})
		}
		l := &ledgers[len(ledgers)-1]
		l.Lines = append(l.Lines, line)
		l.Change = l.Change.Add(line.Value)
		balance = balance.Add(line.Value)
		l.Balance = balance
	}
	return ledgers, nil
}

// ledgerLine extracts the account's leg from tx.
func ledgerLine(accountID string, tx Transaction) (DayLedgerLine, error) {
	line := DayLedgerLine{TransactionID: tx.ID, Note: tx.Note, Bookings: Bookings{}}
	found := 0
	for _, b := range tx.Bookings {
		id, _, signed, ok := accountLeg(b)
		if ok && id == accountID {
			found++
			line.Value = signed
			continue
		}
		line.Bookings = append(line.Bookings, b)
	}
	switch found {
	case 0:
		return DayLedgerLine{}, fmt.Errorf("%w: transaction %q has no booking on account %q", ErrMissingLeg, tx.ID, accountID)
	case 1:
		return line, nil
	default:
		return DayLedgerLine{}, fmt.Errorf("%w: transaction %q has %d bookings on account %q, want 1", ErrInvalidTransaction, tx.ID, found, accountID)
	}
}
