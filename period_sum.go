package fintrack

import (
	"fmt"
	"slices"

	"github.com/etnz/fintrack/date"
)

// SumPeriods sums month periods into the period of type t containing start.
//
// Totals and keyed breakdowns are summed key-wise and booking lists are
// concatenated in chronological order. Profits and losses are recomputed from
// the summed sections. A transaction id found in two months' transfers is
// ErrDuplicateTransfer. Months outside the period are ignored.
func SumPeriods(t PeriodType, start date.Date, months []Period) (Period, error) {
	p := newPeriod(t, start)
	window := p.Range()

	months = slices.Clone(months)
	slices.SortFunc(months, func(a, b Period) int { return a.Start.Compare(b.Start) })

	for _, m := range months {
		if !window.Contains(m.Start) {
			continue
		}
		p.Income.merge(m.Income)
		p.Expenses.merge(m.Expenses)
		p.ValueProfitOrLoss.merge(m.ValueProfitOrLoss)
		for _, id := range sortedKeys(m.TransferProfitOrLoss.Transactions) {
			if _, exists := p.TransferProfitOrLoss.Transactions[id]; exists {
				return Period{}, fmt.Errorf("%w: transaction %q in %s", ErrDuplicateTransfer, id, m.ID)
			}
			p.TransferProfitOrLoss.Transactions[id] = m.TransferProfitOrLoss.Transactions[id]
		}
		p.TransferProfitOrLoss.Total = p.TransferProfitOrLoss.Total.Add(m.TransferProfitOrLoss.Total)
		p.CashFlow = p.CashFlow.Add(m.CashFlow)
	}
	p.close()
	return p, nil
}
