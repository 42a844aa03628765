package fintrack

import (
	"fmt"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

// DayBalances is the balance of every open account at the end of a day.
type DayBalances struct {
	ID        string                    `json:"_id"`
	Date      date.Date                 `json:"date"`
	ByAccount map[string]AccountBalance `json:"byAccount"`
}

// newDayBalances returns empty balances for day.
func newDayBalances(day date.Date) DayBalances {
	return DayBalances{ID: day.String(), Date: day, ByAccount: make(map[string]AccountBalance)}
}

// ProjectDayBalances produces one DayBalances per day in [from, to].
//
// base holds the balances of the day before from (it may be empty). For each
// day and each open account, the native balance is the ledger balance when
// the account has a ledger that day, else the previous known balance (from
// base or an earlier ledger), else the account's opening balance. It is then converted to the reference
// currency on that day.
func ProjectDayBalances(base DayBalances, ledgers []DayLedger, accounts []Account, from, to date.Date, conv Converter, referenceCurrency string) ([]DayBalances, error) {
	byAccount := make(map[string]*date.History[decimal.Decimal])
	for _, l := range ledgers {
		h, ok := byAccount[l.AccountID]
		if !ok {
			h = new(date.History[decimal.Decimal])
			byAccount[l.AccountID] = h
		}
		h.Append(l.Date, l.Balance)
	}

	accounts = newRoster(accounts).sorted()
	last := make(map[string]decimal.Decimal, len(base.ByAccount))
	for id, b := range base.ByAccount {
		last[id] = b.BalanceInAccountCurrency
	}

	if from.After(to) {
		return nil, nil
	}
	var days []DayBalances
	for day := range date.NewRange(from, to).Days() {
		balances := newDayBalances(day)
		for _, a := range accounts {
			if h, ok := byAccount[a.ID]; ok {
				if v, ok := h.Get(day); ok {
					last[a.ID] = v
				}
			}
			if !a.IsOpen(day) {
				continue
			}
			native, ok := last[a.ID]
			if !ok {
				native = a.OpeningBalance
				if h, found := byAccount[a.ID]; found {
					if v, found := h.ValueAsOf(day); found {
						native = v
					}
				}
				last[a.ID] = native
			}
			ref, err := conv.ConvertUnit(native, a.Unit, referenceCurrency, day)
			if err != nil {
				return nil, fmt.Errorf("cannot value account %q on %s: %w", a.ID, day, err)
			}
			balances.ByAccount[a.ID] = AccountBalance{
				BalanceInAccountCurrency:   native,
				BalanceInReferenceCurrency: ref,
			}
		}
		days = append(days, balances)
	}
	return days, nil
}
