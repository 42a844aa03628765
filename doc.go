// Package fintrack is the recalculation engine of a personal finance tracker.
//
// From accounts, transactions, historical forex rates and stock prices it
// derives, in strict dependency order:
//   - Day Ledgers: per account and day, the transaction lines, the net change
//     and the running balance in the account's own unit.
//   - Day Balances: per day, the balance of every open account, in its own
//     unit and in the reference currency.
//   - Month Balances: per month, the category totals and the net worth in the
//     reference currency.
//   - Periods: per month, quarter and year, the income, expenses, value and
//     transfer profit or loss, and the cash flow.
//
// All amounts are arbitrary precision decimals. Derived documents are
// persisted in a store.Store and are fully reproducible: a recalculation
// deletes everything from its start date onward and recomputes it.
//
// The Engine orchestrates a run. The individual steps (BuildDayLedgers,
// ProjectDayBalances, AggregateMonthBalances, CalculateMonthPeriod and
// SumPeriods) are pure functions usable on their own.
package fintrack
