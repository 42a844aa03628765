package renderer

import (
	"testing"

	"github.com/etnz/fintrack"
	"github.com/etnz/fintrack/date"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAmount(t *testing.T) {
	testCases := []struct {
		v        string
		currency string
		want     string
		signed   string
	}{
		{"0", "EUR", "0.00", "0.00"},
		{"1234567.891", "EUR", "1,234,567.89", "+1,234,567.89"},
		{"-1234.5", "CHF", "-1,234.50", "-1,234.50"},
		{"999", "EUR", "999.00", "+999.00"},
		{"1500.4", "JPY", "1,500", "+1,500"},
		{"0.001", "EUR", "0.00", "0.00"},
		{"12.3456", "KWD", "12.346", "+12.346"},
		{"12.345", "XXQ", "12.35", "+12.35"},
		{"-9876543.215", "USD", "-9,876,543.22", "-9,876,543.22"},
		{"-0.004", "EUR", "0.00", "0.00"},
	}
	for _, tc := range testCases {
		t.Run(tc.v+tc.currency, func(t *testing.T) {
			if got := amount(dec(tc.v), tc.currency); got != tc.want {
				t.Errorf("amount(%s, %s) = %q, want %q", tc.v, tc.currency, got, tc.want)
			}
			if got := signed(dec(tc.v), tc.currency); got != tc.signed {
				t.Errorf("signed(%s, %s) = %q, want %q", tc.v, tc.currency, got, tc.signed)
			}
		})
	}
}

func TestPeriodMarkdown(t *testing.T) {
	p := fintrack.Period{
		ID:    "2024-02",
		Type:  fintrack.MonthPeriod,
		Start: date.New(2024, 2, 1),
		Income: fintrack.CategorySection{
			Categories: map[string]fintrack.CategoryTotal{
				"salary": {
					Bookings: []fintrack.BookingRef{{
						TransactionID: "t1", Date: date.New(2024, 2, 25), Note: "February",
						Currency: "CHF", Amount: dec("5000"), AmountInReferenceCurrency: dec("5000"),
					}},
					Total: dec("5000"),
				},
			},
			Total: dec("5000"),
		},
		Expenses: fintrack.CategorySection{
			Categories: map[string]fintrack.CategoryTotal{
				"travel": {
					Bookings: []fintrack.BookingRef{{
						TransactionID: "t2", Date: date.New(2024, 2, 10), Note: "hotel | 2 nights",
						Currency: "EUR", Amount: dec("200"), AmountInReferenceCurrency: dec("190"),
					}},
					Total: dec("190"),
				},
			},
			Total: dec("190"),
		},
		ValueProfitOrLoss: fintrack.ValueSection{
			Currencies: map[string]decimal.Decimal{"EUR": dec("-12.5")},
			Accounts:   map[string]decimal.Decimal{"eur-savings": dec("-12.5")},
			Types:      map[string]decimal.Decimal{"other": dec("-12.5")},
			Total:      dec("-12.5"),
		},
		TransferProfitOrLoss: fintrack.TransferSection{
			Transactions: map[string]fintrack.TransferLine{},
		},
		Profits:      []fintrack.Entry{{Kind: fintrack.IncomeEntry, ID: "salary", Amount: dec("5000")}},
		Losses:       []fintrack.Entry{{Kind: fintrack.ExpenseEntry, ID: "travel", Amount: dec("190")}, {Kind: fintrack.ValueEntry, ID: "other", Amount: dec("12.5")}},
		ProfitOrLoss: dec("4797.5"),
		CashFlow:     dec("4810"),
	}

	want := `# Monthly Report 2024-02

From 2024-02-01 to 2024-02-29, amounts in CHF.

| | Amount |
|:---|---:|
| Income | 5,000.00 |
| Expenses | 190.00 |
| Value | -12.50 |
| Transfers | 0.00 |
| **Profit or Loss** | **+4,797.50** |
| Cash Flow | +4,810.00 |

## Income

| Category | Date | Note | Amount |
|:---|:---|:---|---:|
| salary | 2024-02-25 | February | 5,000.00 |
| **salary** | | | **5,000.00** |
| **Total** | | | **5,000.00** |

## Expenses

| Category | Date | Note | Amount |
|:---|:---|:---|---:|
| travel | 2024-02-10 | hotel \| 2 nights | 190.00 (200.00 EUR) |
| **travel** | | | **190.00** |
| **Total** | | | **190.00** |

## Value

| Type | Profit or Loss |
|:---|---:|
| other | -12.50 |

| Currency | Profit or Loss |
|:---|---:|
| EUR | -12.50 |

| Account | Profit or Loss |
|:---|---:|
| eur-savings | -12.50 |

Total: **-12.50**

## Profits

- income salary: 5,000.00

## Losses

- expense travel: 190.00
- value other: 12.50

`
	if diff := cmp.Diff(want, PeriodMarkdown(p, "CHF")); diff != "" {
		t.Errorf("PeriodMarkdown() mismatch (-want +got):\n%s", diff)
	}
}

func TestBalancesMarkdown(t *testing.T) {
	mb := fintrack.MonthBalances{
		ID:    "2024-02",
		Month: date.New(2024, 2, 1),
		AccountCategories: map[string]decimal.Decimal{
			"cash":     dec("1200"),
			"mortgage": dec("-300000"),
			"home":     dec("450000"),
		},
		NetWorth: dec("151200"),
	}
	categories := []fintrack.AccountCategory{
		{ID: "mortgage", Type: fintrack.Liability, Order: 2},
		{ID: "home", Name: "Real Estate", Type: fintrack.Asset, Order: 1},
		{ID: "cash", Name: "Cash", Type: fintrack.Asset, Order: 0},
		{ID: "unused", Type: fintrack.Asset, Order: 3},
	}
	want := `# Balances 2024-02

| Category | Type | Balance |
|:---|:---|---:|
| Cash | asset | 1,200.00 |
| Real Estate | asset | 450,000.00 |
| mortgage | liability | -300,000.00 |
| **Net Worth** | | **151,200.00** |
`
	if diff := cmp.Diff(want, BalancesMarkdown(mb, categories, "EUR")); diff != "" {
		t.Errorf("BalancesMarkdown() mismatch (-want +got):\n%s", diff)
	}
}
