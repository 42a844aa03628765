package fintrack

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func monthBalancesOf(month string, categories map[string]string) MonthBalances {
	m := MonthBalances{ID: month[:7], Month: day(month), AccountCategories: make(map[string]decimal.Decimal)}
	for id, v := range categories {
		m.AccountCategories[id] = dec(v)
		m.NetWorth = m.NetWorth.Add(dec(v))
	}
	return m
}

func TestCalculateMonthPeriod_Salary(t *testing.T) {
	a := currencyAccount("a", "CHF", "cash")
	tx := Transaction{ID: "t1", Date: day("2020-01-05"), Bookings: Bookings{
		Deposit{AccountID: "a", Unit: CurrencyOf("CHF"), Amount: dec("100")},
		Income{Currency: "CHF", CategoryID: "salary", Amount: dec("100")},
	}}
	got, err := CalculateMonthPeriod(MonthInput{
		Month:             day("2020-01-01"),
		End:               day("2020-01-31"),
		Transactions:      []Transaction{tx},
		Accounts:          []Account{a},
		StartBalances:     newDayBalances(day("2019-12-31")),
		EndBalances:       balancesOn("2020-01-31", map[string]string{"a": "100"}),
		Current:           monthBalancesOf("2020-01-01", map[string]string{"cash": "100"}),
		CashCategoryID:    "cash",
		ReferenceCurrency: "CHF",
		Converter:         Converter{Rates: rateTable("CHF"), Prices: noPrices},
	})
	if err != nil {
		t.Fatalf("CalculateMonthPeriod() error = %v", err)
	}

	if got.ID != "2020-01" || got.Type != MonthPeriod || got.Start != day("2020-01-01") {
		t.Errorf("CalculateMonthPeriod() = %s %s %s, want 2020-01 month 2020-01-01", got.ID, got.Type, got.Start)
	}
	wantIncome := CategorySection{
		Categories: map[string]CategoryTotal{
			"salary": {
				Bookings: []BookingRef{{
					TransactionID:             "t1",
					Date:                      day("2020-01-05"),
					Currency:                  "CHF",
					Amount:                    dec("100"),
					AmountInReferenceCurrency: dec("100"),
				}},
				Total: dec("100"),
			},
		},
		Total: dec("100"),
	}
	if diff := cmp.Diff(wantIncome, got.Income, cmpOpts); diff != "" {
		t.Errorf("Income mismatch (-want +got):\n%s", diff)
	}
	if !got.ProfitOrLoss.Equal(dec("100")) {
		t.Errorf("ProfitOrLoss = %v, want 100", got.ProfitOrLoss)
	}
	if !got.CashFlow.Equal(dec("100")) {
		t.Errorf("CashFlow = %v, want 100", got.CashFlow)
	}
	if !got.ValueProfitOrLoss.Total.IsZero() || len(got.ValueProfitOrLoss.Accounts) != 0 {
		t.Errorf("ValueProfitOrLoss = %v, want nothing for a reference currency account", got.ValueProfitOrLoss)
	}
	wantProfits := []Entry{{Kind: IncomeEntry, ID: "salary", Amount: dec("100")}}
	if diff := cmp.Diff(wantProfits, got.Profits, cmpOpts); diff != "" {
		t.Errorf("Profits mismatch (-want +got):\n%s", diff)
	}
	if len(got.Losses) != 0 {
		t.Errorf("Losses = %v, want none", got.Losses)
	}
}

func TestCalculateMonthPeriod_ForexTransfer(t *testing.T) {
	eur := currencyAccount("eur", "EUR", "cash")
	chf := currencyAccount("chf", "CHF", "cash")
	conv := Converter{Rates: rateTable("EUR", "CHF", "2020-02-01", "1.05"), Prices: noPrices}

	testCases := []struct {
		name         string
		deposited    string
		wantTransfer string
		wantValue    string
		wantLosses   []Entry
	}{
		{
			name:         "deposit at the day rate",
			deposited:    "52.5",
			wantTransfer: "0",
			wantValue:    "2.5",
		},
		{
			name:         "deposit below the day rate",
			deposited:    "50",
			wantTransfer: "-2.5",
			wantValue:    "2.5",
			wantLosses:   []Entry{{Kind: TransferEntry, Amount: dec("2.5")}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := Transaction{ID: "fx", Date: day("2020-02-01"), Bookings: Bookings{
				Charge{AccountID: "eur", Unit: CurrencyOf("EUR"), Amount: dec("50")},
				Deposit{AccountID: "chf", Unit: CurrencyOf("CHF"), Amount: dec(tc.deposited)},
			}}
			start := newDayBalances(day("2020-01-31"))
			start.ByAccount["eur"] = AccountBalance{BalanceInAccountCurrency: dec("100"), BalanceInReferenceCurrency: dec("105")}
			end := newDayBalances(day("2020-02-29"))
			// EUR rose to 1.10 CHF by the end of the month.
			end.ByAccount["eur"] = AccountBalance{BalanceInAccountCurrency: dec("50"), BalanceInReferenceCurrency: dec("55")}
			end.ByAccount["chf"] = AccountBalance{BalanceInAccountCurrency: dec(tc.deposited), BalanceInReferenceCurrency: dec(tc.deposited)}

			got, err := CalculateMonthPeriod(MonthInput{
				Month:             day("2020-02-15"),
				End:               day("2020-02-29"),
				Transactions:      []Transaction{tx},
				Accounts:          []Account{eur, chf},
				StartBalances:     start,
				EndBalances:       end,
				ReferenceCurrency: "CHF",
				Converter:         conv,
			})
			if err != nil {
				t.Fatalf("CalculateMonthPeriod() error = %v", err)
			}
			line, ok := got.TransferProfitOrLoss.Transactions["fx"]
			if !ok {
				t.Fatalf("TransferProfitOrLoss.Transactions = %v, want an entry for fx", got.TransferProfitOrLoss.Transactions)
			}
			if !line.ProfitOrLoss.Equal(dec(tc.wantTransfer)) || !got.TransferProfitOrLoss.Total.Equal(dec(tc.wantTransfer)) {
				t.Errorf("transfer profit or loss = %v (total %v), want %s", line.ProfitOrLoss, got.TransferProfitOrLoss.Total, tc.wantTransfer)
			}
			if v := got.ValueProfitOrLoss.Currencies["EUR"]; !v.Equal(dec(tc.wantValue)) {
				t.Errorf("ValueProfitOrLoss.Currencies[EUR] = %v, want %s", v, tc.wantValue)
			}
			if _, ok := got.ValueProfitOrLoss.Accounts["chf"]; ok {
				t.Errorf("ValueProfitOrLoss.Accounts has the reference currency account")
			}
			want := dec(tc.wantTransfer).Add(dec(tc.wantValue))
			if !got.ProfitOrLoss.Equal(want) {
				t.Errorf("ProfitOrLoss = %v, want %v", got.ProfitOrLoss, want)
			}
			if diff := cmp.Diff(tc.wantLosses, got.Losses, cmpOpts); diff != "" {
				t.Errorf("Losses mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCalculateMonthPeriod_Value(t *testing.T) {
	cash := currencyAccount("cash", "CHF", "cash")
	aapl := Account{ID: "aapl", Type: Tracked, Unit: StockOf("AAPL"), CategoryID: "invest", ValueTypeID: "equity", ValueSubtypeID: "us"}
	house := currencyAccount("house", "CHF", "realEstate")
	house.Type, house.ValueTypeID = Valuated, "property"
	chf := CurrencyOf("CHF")

	txs := []Transaction{
		{ID: "buy", Date: day("2020-03-10"), Bookings: Bookings{
			Charge{AccountID: "cash", Unit: chf, Amount: dec("101")},
			Deposit{AccountID: "aapl", Unit: StockOf("AAPL"), Amount: dec("2")},
			Expense{Currency: "CHF", CategoryID: "fees", Amount: dec("1")},
		}},
		{ID: "estimate", Date: day("2020-03-15"), Bookings: Bookings{
			Deposit{AccountID: "house", Unit: chf, Amount: dec("10000")},
			Appreciation{Amount: dec("10000")},
		}},
		{ID: "wear", Date: day("2020-03-18"), Bookings: Bookings{
			Charge{AccountID: "house", Unit: chf, Amount: dec("500")},
			Depreciation{Amount: dec("500")},
		}},
		// After the end day: ignored.
		{ID: "late", Date: day("2020-03-25"), Bookings: Bookings{
			Deposit{AccountID: "cash", Unit: chf, Amount: dec("1000")},
			Income{Currency: "CHF", CategoryID: "salary", Amount: dec("1000")},
		}},
	}
	prices, err := NewStockPrices([]StockPrice{
		{StockID: "AAPL", Date: day("2020-03-10"), Price: dec("50"), Currency: "CHF"},
	})
	if err != nil {
		t.Fatalf("NewStockPrices() error = %v", err)
	}
	end := newDayBalances(day("2020-03-20"))
	end.ByAccount["aapl"] = AccountBalance{BalanceInAccountCurrency: dec("2"), BalanceInReferenceCurrency: dec("120")}

	got, err := CalculateMonthPeriod(MonthInput{
		Month:             day("2020-03-01"),
		End:               day("2020-03-20"),
		Transactions:      txs,
		Accounts:          []Account{cash, aapl, house},
		StartBalances:     newDayBalances(day("2020-02-29")),
		EndBalances:       end,
		ReferenceCurrency: "CHF",
		Converter:         Converter{Rates: rateTable("CHF"), Prices: prices},
	})
	if err != nil {
		t.Fatalf("CalculateMonthPeriod() error = %v", err)
	}

	v := got.ValueProfitOrLoss
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"stocks[AAPL]", v.Stocks["AAPL"], "20"},
		{"valuatedAccounts[house]", v.ValuatedAccounts["house"], "9500"},
		{"accountCategories[invest]", v.AccountCategories["invest"], "20"},
		{"accountCategories[realEstate]", v.AccountCategories["realEstate"], "9500"},
		{"types[equity]", v.Types["equity"], "20"},
		{"types[property]", v.Types["property"], "9500"},
		{"subtypes[us]", v.Subtypes["us"], "20"},
		{"subtypes[other]", v.Subtypes["other"], "9500"},
		{"total", v.Total, "9520"},
		{"expenses", got.Expenses.Total, "1"},
		{"income", got.Income.Total, "0"},
		{"transfer", got.TransferProfitOrLoss.Total, "0"},
		{"profitOrLoss", got.ProfitOrLoss, "9519"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %v, want %s", c.name, c.got, c.want)
		}
	}
	if _, ok := got.TransferProfitOrLoss.Transactions["buy"]; !ok {
		t.Errorf("the stock buy is not listed as a transfer")
	}

	wantProfits := []Entry{
		{Kind: ValueEntry, ID: "equity", Amount: dec("20")},
		{Kind: ValueEntry, ID: "property", Amount: dec("9500")},
	}
	if diff := cmp.Diff(wantProfits, got.Profits, cmpOpts); diff != "" {
		t.Errorf("Profits mismatch (-want +got):\n%s", diff)
	}
	wantLosses := []Entry{{Kind: ExpenseEntry, ID: "fees", Amount: dec("1")}}
	if diff := cmp.Diff(wantLosses, got.Losses, cmpOpts); diff != "" {
		t.Errorf("Losses mismatch (-want +got):\n%s", diff)
	}
}

func TestCalculateMonthPeriod_MissingRate(t *testing.T) {
	tx := Transaction{ID: "t1", Date: day("2020-01-05"), Bookings: Bookings{
		Charge{AccountID: "a", Unit: CurrencyOf("CHF"), Amount: dec("10")},
		Expense{Currency: "USD", CategoryID: "travel", Amount: dec("11")},
	}}
	_, err := CalculateMonthPeriod(MonthInput{
		Month:             day("2020-01-01"),
		End:               day("2020-01-31"),
		Transactions:      []Transaction{tx},
		Accounts:          []Account{currencyAccount("a", "CHF", "cash")},
		ReferenceCurrency: "CHF",
		Converter:         Converter{Rates: rateTable("CHF"), Prices: noPrices},
	})
	if !errors.Is(err, ErrMissingRate) {
		t.Errorf("CalculateMonthPeriod() error = %v, want ErrMissingRate", err)
	}
}

func TestCalculateMonthPeriod_OpeningBalance(t *testing.T) {
	// 100 USD brought in on March 10th, then the dollar doubles against the franc.
	u := currencyAccount("u", "USD", "invest")
	u.OpeningDate = day("2020-03-10")
	u.OpeningBalance = dec("100")
	end := newDayBalances(day("2020-03-31"))
	end.ByAccount["u"] = AccountBalance{BalanceInAccountCurrency: dec("100"), BalanceInReferenceCurrency: dec("400")}

	got, err := CalculateMonthPeriod(MonthInput{
		Month:             day("2020-03-01"),
		End:               day("2020-03-31"),
		Accounts:          []Account{u},
		OpeningDate:       day("2020-01-01"),
		StartBalances:     newDayBalances(day("2020-02-29")),
		EndBalances:       end,
		ReferenceCurrency: "CHF",
		Converter: Converter{
			Rates:  rateTable("CHF", "USD", "2020-03-10", "0.5", "USD", "2020-03-31", "0.25"),
			Prices: noPrices,
		},
	})
	if err != nil {
		t.Fatalf("CalculateMonthPeriod() error = %v", err)
	}
	if v := got.ValueProfitOrLoss.Accounts["u"]; !v.Equal(dec("200")) {
		t.Errorf("valueProfitOrLoss.accounts[u] = %v, want 200", v)
	}
	if !got.ProfitOrLoss.Equal(dec("200")) {
		t.Errorf("profitOrLoss = %v, want 200", got.ProfitOrLoss)
	}
}

func TestCalculateMonthPeriod_BroughtIn(t *testing.T) {
	// 900 EUR held before the opening date, the euro then rises against the franc.
	e := currencyAccount("e", "EUR", "invest")
	e.OpeningDate = day("2019-06-01")
	end := newDayBalances(day("2020-01-31"))
	end.ByAccount["e"] = AccountBalance{BalanceInAccountCurrency: dec("900"), BalanceInReferenceCurrency: dec("1200")}

	got, err := CalculateMonthPeriod(MonthInput{
		Month:             day("2020-01-01"),
		End:               day("2020-01-31"),
		Accounts:          []Account{e},
		OpeningDate:       day("2020-01-01"),
		BroughtIn:         map[string]decimal.Decimal{"e": dec("900")},
		StartBalances:     newDayBalances(day("2019-12-31")),
		EndBalances:       end,
		ReferenceCurrency: "CHF",
		Converter: Converter{
			Rates:  rateTable("CHF", "EUR", "2020-01-01", "0.9"),
			Prices: noPrices,
		},
	})
	if err != nil {
		t.Fatalf("CalculateMonthPeriod() error = %v", err)
	}
	if v := got.ValueProfitOrLoss.Accounts["e"]; !v.Equal(dec("200")) {
		t.Errorf("valueProfitOrLoss.accounts[e] = %v, want 200", v)
	}
}
