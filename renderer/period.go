// Package renderer renders fintrack documents as markdown.
package renderer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/fintrack"
	"github.com/shopspring/decimal"
)

var periodTitles = map[fintrack.PeriodType]string{
	fintrack.MonthPeriod:   "Monthly Report",
	fintrack.QuarterPeriod: "Quarterly Report",
	fintrack.YearPeriod:    "Yearly Report",
}

// PeriodMarkdown renders the profit and loss statement p, whose amounts are in currency.
func PeriodMarkdown(p fintrack.Period, currency string) string {
	var b strings.Builder
	r := p.Range()
	fmt.Fprintf(&b, "# %s %s\n\n", periodTitles[p.Type], p.ID)
	fmt.Fprintf(&b, "From %s to %s, amounts in %s.\n\n", r.From, r.To, currency)

	renderPeriodSummary(&b, p, currency)
	ConditionalBlock(&b, func(w io.Writer) bool { return renderCategories(w, "Income", p.Income, currency) })
	ConditionalBlock(&b, func(w io.Writer) bool { return renderCategories(w, "Expenses", p.Expenses, currency) })
	ConditionalBlock(&b, func(w io.Writer) bool { return renderValue(w, p.ValueProfitOrLoss, currency) })
	ConditionalBlock(&b, func(w io.Writer) bool { return renderTransfers(w, p.TransferProfitOrLoss, currency) })
	ConditionalBlock(&b, func(w io.Writer) bool { return renderEntries(w, "Profits", p.Profits, currency) })
	ConditionalBlock(&b, func(w io.Writer) bool { return renderEntries(w, "Losses", p.Losses, currency) })
	return b.String()
}

func renderPeriodSummary(w io.Writer, p fintrack.Period, currency string) {
	fmt.Fprintln(w, "| | Amount |")
	fmt.Fprintln(w, "|:---|---:|")
	fmt.Fprintf(w, "| Income | %s |\n", amount(p.Income.Total, currency))
	fmt.Fprintf(w, "| Expenses | %s |\n", amount(p.Expenses.Total, currency))
	fmt.Fprintf(w, "| Value | %s |\n", signed(p.ValueProfitOrLoss.Total, currency))
	fmt.Fprintf(w, "| Transfers | %s |\n", signed(p.TransferProfitOrLoss.Total, currency))
	fmt.Fprintf(w, "| **Profit or Loss** | **%s** |\n", signed(p.ProfitOrLoss, currency))
	fmt.Fprintf(w, "| Cash Flow | %s |\n\n", signed(p.CashFlow, currency))
}

func renderCategories(w io.Writer, title string, s fintrack.CategorySection, currency string) bool {
	if len(s.Categories) == 0 {
		return false
	}
	fmt.Fprintf(w, "## %s\n\n", title)
	fmt.Fprintln(w, "| Category | Date | Note | Amount |")
	fmt.Fprintln(w, "|:---|:---|:---|---:|")
	for _, id := range slices.Sorted(maps.Keys(s.Categories)) {
		c := s.Categories[id]
		for _, ref := range c.Bookings {
			original := ""
			if ref.Currency != currency {
				original = fmt.Sprintf(" (%s %s)", amount(ref.Amount, ref.Currency), ref.Currency)
			}
			fmt.Fprintf(w, "| %s | %s | %s | %s%s |\n", escape(id), ref.Date, escape(ref.Note), amount(ref.AmountInReferenceCurrency, currency), original)
		}
		fmt.Fprintf(w, "| **%s** | | | **%s** |\n", escape(id), amount(c.Total, currency))
	}
	fmt.Fprintf(w, "| **Total** | | | **%s** |\n\n", amount(s.Total, currency))
	return true
}

func renderValue(w io.Writer, v fintrack.ValueSection, currency string) bool {
	if len(v.Accounts) == 0 {
		return false
	}
	fmt.Fprint(w, "## Value\n\n")
	groups := []struct {
		name string
		sums map[string]decimal.Decimal
	}{
		{"Type", v.Types},
		{"Stock", v.Stocks},
		{"Currency", v.Currencies},
		{"Valuated Account", v.ValuatedAccounts},
		{"Category", v.AccountCategories},
		{"Account", v.Accounts},
	}
	for _, g := range groups {
		if len(g.sums) == 0 {
			continue
		}
		fmt.Fprintf(w, "| %s | Profit or Loss |\n", g.name)
		fmt.Fprintln(w, "|:---|---:|")
		for _, id := range slices.Sorted(maps.Keys(g.sums)) {
			fmt.Fprintf(w, "| %s | %s |\n", escape(id), signed(g.sums[id], currency))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Total: **%s**\n\n", signed(v.Total, currency))
	return true
}

func renderTransfers(w io.Writer, s fintrack.TransferSection, currency string) bool {
	if len(s.Transactions) == 0 {
		return false
	}
	ids := slices.SortedFunc(maps.Keys(s.Transactions), func(a, b string) int {
		if c := s.Transactions[a].Date.Compare(s.Transactions[b].Date); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	fmt.Fprint(w, "## Transfers\n\n")
	fmt.Fprintln(w, "| Date | Note | Profit or Loss |")
	fmt.Fprintln(w, "|:---|:---|---:|")
	for _, id := range ids {
		t := s.Transactions[id]
		fmt.Fprintf(w, "| %s | %s | %s |\n", t.Date, escape(t.Note), signed(t.ProfitOrLoss, currency))
	}
	fmt.Fprintf(w, "| **Total** | | **%s** |\n\n", signed(s.Total, currency))
	return true
}

func renderEntries(w io.Writer, title string, entries []fintrack.Entry, currency string) bool {
	if len(entries) == 0 {
		return false
	}
	fmt.Fprintf(w, "## %s\n\n", title)
	for _, e := range entries {
		label := string(e.Kind)
		if e.ID != "" {
			label += " " + e.ID
		}
		fmt.Fprintf(w, "- %s: %s\n", escape(label), amount(e.Amount, currency))
	}
	fmt.Fprintln(w)
	return true
}
