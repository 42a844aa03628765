package renderer

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/fintrack"
)

// BalancesMarkdown renders the end of month balances per category, in the
// order of the categories.
func BalancesMarkdown(mb fintrack.MonthBalances, categories []fintrack.AccountCategory, currency string) string {
	categories = slices.Clone(categories)
	slices.SortFunc(categories, func(a, b fintrack.AccountCategory) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.ID, b.ID))
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# Balances %s\n\n", mb.ID)
	fmt.Fprintln(&b, "| Category | Type | Balance |")
	fmt.Fprintln(&b, "|:---|:---|---:|")
	for _, c := range categories {
		v, ok := mb.AccountCategories[c.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", escape(cmp.Or(c.Name, c.ID)), c.Type, amount(v, currency))
	}
	fmt.Fprintf(&b, "| **Net Worth** | | **%s** |\n", amount(mb.NetWorth, currency))
	return b.String()
}
