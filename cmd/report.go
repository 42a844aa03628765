package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fintrack"
	"github.com/etnz/fintrack/date"
	"github.com/etnz/fintrack/renderer"
	"github.com/etnz/fintrack/store"
	"github.com/google/subcommands"
)

type reportCmd struct {
	period   string
	date     string
	balances bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display the profit and loss statement of a period" }
func (*reportCmd) Usage() string {
	return `fintrack report [-period month|quarter|year] [-d <date>] [-balances]

  Displays the stored profit and loss statement of the period containing the
  date. Run 'fintrack recalc' first to bring it up to date.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", "month", "Period type: month, quarter or year")
	f.StringVar(&c.date, "d", "", "Any day of the period (YYYY-MM-DD). Defaults to yesterday.")
	f.BoolVar(&c.balances, "balances", false, "Also display the end of month balances per category")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := fintrack.ParsePeriodType(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	on := date.Today().Add(-1)
	if c.date != "" {
		if on, err = date.Parse(c.date); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail("Error: %v", err)
	}
	defer a.close(ctx)

	md, err := report(ctx, a.store, t, on, c.balances, a.config.ReferenceCurrency)
	if err != nil {
		return fail("Error: %v", err)
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}

// report renders the period of type t containing on and, optionally, the
// balances at the end of its last month.
func report(ctx context.Context, s store.Store, t fintrack.PeriodType, on date.Date, balances bool, currency string) (string, error) {
	id := t.Period().Range(on).Identifier()
	p, err := store.FindOne[fintrack.Period](ctx, s, fintrack.PeriodCollection(t), store.All().Eq("_id", id))
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("no %s period %s, run 'fintrack recalc' first", t, id)
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(renderer.PeriodMarkdown(p, currency))
	if !balances {
		return b.String(), nil
	}

	month := date.Min(p.Range().To, on).Format("2006-01")
	mb, err := store.FindOne[fintrack.MonthBalances](ctx, s, fintrack.MonthBalancesCollection, store.All().Eq("_id", month))
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("no month balances %s, run 'fintrack recalc' first", month)
	}
	if err != nil {
		return "", err
	}
	categories, err := store.FindAll[fintrack.AccountCategory](ctx, s, fintrack.AccountCategoriesCollection, store.All())
	if err != nil {
		return "", err
	}
	b.WriteString("\n")
	b.WriteString(renderer.BalancesMarkdown(mb, categories, currency))
	return b.String(), nil
}
