package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fintrack/date"
	"github.com/google/subcommands"
)

type recalcCmd struct {
	accounts string
	from     string
}

func (*recalcCmd) Name() string     { return "recalc" }
func (*recalcCmd) Synopsis() string { return "recalculate ledgers, balances and periods" }
func (*recalcCmd) Usage() string {
	return `fintrack recalc [-accounts <id,id>] [-from <date>]

  Recalculates the derived collections. Without -from, everything is rebuilt
  from the opening date. With -from, only the days from that date onward are
  recalculated, and -accounts restricts the ledgers rebuilt.
`
}

func (c *recalcCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.accounts, "accounts", "", "Comma separated ids of the accounts whose ledgers changed. Defaults to all accounts.")
	f.StringVar(&c.from, "from", "", "First day to recalculate (YYYY-MM-DD). Defaults to a full rebuild.")
}

func (c *recalcCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var start *date.Date
	if c.from != "" {
		d, err := date.Parse(c.from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		start = &d
	}
	var accounts []string
	if c.accounts != "" {
		accounts = strings.Split(c.accounts, ",")
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail("Error: %v", err)
	}
	defer a.close(ctx)

	engine, err := a.engine()
	if err != nil {
		return fail("Error: %v", err)
	}
	if err := engine.Recalculate(ctx, accounts, start); err != nil {
		return fail("Error: %v", err)
	}
	return subcommands.ExitSuccess
}
