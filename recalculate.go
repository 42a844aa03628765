package fintrack

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/etnz/fintrack/date"
	"github.com/etnz/fintrack/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine recalculates the derived collections of a tenant store.
//
// The engine assumes at most one run in flight per store: concurrent runs on
// overlapping ranges are not coordinated.
type Engine struct {
	store    store.Store
	settings Settings
	logger   *zap.Logger
	today    func() date.Date
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithClock sets the function returning today's date. The default is date.Today.
func WithClock(today func() date.Date) Option { return func(e *Engine) { e.today = today } }

// NewEngine returns an engine over s.
func NewEngine(s store.Store, settings Settings, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	e := &Engine{store: s, settings: settings, logger: zap.NewNop(), today: date.Today}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Settings returns the engine settings.
func (e *Engine) Settings() Settings { return e.settings }

// RecalculateAll rebuilds every derived collection from the opening date.
func (e *Engine) RecalculateAll(ctx context.Context) error { return e.Recalculate(ctx, nil, nil) }

// Recalculate recomputes the derived collections from startDate onward.
//
// accountIDs restricts the day ledgers recomputed, nil means all accounts.
// A nil startDate rebuilds everything from the opening date. Otherwise
// startDate must be after the opening date and not after today, and the day
// balances of the day before startDate must exist.
//
// Each step deletes then rewrites its whole output range before the next
// step reads it. A failure leaves the steps already done in place.
func (e *Engine) Recalculate(ctx context.Context, accountIDs []string, startDate *date.Date) error {
	r := &run{
		Engine:     e,
		id:         uuid.NewString(),
		today:      e.today(),
		accountIDs: accountIDs,
		full:       startDate == nil,
	}
	r.yesterday = r.today.Add(-1)
	r.log = e.logger.With(zap.String("run", r.id))
	if startDate != nil {
		r.start = *startDate
	} else {
		r.start = e.settings.OpeningDate
	}

	begin := time.Now()
	r.log.Debug("recalculation started",
		zap.Stringer("start", r.start),
		zap.Bool("full", r.full),
		zap.Strings("accounts", accountIDs))
	if err := r.execute(ctx); err != nil {
		r.log.Error("recalculation failed", zap.Error(err), zap.Duration("took", time.Since(begin)))
		return err
	}
	r.log.Info("recalculation done",
		zap.Stringer("start", r.start),
		zap.Stringer("through", r.yesterday),
		zap.Duration("took", time.Since(begin)))
	return nil
}

// run is the state of one recalculation.
type run struct {
	*Engine
	id  string
	log *zap.Logger

	today, yesterday date.Date
	start            date.Date
	full             bool
	accountIDs       []string

	accounts     []Account
	categories   []AccountCategory
	roster       roster
	affected     []Account
	transactions []Transaction
	ledgerBases  map[string]decimal.Decimal
	baseBalances DayBalances
	conv         Converter
	days         []DayBalances
}

func (r *run) execute(ctx context.Context) error {
	if err := r.step(ctx, "validate", r.validate); err != nil {
		return err
	}
	if err := r.step(ctx, "load", r.load); err != nil {
		return err
	}
	if err := r.step(ctx, "referenceData", r.loadReferenceData); err != nil {
		return err
	}
	if err := r.step(ctx, "dayLedgers", r.dayLedgers); err != nil {
		return err
	}
	if !r.start.Before(r.today) {
		r.log.Debug("no historical change, balances and periods kept")
		return nil
	}
	steps := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{"dayBalances", r.dayBalances},
		{"monthBalances", r.monthBalances},
		{"currentBalances", r.currentBalances},
		{"monthPeriods", r.monthPeriods},
		{"aggregatePeriods", r.aggregatePeriods},
	}
	for _, s := range steps {
		if err := r.step(ctx, s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

// step runs fn, logs its outcome and wraps its error in a RunError.
func (r *run) step(ctx context.Context, name string, fn func(context.Context) (int, error)) error {
	begin := time.Now()
	n, err := fn(ctx)
	if err != nil {
		return &RunError{Run: r.id, Step: name, Err: err}
	}
	r.log.Debug("step done", zap.String("step", name), zap.Int("documents", n), zap.Duration("took", time.Since(begin)))
	return nil
}

// windowStart is the first day read by the run: the start of the start date's month.
func (r *run) windowStart() date.Date { return r.start.StartOf(date.Monthly) }

// since restricts field to values from day onward, or nothing for a full run.
func (r *run) since(field string, day date.Date) store.Query {
	if r.full {
		return store.All()
	}
	return store.All().From(field, day.String())
}

func (r *run) validate(context.Context) (int, error) {
	if r.full {
		return 0, nil
	}
	if !r.start.After(r.settings.OpeningDate) {
		return 0, fmt.Errorf("%w: %s is not after %s", ErrStartDateNotAfterOpening, r.start, r.settings.OpeningDate)
	}
	if r.start.After(r.today) {
		return 0, fmt.Errorf("%w: %s is after %s", ErrFutureStartDate, r.start, r.today)
	}
	return 0, nil
}

func (r *run) load(ctx context.Context) (int, error) {
	var ledgers []DayLedger
	base := r.start.Add(-1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.accounts, err = store.FindAll[Account](ctx, r.store, AccountsCollection, store.All())
		return err
	})
	g.Go(func() (err error) {
		r.categories, err = store.FindAll[AccountCategory](ctx, r.store, AccountCategoriesCollection, store.All())
		return err
	})
	g.Go(func() (err error) {
		r.transactions, err = store.FindAll[Transaction](ctx, r.store, TransactionsCollection, r.since("date", r.windowStart()))
		return err
	})
	if !r.full {
		g.Go(func() (err error) {
			q := store.All().Until("date", base.String())
			if r.accountIDs != nil {
				q = q.In("accountId", r.accountIDs...)
			}
			ledgers, err = store.FindAll[DayLedger](ctx, r.store, DayLedgersCollection, q)
			return err
		})
		if r.start.Before(r.today) {
			g.Go(func() error {
				b, err := store.FindOne[DayBalances](ctx, r.store, DayBalancesCollection, store.All().Eq("_id", base.String()))
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w: no day balances on %s", ErrMissingBaseBalances, base)
				}
				if b.ByAccount == nil {
					b.ByAccount = make(map[string]AccountBalance)
				}
				r.baseBalances = b
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var errs []error
	for _, a := range r.accounts {
		if err := a.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, tx := range r.transactions {
		if err := tx.Validate(r.accounts); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	r.roster = newRoster(r.accounts)
	if r.accountIDs == nil {
		r.affected = r.roster.sorted()
	} else {
		for _, id := range r.accountIDs {
			a, err := r.roster.get(id)
			if err != nil {
				return 0, err
			}
			r.affected = append(r.affected, a)
		}
	}

	r.ledgerBases = latestBalances(ledgers)
	return len(r.accounts) + len(r.categories) + len(r.transactions) + len(ledgers), nil
}

// loadReferenceData builds the rate and price providers for the currencies
// and stocks referenced in the run window.
func (r *run) loadReferenceData(ctx context.Context) (int, error) {
	from, to := r.windowStart().String(), r.today.String()
	if r.full {
		from = date.Min(r.settings.OpeningDate, r.windowStart()).String()
	}

	currencies := map[string]bool{r.settings.ReferenceCurrency: true}
	stocks := make(map[string]bool)
	addUnit := func(u Unit) {
		switch u.Kind {
		case StockUnit:
			stocks[u.StockID] = true
		case CurrencyUnit:
			currencies[u.Currency] = true
		}
	}
	for _, a := range r.accounts {
		addUnit(a.Unit)
	}
	for _, tx := range r.transactions {
		for _, b := range tx.Bookings {
			switch b := b.(type) {
			case Charge:
				addUnit(b.Unit)
			case Deposit:
				addUnit(b.Unit)
			case Income:
				currencies[b.Currency] = true
			case Expense:
				currencies[b.Currency] = true
			case Appreciation, Depreciation:
			default:
				return 0, fmt.Errorf("unhandled booking type: %T", b)
			}
		}
	}

	var prices []StockPrice
	if len(stocks) > 0 {
		var err error
		prices, err = store.FindAll[StockPrice](ctx, r.store, StockPricesCollection,
			store.All().In("stockId", sortedKeys(stocks)...).Between("date", from, to))
		if err != nil {
			return 0, err
		}
	}
	for _, p := range prices {
		currencies[p.Currency] = true
	}
	delete(currencies, r.settings.BaseCurrency)

	var rates []ForexRate
	if len(currencies) > 0 {
		var err error
		rates, err = store.FindAll[ForexRate](ctx, r.store, ForexRatesCollection,
			store.All().In("currency", sortedKeys(currencies)...).Between("date", from, to))
		if err != nil {
			return 0, err
		}
	}

	fx, err := NewRates(r.settings.BaseCurrency, rates)
	if err != nil {
		return 0, err
	}
	sp, err := NewStockPrices(prices)
	if err != nil {
		return 0, err
	}
	r.conv = Converter{Rates: fx, Prices: sp}
	return len(rates) + len(prices), nil
}

func (r *run) dayLedgers(ctx context.Context) (int, error) {
	var ledgers []DayLedger
	for _, a := range r.affected {
		var txs []Transaction
		for _, tx := range r.transactions {
			if r.full || !tx.Date.Before(r.start) {
				txs = append(txs, tx)
			}
		}
		base, ok := r.ledgerBases[a.ID]
		if !ok {
			base = a.OpeningBalance
		}
		l, err := BuildDayLedgers(a, txs, base)
		if err != nil {
			return 0, err
		}
		ledgers = append(ledgers, l...)
	}

	q := r.since("date", r.start)
	if r.accountIDs != nil {
		q = q.In("accountId", r.accountIDs...)
	}
	if err := store.ReplaceAll(ctx, r.store, DayLedgersCollection, q, ledgers); err != nil {
		return 0, err
	}
	return len(ledgers), nil
}

func (r *run) dayBalances(ctx context.Context) (int, error) {
	ledgers, err := store.FindAll[DayLedger](ctx, r.store, DayLedgersCollection, r.since("date", r.start))
	if err != nil {
		return 0, err
	}
	base := r.baseBalances
	if r.full {
		base = newDayBalances(r.start.Add(-1))
	}
	r.days, err = ProjectDayBalances(base, ledgers, r.accounts, r.start, r.yesterday, r.conv, r.settings.ReferenceCurrency)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceAll(ctx, r.store, DayBalancesCollection, r.since("date", r.start), r.days); err != nil {
		return 0, err
	}
	return len(r.days), nil
}

func (r *run) monthBalances(ctx context.Context) (int, error) {
	days, err := store.FindAll[DayBalances](ctx, r.store, DayBalancesCollection, r.since("date", r.windowStart()))
	if err != nil {
		return 0, err
	}
	months, err := AggregateMonthBalances(days, r.accounts)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceAll(ctx, r.store, MonthBalancesCollection, r.since("month", r.windowStart()), months); err != nil {
		return 0, err
	}
	return len(months), nil
}

// currentBalances refreshes the snapshot of yesterday's balances on the
// affected accounts and on every category.
func (r *run) currentBalances(ctx context.Context) (int, error) {
	if len(r.days) == 0 {
		return 0, nil
	}
	last := r.days[len(r.days)-1]

	accounts := make([]Account, 0, len(r.affected))
	ids := make([]string, 0, len(r.affected))
	for _, a := range r.affected {
		a.CurrentBalance = nil
		if b, ok := last.ByAccount[a.ID]; ok {
			a.CurrentBalance = &b
		}
		accounts = append(accounts, a)
		ids = append(ids, a.ID)
	}
	if err := store.ReplaceAll(ctx, r.store, AccountsCollection, store.All().In("_id", ids...), accounts); err != nil {
		return 0, err
	}

	totals, err := categoryTotals(last, r.categories, r.roster)
	if err != nil {
		return 0, err
	}
	categories := make([]AccountCategory, 0, len(r.categories))
	ids = ids[:0]
	for _, c := range r.categories {
		total := totals[c.ID]
		c.CurrentBalance = &total
		categories = append(categories, c)
		ids = append(ids, c.ID)
	}
	if err := store.ReplaceAll(ctx, r.store, AccountCategoriesCollection, store.All().In("_id", ids...), categories); err != nil {
		return 0, err
	}
	return len(accounts) + len(categories), nil
}

func (r *run) monthPeriods(ctx context.Context) (int, error) {
	first := r.windowStart()
	opening := r.settings.OpeningDate
	window := date.NewRange(first, r.yesterday)

	var boundaries []string
	for m := range window.Periods(date.Monthly) {
		if before := m.From.Add(-1); !before.Before(opening) {
			boundaries = append(boundaries, before.String())
		}
		boundaries = append(boundaries, date.Min(m.To, r.yesterday).String())
	}

	var (
		days   []DayBalances
		months []MonthBalances
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		days, err = store.FindAll[DayBalances](gctx, r.store, DayBalancesCollection, store.All().In("_id", boundaries...))
		return err
	})
	g.Go(func() (err error) {
		months, err = store.FindAll[MonthBalances](gctx, r.store, MonthBalancesCollection, store.All().From("month", first.AddMonth(-1).String()))
		return err
	})
	var broughtIn map[string]decimal.Decimal
	if window.Contains(opening) {
		g.Go(func() error {
			before, err := store.FindAll[DayLedger](gctx, r.store, DayLedgersCollection, store.All().Until("date", opening.Add(-1).String()))
			broughtIn = latestBalances(before)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	dayIndex := make(map[string]DayBalances, len(days))
	for _, d := range days {
		dayIndex[d.ID] = d
	}
	monthIndex := make(map[string]MonthBalances, len(months))
	for _, m := range months {
		monthIndex[m.ID] = m
	}

	cash := cmp.Or(r.settings.CashCategoryID, cashCategory(r.categories))
	var periods []Period
	for m := range window.Periods(date.Monthly) {
		end := date.Min(m.To, r.yesterday)
		in := MonthInput{
			Month:             m.From,
			End:               end,
			OpeningDate:       opening,
			BroughtIn:         broughtIn,
			Transactions:      r.transactions,
			Accounts:          r.accounts,
			CashCategoryID:    cash,
			ReferenceCurrency: r.settings.ReferenceCurrency,
			Converter:         r.conv,
		}
		var ok bool
		if before := m.From.Add(-1); before.Before(opening) {
			in.StartBalances = newDayBalances(before)
		} else if in.StartBalances, ok = dayIndex[before.String()]; !ok {
			return 0, fmt.Errorf("%w: no day balances on %s", ErrMissingBaseBalances, before)
		}
		if in.EndBalances, ok = dayIndex[end.String()]; !ok {
			return 0, fmt.Errorf("%w: no day balances on %s", ErrMissingBaseBalances, end)
		}
		if in.Current, ok = monthIndex[monthID(m.From)]; !ok {
			return 0, fmt.Errorf("%w: no month balances for %s", ErrMissingBaseBalances, monthID(m.From))
		}
		if previous := m.From.AddMonth(-1); !previous.Before(opening.StartOf(date.Monthly)) {
			if in.Previous, ok = monthIndex[monthID(previous)]; !ok {
				return 0, fmt.Errorf("%w: no month balances for %s", ErrMissingBaseBalances, monthID(previous))
			}
		}
		p, err := CalculateMonthPeriod(in)
		if err != nil {
			return 0, fmt.Errorf("month %s: %w", monthID(m.From), err)
		}
		periods = append(periods, p)
	}
	if err := store.ReplaceAll(ctx, r.store, MonthPeriodsCollection, r.since("start", first), periods); err != nil {
		return 0, err
	}
	return len(periods), nil
}

// aggregatePeriods rebuilds the quarter and year periods from the stored
// month periods.
func (r *run) aggregatePeriods(ctx context.Context) (int, error) {
	yearStart := r.start.StartOf(date.Yearly)
	months, err := store.FindAll[Period](ctx, r.store, MonthPeriodsCollection, store.All().From("start", yearStart.String()))
	if err != nil {
		return 0, err
	}
	slices.SortFunc(months, func(a, b Period) int { return a.Start.Compare(b.Start) })

	n := 0
	for _, t := range []PeriodType{QuarterPeriod, YearPeriod} {
		first := r.start.StartOf(t.Period())
		var periods []Period
		for pr := range date.NewRange(first, r.yesterday).Periods(t.Period()) {
			p, err := SumPeriods(t, pr.From, months)
			if err != nil {
				return 0, fmt.Errorf("%s %s: %w", t, pr.Identifier(), err)
			}
			periods = append(periods, p)
		}
		if err := store.ReplaceAll(ctx, r.store, PeriodCollection(t), r.since("start", first), periods); err != nil {
			return 0, err
		}
		n += len(periods)
	}
	return n, nil
}

// latestBalances returns the balance of the latest ledger of each account.
func latestBalances(ledgers []DayLedger) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	latest := make(map[string]date.Date)
	for _, l := range ledgers {
		if d, ok := latest[l.AccountID]; !ok || l.Date.After(d) {
			latest[l.AccountID] = l.Date
			balances[l.AccountID] = l.Balance
		}
	}
	return balances
}
