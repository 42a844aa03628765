package fintrack

import (
	"fmt"

	"github.com/etnz/fintrack/date"
	"github.com/shopspring/decimal"
)

// ForexRate is the number of units of Currency worth one unit of the base
// currency on Date.
type ForexRate struct {
	Currency string          `json:"currency"`
	Date     date.Date       `json:"date"`
	Rate     decimal.Decimal `json:"rate"`
}

// StockPrice is the price of one share of a stock on Date, in Currency.
type StockPrice struct {
	StockID  string          `json:"stockId"`
	Date     date.Date       `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// RateProvider returns the forex rate of a currency against the base currency.
type RateProvider interface {
	Rate(currency string, day date.Date) (decimal.Decimal, error)
}

// PriceProvider returns the price of a stock.
type PriceProvider interface {
	Price(stockID string, day date.Date) (StockPrice, error)
}

// Rates is a RateProvider over a fixed set of forex rates.
// The base currency always has rate 1 and is never looked up.
type Rates struct {
	base   string
	series map[string]*date.History[decimal.Decimal]
}

// NewRates indexes rates. Non positive rates are rejected.
func NewRates(base string, rates []ForexRate) (*Rates, error) {
	r := &Rates{base: base, series: make(map[string]*date.History[decimal.Decimal])}
	for _, fx := range rates {
		if !fx.Rate.IsPositive() {
			return nil, fmt.Errorf("invalid forex rate %s for %s on %s", fx.Rate, fx.Currency, fx.Date)
		}
		h, ok := r.series[fx.Currency]
		if !ok {
			h = new(date.History[decimal.Decimal])
			r.series[fx.Currency] = h
		}
		h.Append(fx.Date, fx.Rate)
	}
	return r, nil
}

// Rate returns the rate of currency on day. There is no fallback to a
// previous day: a missing rate is ErrMissingRate.
func (r *Rates) Rate(currency string, day date.Date) (decimal.Decimal, error) {
	if currency == r.base {
		return decimal.NewFromInt(1), nil
	}
	if h, ok := r.series[currency]; ok {
		if v, ok := h.Get(day); ok {
			return v, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrMissingRate, currency, day)
}

// StockPrices is a PriceProvider over a fixed set of stock prices.
type StockPrices struct {
	series map[string]*date.History[StockPrice]
}

// NewStockPrices indexes prices.
func NewStockPrices(prices []StockPrice) (*StockPrices, error) {
	p := &StockPrices{series: make(map[string]*date.History[StockPrice])}
	for _, sp := range prices {
		if sp.Price.IsNegative() {
			return nil, fmt.Errorf("invalid price %s for %s on %s", sp.Price, sp.StockID, sp.Date)
		}
		if err := ValidateCurrency(sp.Currency); err != nil {
			return nil, fmt.Errorf("invalid price for %s on %s: %w", sp.StockID, sp.Date, err)
		}
		h, ok := p.series[sp.StockID]
		if !ok {
			h = new(date.History[StockPrice])
			p.series[sp.StockID] = h
		}
		h.Append(sp.Date, sp)
	}
	return p, nil
}

// Price returns the price of stockID on day, or ErrMissingPrice.
func (p *StockPrices) Price(stockID string, day date.Date) (StockPrice, error) {
	if h, ok := p.series[stockID]; ok {
		if v, ok := h.Get(day); ok {
			return v, nil
		}
	}
	return StockPrice{}, fmt.Errorf("%w: %s on %s", ErrMissingPrice, stockID, day)
}

// Converter converts amounts between currencies and stock units using
// historical rates and prices.
type Converter struct {
	Rates  RateProvider
	Prices PriceProvider
}

// Convert converts amount from one currency to another on day.
// Same currency and zero amounts need no rate.
func (c Converter) Convert(amount decimal.Decimal, from, to string, day date.Date) (decimal.Decimal, error) {
	if from == to || amount.IsZero() {
		return amount, nil
	}
	rateFrom, err := c.Rates.Rate(from, day)
	if err != nil {
		return decimal.Zero, err
	}
	rateTo, err := c.Rates.Rate(to, day)
	if err != nil {
		return decimal.Zero, err
	}
	// amount / rateFrom * rateTo, with a single division.
	return amount.Mul(rateTo).Div(rateFrom), nil
}

// ConvertUnit converts an amount of unit into the currency to on day.
// A stock quantity is first valued at the stock price in the stock currency.
func (c Converter) ConvertUnit(amount decimal.Decimal, unit Unit, to string, day date.Date) (decimal.Decimal, error) {
	switch unit.Kind {
	case CurrencyUnit:
		return c.Convert(amount, unit.Currency, to, day)
	case StockUnit:
		if amount.IsZero() {
			return amount, nil
		}
		p, err := c.Prices.Price(unit.StockID, day)
		if err != nil {
			return decimal.Zero, err
		}
		return c.Convert(amount.Mul(p.Price), p.Currency, to, day)
	default:
		return decimal.Zero, fmt.Errorf("unhandled unit kind: %q", unit.Kind)
	}
}
