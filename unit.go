package fintrack

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// UnitKind tells what an account balance counts.
type UnitKind string

const (
	CurrencyUnit UnitKind = "currency"
	StockUnit    UnitKind = "stock"
)

// Unit is what an account is denominated in: a currency or a stock.
type Unit struct {
	Kind     UnitKind `json:"kind"`
	Currency string   `json:"currency,omitempty"`
	StockID  string   `json:"stockId,omitempty"`
}

// CurrencyOf returns the unit of a currency code.
func CurrencyOf(code string) Unit { return Unit{Kind: CurrencyUnit, Currency: code} }

// StockOf returns the unit of a stock.
func StockOf(stockID string) Unit { return Unit{Kind: StockUnit, StockID: stockID} }

// Key identifies the unit among all currencies and stocks.
func (u Unit) Key() string {
	if u.Kind == StockUnit {
		return "stock:" + u.StockID
	}
	return "currency:" + u.Currency
}

func (u Unit) String() string {
	if u.Kind == StockUnit {
		return u.StockID
	}
	return u.Currency
}

// Validate checks that the unit is a known currency or a named stock.
func (u Unit) Validate() error {
	switch u.Kind {
	case CurrencyUnit:
		return ValidateCurrency(u.Currency)
	case StockUnit:
		if u.StockID == "" {
			return fmt.Errorf("stock unit without stock id")
		}
		return nil
	default:
		return fmt.Errorf("unknown unit kind %q", u.Kind)
	}
}

// ValidateCurrency checks that code is a known ISO 4217 currency code.
func ValidateCurrency(code string) error {
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("invalid currency code %q", code)
	}
	return nil
}

// RoundCurrency rounds amount to the number of decimals of the currency, for
// display. Unknown currencies are rounded to 2 decimals.
func RoundCurrency(amount decimal.Decimal, code string) decimal.Decimal {
	places := int32(2)
	if c := money.GetCurrency(code); c != nil {
		places = int32(c.Fraction)
	}
	return amount.Round(places)
}
