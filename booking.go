package fintrack

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// BookingKind identifies a booking leg.
type BookingKind string

// Booking kinds, as persisted in the "type" field.
const (
	KindCharge       BookingKind = "charge"
	KindDeposit      BookingKind = "deposit"
	KindIncome       BookingKind = "income"
	KindExpense      BookingKind = "expense"
	KindAppreciation BookingKind = "appreciation"
	KindDepreciation BookingKind = "depreciation"
)

// Booking is one leg of a transaction. The set of implementations is closed:
// Charge, Deposit, Income, Expense, Appreciation and Depreciation.
// Amounts are always positive, the direction is the kind.
type Booking interface {
	Kind() BookingKind
	booking()
}

// Charge takes an amount out of an account.
type Charge struct {
	AccountID string
	Unit      Unit
	Amount    decimal.Decimal
}

// Deposit puts an amount into an account.
type Deposit struct {
	AccountID string
	Unit      Unit
	Amount    decimal.Decimal
}

// Income is money coming from outside the tracked accounts.
type Income struct {
	Currency   string
	CategoryID string
	Amount     decimal.Decimal
	Note       string
}

// Expense is money leaving the tracked accounts.
type Expense struct {
	Currency   string
	CategoryID string
	Amount     decimal.Decimal
	Note       string
}

// Appreciation raises the estimated value of a valuated account.
type Appreciation struct {
	Amount decimal.Decimal
}

// Depreciation lowers the estimated value of a valuated account.
type Depreciation struct {
	Amount decimal.Decimal
}

func (Charge) Kind() BookingKind       { return KindCharge }
func (Deposit) Kind() BookingKind      { return KindDeposit }
func (Income) Kind() BookingKind       { return KindIncome }
func (Expense) Kind() BookingKind      { return KindExpense }
func (Appreciation) Kind() BookingKind { return KindAppreciation }
func (Depreciation) Kind() BookingKind { return KindDepreciation }

func (Charge) booking()       {}
func (Deposit) booking()      {}
func (Income) booking()       {}
func (Expense) booking()      {}
func (Appreciation) booking() {}
func (Depreciation) booking() {}

func (b Charge) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", KindCharge)
	w.Append("accountId", b.AccountID)
	w.Append("unit", b.Unit)
	w.Append("amount", b.Amount)
	return w.MarshalJSON()
}

func (b Deposit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", KindDeposit)
	w.Append("accountId", b.AccountID)
	w.Append("unit", b.Unit)
	w.Append("amount", b.Amount)
	return w.MarshalJSON()
}

func (b Income) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", KindIncome)
	w.Append("currency", b.Currency)
	w.Append("categoryId", b.CategoryID)
	w.Append("amount", b.Amount)
	w.Optional("note", b.Note)
	return w.MarshalJSON()
}

func (b Expense) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", KindExpense)
	w.Append("currency", b.Currency)
	w.Append("categoryId", b.CategoryID)
	w.Append("amount", b.Amount)
	w.Optional("note", b.Note)
	return w.MarshalJSON()
}

func (b Appreciation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", KindAppreciation)
	w.Append("amount", b.Amount)
	return w.MarshalJSON()
}

func (b Depreciation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", KindDepreciation)
	w.Append("amount", b.Amount)
	return w.MarshalJSON()
}

// decodeBooking decodes a single booking object, dispatching on its "type".
func decodeBooking(data []byte) (Booking, error) {
	// Use a temporary type that has all possible fields.
	var temp struct {
		Type       BookingKind     `json:"type"`
		AccountID  string          `json:"accountId"`
		Unit       Unit            `json:"unit"`
		Currency   string          `json:"currency"`
		CategoryID string          `json:"categoryId"`
		Amount     decimal.Decimal `json:"amount"`
		Note       string          `json:"note"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return nil, fmt.Errorf("could not decode booking %s: %w", data, err)
	}
	switch temp.Type {
	case KindCharge:
		return Charge{AccountID: temp.AccountID, Unit: temp.Unit, Amount: temp.Amount}, nil
	case KindDeposit:
		return Deposit{AccountID: temp.AccountID, Unit: temp.Unit, Amount: temp.Amount}, nil
	case KindIncome:
		return Income{Currency: temp.Currency, CategoryID: temp.CategoryID, Amount: temp.Amount, Note: temp.Note}, nil
	case KindExpense:
		return Expense{Currency: temp.Currency, CategoryID: temp.CategoryID, Amount: temp.Amount, Note: temp.Note}, nil
	case KindAppreciation:
		return Appreciation{Amount: temp.Amount}, nil
	case KindDepreciation:
		return Depreciation{Amount: temp.Amount}, nil
	default:
		return nil, fmt.Errorf("unknown booking type: %q", temp.Type)
	}
}

// Bookings is a list of booking legs with a polymorphic JSON encoding.
type Bookings []Booking

// UnmarshalJSON decodes each booking according to its "type" field.
func (bs *Bookings) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("bookings must be a json array: %w", err)
	}
	list := make(Bookings, 0, len(raws))
	for _, raw := range raws {
		b, err := decodeBooking(raw)
		if err != nil {
			return err
		}
		list = append(list, b)
	}
	*bs = list
	return nil
}

// accountLeg returns the account, unit and signed amount of a Charge or a
// Deposit. ok is false for any other booking.
func accountLeg(b Booking) (accountID string, unit Unit, signed decimal.Decimal, ok bool) {
	switch b := b.(type) {
	case Charge:
		return b.AccountID, b.Unit, b.Amount.Neg(), true
	case Deposit:
		return b.AccountID, b.Unit, b.Amount, true
	}
	return "", Unit{}, decimal.Zero, false
}

// signedAmount returns the booking amount signed for the zero-sum rule:
// deposit and expense count positive, charge and income negative,
// depreciation positive and appreciation negative.
func signedAmount(b Booking) (decimal.Decimal, error) {
	switch b := b.(type) {
	case Charge:
		return b.Amount.Neg(), nil
	case Deposit:
		return b.Amount, nil
	case Income:
		return b.Amount.Neg(), nil
	case Expense:
		return b.Amount, nil
	case Appreciation:
		return b.Amount.Neg(), nil
	case Depreciation:
		return b.Amount, nil
	default:
		return decimal.Zero, fmt.Errorf("unhandled booking type: %T", b)
	}
}

// amountOf returns the (positive) amount of any booking.
func amountOf(b Booking) (decimal.Decimal, error) {
	switch b := b.(type) {
	case Charge:
		return b.Amount, nil
	case Deposit:
		return b.Amount, nil
	case Income:
		return b.Amount, nil
	case Expense:
		return b.Amount, nil
	case Appreciation:
		return b.Amount, nil
	case Depreciation:
		return b.Amount, nil
	default:
		return decimal.Zero, fmt.Errorf("unhandled booking type: %T", b)
	}
}
