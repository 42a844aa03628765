package renderer

import (
	"bytes"
	"io"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/etnz/fintrack"
	"github.com/shopspring/decimal"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// amount formats v rounded to the decimals of currency, with thousands separators.
func amount(v decimal.Decimal, currency string) string {
	fraction := 2
	if c := money.GetCurrency(currency); c != nil {
		fraction = c.Fraction
	}
	minor := fintrack.RoundCurrency(v, currency).Shift(int32(fraction)).IntPart()
	return money.NewFormatter(fraction, ".", ",", "", "1").Format(minor)
}

// signed is like amount with an explicit "+" on positive values.
func signed(v decimal.Decimal, currency string) string {
	if fintrack.RoundCurrency(v, currency).IsPositive() {
		return "+" + amount(v, currency)
	}
	return amount(v, currency)
}

// escape makes s safe in a markdown table cell.
func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
