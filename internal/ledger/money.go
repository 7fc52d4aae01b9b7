package ledger

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// ParseCurrencyInput converts raw keystrokes from a currency text field into an
// amount. Every non-digit is discarded and the remaining digits are read as
// cents, so "R$ 1.234,5" becomes 123.45. Input without digits yields zero.
func ParseCurrencyInput(s string) decimal.Decimal {
	var digits strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return decimal.Zero
	}

	cents, err := decimal.NewFromString(digits.String())
	if err != nil {
		return decimal.Zero
	}
	return cents.Shift(-2)
}

// FormatCurrencyInput renders an amount the way a currency text field shows it,
// e.g. "1234,50". Feeding the result back to ParseCurrencyInput yields the same
// amount rounded to cents.
func FormatCurrencyInput(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

// FormatBRL renders an amount for display in reais, e.g. "R$ 1.234,56".
// Rounding to cents happens here and nowhere else.
func FormatBRL(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return brl.Sprintf("R$ %v", number.Decimal(f, number.Scale(2)))
}

// Sum adds up amounts without intermediate rounding
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
