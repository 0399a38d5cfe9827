package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount rounds d to a whole number, half to even, and renders it with
// thousands separators: 1234567.5 -> "1,234,568".
func FormatAmount(d decimal.Decimal) string {
	whole := d.RoundBank(0)
	if whole.BigInt().IsInt64() {
		return amountPrinter.Sprintf("%d", whole.IntPart())
	}
	return groupDigits(whole.String())
}

// groupDigits inserts a comma every three digits of an integer string.
func groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatFloat is FormatAmount for a float64 value.
func FormatFloat(f float64) string {
	return FormatAmount(decimal.NewFromFloat(f))
}
