package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the symbol printed before amounts.
const Currency = "N"

// Money formats d as N1,234.56 with the given number of decimal places.
func Money(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + Currency + b.String()
}
