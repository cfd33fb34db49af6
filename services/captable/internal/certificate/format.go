package certificate

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const maxFraction = 4

var (
	shareFormatter = money.NewFormatter(0, ".", ",", "", "1")

	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
)

func currencyOf(code string) *money.Currency {
	if cur := money.GetCurrency(code); cur != nil {
		return cur
	}
	return money.GetCurrency(money.USD)
}

// FormatMoney renders amount in the currency's minor unit precision, e.g.
// $10,500.00, extending to four fractional digits so sub-cent amounts are not
// shown as zero.
func FormatMoney(amount decimal.Decimal, code string) string {
	cur := currencyOf(code)
	fraction := cur.Fraction
	for fraction < maxFraction && !amount.Equal(amount.Round(int32(fraction))) {
		fraction++
	}
	minor := amount.Round(int32(fraction)).Shift(int32(fraction))
	if minor.Abs().GreaterThan(maxMinorUnits) {
		return formatWide(amount, fraction, cur)
	}
	f := money.NewFormatter(fraction, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	return f.Format(minor.IntPart())
}

// formatWide lays out amounts whose minor units overflow int64 the same way
// the money formatter does.
func formatWide(amount decimal.Decimal, fraction int, cur *money.Currency) string {
	whole, frac, _ := strings.Cut(amount.Abs().StringFixed(int32(fraction)), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(cur.Thousand)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(cur.Decimal)
		b.WriteString(frac)
	}

	out := strings.Replace(cur.Template, "1", b.String(), 1)
	out = strings.Replace(out, "$", cur.Grapheme, 1)
	if amount.IsNegative() {
		out = "-" + out
	}
	return out
}

func FormatShares(shares int64) string {
	return shareFormatter.Format(shares)
}
