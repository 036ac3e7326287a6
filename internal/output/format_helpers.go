package output

import (
	"strconv"

	"github.com/rpgo/trust-solvency/internal/domain"
	pkgdecimal "github.com/rpgo/trust-solvency/pkg/decimal"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCurrency formats a decimal as grouped USD with 2 decimals.
func FormatCurrency(amount decimal.Decimal) string {
	return pkgdecimal.NewMoneyFromDecimal(amount).Format()
}

// FormatBalance abbreviates fund-sized amounts ("$163.0B").
func FormatBalance(amount decimal.Decimal) string {
	return pkgdecimal.NewMoneyFromDecimal(amount).Scaled()
}

// FormatOptionalBalance is FormatBalance for simulator-written columns.
func FormatOptionalBalance(amount *decimal.Decimal) string {
	if amount == nil {
		return "n/a"
	}
	return FormatBalance(*amount)
}

// FormatPercentage formats a ratio as a percentage with 2 decimals; non-finite ratios read "n/a".
func FormatPercentage(r domain.Ratio) string {
	if !r.IsFinite() {
		return "n/a"
	}
	return printer.Sprintf("%.2f", float64(r)*100) + "%"
}

// FormatCount groups thousands ("1,234,567").
func FormatCount(n int64) string { return printer.Sprintf("%d", n) }

// formatRatio is the machine form used in CSV cells; non-finite ratios are left empty.
func formatRatio(r domain.Ratio) string {
	if !r.IsFinite() {
		return ""
	}
	return strconv.FormatFloat(float64(r), 'f', -1, 64)
}

func formatOptional(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}

func intToString(i int64) string { return strconv.FormatInt(i, 10) }
