// pkg/invoice/format.go

package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts used on documents and in exports.
const (
	DateShort = "02/01/06"   // DD/MM/YY, the layout printed on invoices
	DateLong  = "02/01/2006" // DD/MM/YYYY
	DateISO   = "2006-01-02" // YYYY-MM-DD
)

// FormatDate renders t with one of the Date* layouts, defaulting to DateShort.
func FormatDate(t time.Time, layout string) string {
	switch layout {
	case DateShort, DateLong, DateISO:
	default:
		layout = DateShort
	}
	return t.Format(layout)
}

// FormatMoney rounds v to two places and prefixes the currency glyph.
func FormatMoney(v decimal.Decimal, symbol string) string {
	return symbol + v.StringFixed(2)
}
