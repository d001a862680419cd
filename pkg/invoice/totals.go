// pkg/invoice/totals.go

package invoice

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity a line item may carry. It matches the
// INT column items are stored in.
const MaxQuantity = math.MaxInt32

// Validate checks the preconditions of ComputeTotals without touching items.
func Validate(items []LineItem) error {
	verr := &InvalidInputError{}
	if len(items) == 0 {
		verr.add("products", "at least one product is required")
		return verr
	}
	for i, item := range items {
		field := fmt.Sprintf("products[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			verr.add(field+".name", "name is required")
		}
		if item.Quantity < 1 {
			verr.add(field+".quantity", "quantity must be at least 1, got %d", item.Quantity)
		}
		if item.Quantity > MaxQuantity {
			verr.add(field+".quantity", "quantity must be at most %d, got %d", MaxQuantity, item.Quantity)
		}
		if item.Rate.IsNegative() {
			verr.add(field+".rate", "rate must not be negative, got %s", item.Rate.String())
		}
	}
	return verr.err()
}

// ComputeTotals recomputes every LineTotal as Quantity x Rate and returns the
// subtotal, tax and grand total. Any caller-supplied LineTotal is overwritten.
func ComputeTotals(items []LineItem) (Totals, error) {
	if err := Validate(items); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	for i := range items {
		items[i].LineTotal = items[i].Rate.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		subtotal = subtotal.Add(items[i].LineTotal)
	}
	tax := subtotal.Mul(TaxRate)

	return Totals{
		Subtotal:   subtotal,
		TaxAmount:  tax,
		GrandTotal: subtotal.Add(tax),
	}, nil
}
