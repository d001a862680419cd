// pkg/invoice/parse.go

package invoice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CoercionPolicy decides what happens to malformed numeric input at the boundary.
type CoercionPolicy int

const (
	// Strict rejects missing or non-numeric quantities and rates.
	Strict CoercionPolicy = iota
	// Lenient replaces every missing or non-numeric quantity with 1 and every
	// missing or non-numeric rate with 0. Well-formed values that are out of range
	// are still rejected.
	Lenient
)

// ParseCoercionPolicy maps a config value to a policy.
func ParseCoercionPolicy(s string) (CoercionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	}
	return Strict, fmt.Errorf("unknown coercion policy %q", s)
}

func (p CoercionPolicy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

// RawItem is a line item as it arrives from an untyped client payload.
// TotalAmount is accepted for compatibility and ignored.
type RawItem struct {
	Name        string          `json:"name"`
	Quantity    json.RawMessage `json:"quantity"`
	Rate        json.RawMessage `json:"rate"`
	TotalAmount json.RawMessage `json:"totalAmount,omitempty"`
}

// ParseItems converts raw client items into LineItems under policy and then
// validates them. All violations are reported together.
func ParseItems(raw []RawItem, policy CoercionPolicy) ([]LineItem, error) {
	verr := &InvalidInputError{}
	if len(raw) == 0 {
		verr.add("products", "at least one product is required")
		return nil, verr
	}

	items := make([]LineItem, 0, len(raw))
	for i, r := range raw {
		field := fmt.Sprintf("products[%d]", i)
		item := LineItem{Name: strings.TrimSpace(r.Name)}

		qty, ok := parseNumber(r.Quantity)
		switch {
		case !ok && policy == Lenient:
			item.Quantity = 1
		case !ok:
			verr.add(field+".quantity", "quantity must be a number")
		case !qty.IsInteger():
			verr.add(field+".quantity", "quantity must be a whole number, got %s", qty.String())
		case qty.LessThan(decimal.NewFromInt(1)):
			verr.add(field+".quantity", "quantity must be at least 1, got %s", qty.String())
		case qty.GreaterThan(decimal.NewFromInt(MaxQuantity)):
			verr.add(field+".quantity", "quantity must be at most %d, got %s", MaxQuantity, qty.String())
		default:
			item.Quantity = int(qty.IntPart())
		}

		rate, ok := parseNumber(r.Rate)
		switch {
		case !ok && policy == Lenient:
			item.Rate = decimal.Zero
		case !ok:
			verr.add(field+".rate", "rate must be a number")
		default:
			item.Rate = rate
		}

		items = append(items, item)
	}
	if err := verr.err(); err != nil {
		return nil, err
	}
	if err := Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

// parseNumber accepts JSON numbers and numeric strings.
func parseNumber(msg json.RawMessage) (decimal.Decimal, bool) {
	s := strings.TrimSpace(string(msg))
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return decimal.Zero, false
		}
		s = strings.TrimSpace(unquoted)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
