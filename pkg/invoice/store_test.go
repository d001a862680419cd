package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name              string
		page, size, total int
		want              Pagination
	}{
		{"second of two pages", 2, 10, 15, Pagination{CurrentPage: 2, TotalPages: 2, TotalCount: 15, PageSize: 10, HasNext: false, HasPrev: true}},
		{"first of two pages", 1, 10, 15, Pagination{CurrentPage: 1, TotalPages: 2, TotalCount: 15, PageSize: 10, HasNext: true, HasPrev: false}},
		{"empty", 1, 10, 0, Pagination{CurrentPage: 1, TotalPages: 0, TotalCount: 0, PageSize: 10}},
		{"defaults", 0, 0, 25, Pagination{CurrentPage: 1, TotalPages: 3, TotalCount: 25, PageSize: 10, HasNext: true}},
		{"page size capped", 1, 1000, 150, Pagination{CurrentPage: 1, TotalPages: 2, TotalCount: 150, PageSize: 100, HasNext: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPagination(tt.page, tt.size, tt.total))
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	assert.Equal(t, 10, NewPagination(2, 10, 15).Offset())
	assert.Equal(t, 0, NewPagination(1, 10, 15).Offset())
}

func TestFormatting(t *testing.T) {
	day := time.Date(2025, time.August, 2, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "02/08/25", FormatDate(day, DateShort))
	assert.Equal(t, "02/08/2025", FormatDate(day, DateLong))
	assert.Equal(t, "2025-08-02", FormatDate(day, DateISO))
	assert.Equal(t, "02/08/25", FormatDate(day, "unknown"))

	assert.Equal(t, "₹1234.50", FormatMoney(decimal.RequireFromString("1234.5"), "₹"))
	assert.Equal(t, "$0.01", FormatMoney(decimal.RequireFromString("0.005"), "$"))
}

func TestDocumentHelpers(t *testing.T) {
	doc := &Document{ID: "x", InvoiceNumber: "INV-007", Items: []LineItem{{Name: "a"}}}
	assert.Equal(t, "invoice-INV-007.pdf", doc.Filename())
	s := doc.Summarize()
	assert.Equal(t, "INV-007", s.InvoiceNumber)
	assert.Equal(t, "x", s.ID)
}
