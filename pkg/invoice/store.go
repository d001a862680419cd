// pkg/invoice/store.go

package invoice

import "context"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Store persists invoice data. PDF bytes are never stored.
// Placed in the invoice package so store implementations and the pipeline share it.
type Store interface {
	// Save assigns ID and CreatedAt to doc and writes it durably.
	Save(ctx context.Context, doc *Document) (string, error)
	// FindHistory lists the owner's invoices, newest first.
	FindHistory(ctx context.Context, ownerID string, page, pageSize int) ([]Summary, Pagination, error)
	// FindByID returns ErrNotFound unless the invoice exists and belongs to ownerID.
	FindByID(ctx context.Context, ownerID, invoiceID string) (*Document, error)
	// LastInvoiceNumber returns the number of the most recently created invoice
	// across all owners, or "" when there is none.
	LastInvoiceNumber(ctx context.Context) (string, error)
}

// Pagination is the metadata returned with a history page.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalInvoices"`
	PageSize    int  `json:"pageSize"`
	HasNext     bool `json:"hasNextPage"`
	HasPrev     bool `json:"hasPrevPage"`
}

// NormalizePage clamps page and pageSize to usable values.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// NewPagination derives all metadata from the total count and page size.
func NewPagination(page, pageSize, total int) Pagination {
	page, pageSize = NormalizePage(page, pageSize)
	totalPages := (total + pageSize - 1) / pageSize
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		PageSize:    pageSize,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// Offset is the number of rows skipped before the current page.
func (p Pagination) Offset() int {
	return (p.CurrentPage - 1) * p.PageSize
}
