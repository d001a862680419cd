// pkg/invoice/invoice.go

package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is the GST surcharge applied to every invoice subtotal.
var TaxRate = decimal.RequireFromString("0.18")

// Customer is the snapshot of the requesting identity taken at issuance time.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LineItem represents one billable row on the invoice.
// LineTotal is always derived from Quantity and Rate by ComputeTotals.
type LineItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Rate      decimal.Decimal `json:"rate"`
	LineTotal decimal.Decimal `json:"totalAmount"`
}

// Totals holds the computed money fields. Values are kept at full precision;
// rounding happens only when they are formatted.
type Totals struct {
	Subtotal   decimal.Decimal `json:"totalCharges"`
	TaxAmount  decimal.Decimal `json:"gst"`
	GrandTotal decimal.Decimal `json:"finalAmount"`
}

// Document represents the invoice data model. It is created once at generation
// time and never mutated afterwards.
type Document struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"ownerId"`
	InvoiceNumber string     `json:"invoiceNumber"`
	Customer      Customer   `json:"customerInfo"`
	Items         []LineItem `json:"products"`
	Totals        Totals     `json:"totals"`
	IssuedDate    string     `json:"invoiceDate"`
	ArchiveKey    string     `json:"archiveKey,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Summary is the history view of a Document, without line items.
type Summary struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoiceNumber"`
	Customer      Customer  `json:"customerInfo"`
	Totals        Totals    `json:"totals"`
	IssuedDate    string    `json:"invoiceDate"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Summarize drops the line items of d.
func (d *Document) Summarize() Summary {
	return Summary{
		ID:            d.ID,
		InvoiceNumber: d.InvoiceNumber,
		Customer:      d.Customer,
		Totals:        d.Totals,
		IssuedDate:    d.IssuedDate,
		CreatedAt:     d.CreatedAt,
	}
}

// Filename is the suggested download name for the rendered document.
func (d *Document) Filename() string {
	return "invoice-" + d.InvoiceNumber + ".pdf"
}
