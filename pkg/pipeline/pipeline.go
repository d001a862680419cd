// pkg/pipeline/pipeline.go

// Package pipeline composes validation, numbering, rendering and storage into
// the invoice generation flow.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
	"github.com/invoicing-microservice/invoicer/pkg/numbering"
)

const ContentType = "application/pdf"

// Renderer produces PDF bytes for a document.
type Renderer interface {
	Render(ctx context.Context, doc *invoice.Document) ([]byte, error)
}

// Archiver keeps a copy of a rendered PDF and returns where it went. Discard
// removes a copy whose invoice could not be saved.
type Archiver interface {
	Archive(ctx context.Context, doc *invoice.Document, pdf []byte) (string, error)
	Discard(ctx context.Context, key string) error
}

// Output is a rendered invoice ready to send to the client.
type Output struct {
	PDF         []byte
	Filename    string
	ContentType string
	Document    *invoice.Document
}

type Service struct {
	store    invoice.Store
	numbers  numbering.Allocator
	renderer Renderer
	archiver Archiver
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithArchiver uploads every generated PDF before the record is saved.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithClock sets the time used for the issued date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store invoice.Store, numbers numbering.Allocator, renderer Renderer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    store,
		numbers:  numbers,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate validates items, numbers and renders a new invoice, then saves it.
// Nothing is saved unless rendering succeeds, and a save failure discards the
// rendered bytes.
func (s *Service) Generate(ctx context.Context, ownerID string, issuer invoice.Customer, items []invoice.LineItem) (*Output, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &invoice.InvalidInputError{Violations: []invoice.Violation{{Field: "ownerId", Message: "owner is required"}}}
	}

	// Work on a copy; ComputeTotals rewrites line totals.
	items = append([]invoice.LineItem(nil), items...)
	totals, err := invoice.ComputeTotals(items)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, storeErr("allocate number", err)
	}

	doc := &invoice.Document{
		OwnerID:       ownerID,
		InvoiceNumber: number,
		Customer:      issuer,
		Items:         items,
		Totals:        totals,
		IssuedDate:    invoice.FormatDate(s.now(), invoice.DateShort),
	}
	log := s.logger.With(zap.String("owner_id", ownerID), zap.String("invoice_number", number))

	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, err
	}

	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, doc, pdf)
		if err != nil {
			log.Warn("invoice archive failed, continuing without copy", zap.Error(err))
		} else {
			doc.ArchiveKey = key
		}
	}

	if _, err := s.store.Save(ctx, doc); err != nil {
		log.Error("invoice save failed, discarding rendered pdf", zap.Error(err))
		if doc.ArchiveKey != "" {
			if derr := s.archiver.Discard(ctx, doc.ArchiveKey); derr != nil {
				log.Warn("archived copy of unsaved invoice left behind", zap.String("archive_key", doc.ArchiveKey), zap.Error(derr))
			}
		}
		return nil, storeErr("save", err)
	}

	log.Info("invoice generated",
		zap.String("invoice_id", doc.ID),
		zap.Int("items", len(doc.Items)),
		zap.String("final_amount", doc.Totals.GrandTotal.StringFixed(2)),
		zap.Int("bytes", len(pdf)),
	)
	return output(doc, pdf), nil
}

// Regenerate renders a stored invoice again. The record is not modified.
func (s *Service) Regenerate(ctx context.Context, ownerID, invoiceID string) (*Output, error) {
	doc, err := s.Invoice(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("invoice regenerated", zap.String("owner_id", ownerID), zap.String("invoice_number", doc.InvoiceNumber))
	return output(doc, pdf), nil
}

// History lists the owner's invoices, newest first.
func (s *Service) History(ctx context.Context, ownerID string, page, pageSize int) ([]invoice.Summary, invoice.Pagination, error) {
	list, p, err := s.store.FindHistory(ctx, ownerID, page, pageSize)
	if err != nil {
		return nil, invoice.Pagination{}, storeErr("history", err)
	}
	return list, p, nil
}

// Invoice returns one stored invoice or invoice.ErrNotFound.
func (s *Service) Invoice(ctx context.Context, ownerID, invoiceID string) (*invoice.Document, error) {
	doc, err := s.store.FindByID(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, storeErr("find", err)
	}
	return doc, nil
}

// Sample renders a fixed demonstration invoice without numbering or saving it.
func (s *Service) Sample(ctx context.Context) (*Output, error) {
	doc := SampleDocument()
	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	return output(doc, pdf), nil
}

// SampleDocument is the document used by Sample.
func SampleDocument() *invoice.Document {
	items := []invoice.LineItem{{Name: "Test Product", Quantity: 1, Rate: decimal.NewFromInt(100)}}
	totals, _ := invoice.ComputeTotals(items)
	return &invoice.Document{
		InvoiceNumber: "TEST-123",
		Customer:      invoice.Customer{Name: "Test User", Email: "test@example.com"},
		Items:         items,
		Totals:        totals,
		IssuedDate:    "22/08/25",
	}
}

func output(doc *invoice.Document, pdf []byte) *Output {
	return &Output{
		PDF:         pdf,
		Filename:    doc.Filename(),
		ContentType: ContentType,
		Document:    doc,
	}
}

func storeErr(op string, err error) error {
	var sf *invoice.StoreFailure
	if errors.Is(err, invoice.ErrNotFound) || errors.As(err, &sf) {
		return err
	}
	return &invoice.StoreFailure{Op: op, Err: err}
}
