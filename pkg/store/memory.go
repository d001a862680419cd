// pkg/store/memory.go

// Package store holds the invoice.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
)

// Memory keeps invoices in process. It is used for development and tests.
type Memory struct {
	mu   sync.RWMutex
	docs []*invoice.Document // insertion order
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// WithClock replaces the timestamp source.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Save(ctx context.Context, doc *invoice.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &invoice.StoreFailure{Op: "save", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc.ID = uuid.NewString()
	doc.CreatedAt = m.now()
	m.docs = append(m.docs, clone(doc))
	return doc.ID, nil
}

// newestFirst returns docs matching keep, sorted by CreatedAt desc with later
// inserts first on ties. Caller holds the read lock.
func (m *Memory) newestFirst(keep func(*invoice.Document) bool) []*invoice.Document {
	var out []*invoice.Document
	for i := len(m.docs) - 1; i >= 0; i-- {
		if keep(m.docs[i]) {
			out = append(out, m.docs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) FindHistory(ctx context.Context, ownerID string, page, pageSize int) ([]invoice.Summary, invoice.Pagination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owned := m.newestFirst(func(d *invoice.Document) bool { return d.OwnerID == ownerID })
	p := invoice.NewPagination(page, pageSize, len(owned))

	summaries := []invoice.Summary{}
	for i := p.Offset(); i < len(owned) && i < p.Offset()+p.PageSize; i++ {
		summaries = append(summaries, owned[i].Summarize())
	}
	return summaries, p, nil
}

func (m *Memory) FindByID(ctx context.Context, ownerID, invoiceID string) (*invoice.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.docs {
		if d.ID == invoiceID && d.OwnerID == ownerID {
			return clone(d), nil
		}
	}
	return nil, invoice.ErrNotFound
}

func (m *Memory) LastInvoiceNumber(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.newestFirst(func(*invoice.Document) bool { return true })
	if len(all) == 0 {
		return "", nil
	}
	return all[0].InvoiceNumber, nil
}

// Len reports how many invoices are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func clone(d *invoice.Document) *invoice.Document {
	c := *d
	c.Items = append([]invoice.LineItem(nil), d.Items...)
	return &c
}
