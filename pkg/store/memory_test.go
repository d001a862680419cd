package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
)

func newDoc(owner, number string) *invoice.Document {
	items := []invoice.LineItem{{Name: "Widget", Quantity: 2, Rate: decimal.NewFromInt(100)}}
	totals, _ := invoice.ComputeTotals(items)
	return &invoice.Document{
		OwnerID:       owner,
		InvoiceNumber: number,
		Customer:      invoice.Customer{Name: "Asha", Email: "asha@example.com"},
		Items:         items,
		Totals:        totals,
		IssuedDate:    "22/08/25",
	}
}

// tickingClock advances one second per call so creation order is unambiguous.
func tickingClock() func() time.Time {
	t := time.Date(2025, time.August, 22, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestMemory_SaveAssignsIDAndTimestamp(t *testing.T) {
	m := NewMemory()
	doc := newDoc("owner-1", "INV-001")

	id, err := m.Save(context.Background(), doc)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())
	assert.Equal(t, 1, m.Len())
}

func TestMemory_HistoryPagination(t *testing.T) {
	ctx := context.Background()
	m := NewMemory().WithClock(tickingClock())
	for i := 1; i <= 15; i++ {
		_, err := m.Save(ctx, newDoc("owner-1", fmt.Sprintf("INV-%03d", i)))
		require.NoError(t, err)
	}
	_, err := m.Save(ctx, newDoc("owner-2", "INV-016"))
	require.NoError(t, err)

	page2, p, err := m.FindHistory(ctx, "owner-1", 2, 10)
	require.NoError(t, err)
	assert.Len(t, page2, 5)
	assert.Equal(t, invoice.Pagination{CurrentPage: 2, TotalPages: 2, TotalCount: 15, PageSize: 10, HasNext: false, HasPrev: true}, p)
	assert.Equal(t, "INV-005", page2[0].InvoiceNumber)
	assert.Equal(t, "INV-001", page2[4].InvoiceNumber)

	page1, p, err := m.FindHistory(ctx, "owner-1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page1, 10)
	assert.Equal(t, "INV-015", page1[0].InvoiceNumber, "newest first")
	assert.True(t, p.HasNext)
	assert.False(t, p.HasPrev)

	empty, p, err := m.FindHistory(ctx, "nobody", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 0, p.TotalPages)
}

func TestMemory_FindByIDIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	doc := newDoc("owner-1", "INV-001")
	id, err := m.Save(ctx, doc)
	require.NoError(t, err)

	got, err := m.FindByID(ctx, "owner-1", id)
	require.NoError(t, err)
	assert.Equal(t, "INV-001", got.InvoiceNumber)
	assert.Equal(t, doc.Items, got.Items)

	_, err = m.FindByID(ctx, "owner-2", id)
	assert.ErrorIs(t, err, invoice.ErrNotFound)

	_, err = m.FindByID(ctx, "owner-1", "missing")
	assert.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	doc := newDoc("owner-1", "INV-001")
	id, err := m.Save(ctx, doc)
	require.NoError(t, err)

	doc.Items[0].Name = "mutated after save"
	got, err := m.FindByID(ctx, "owner-1", id)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Items[0].Name)
}

func TestMemory_LastInvoiceNumber(t *testing.T) {
	ctx := context.Background()
	m := NewMemory().WithClock(tickingClock())

	last, err := m.LastInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Empty(t, last)

	for _, n := range []string{"INV-001", "INV-002", "INV-003"} {
		_, err := m.Save(ctx, newDoc("owner-"+n, n))
		require.NoError(t, err)
	}
	last, err = m.LastInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-003", last)
}

func TestMemory_SaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Save(ctx, newDoc("o", "INV-001"))
	var sf *invoice.StoreFailure
	assert.ErrorAs(t, err, &sf)
}
