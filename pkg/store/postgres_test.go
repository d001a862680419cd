package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
)

func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("INVOICER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("INVOICER_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgres(db)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestPostgres_RoundTrip(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()
	prefix := "INV-T" + uuid.NewString()[:8] + "-"

	var ids []string
	for i := 1; i <= 15; i++ {
		id, err := s.Save(ctx, newDoc(owner, fmt.Sprintf("%s%03d", prefix, i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	page2, p, err := s.FindHistory(ctx, owner, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page2, 5)
	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrev)

	doc, err := s.FindByID(ctx, owner, ids[0])
	require.NoError(t, err)
	assert.Equal(t, prefix+"001", doc.InvoiceNumber)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "200", doc.Items[0].LineTotal.String())
	assert.Equal(t, "36", doc.Totals.TaxAmount.String())

	_, err = s.FindByID(ctx, "someone-else", ids[0])
	assert.ErrorIs(t, err, invoice.ErrNotFound)
	_, err = s.FindByID(ctx, owner, "not-a-uuid")
	assert.ErrorIs(t, err, invoice.ErrNotFound)

	_, err = s.Save(ctx, newDoc(owner, prefix+"001"))
	assert.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestPostgres_Counter(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()
	c := s.Counter("test-" + uuid.NewString())

	first, err := c.Next(ctx)
	require.NoError(t, err)
	second, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}
