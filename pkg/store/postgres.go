// pkg/store/postgres.go

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/invoicing-microservice/invoicer/pkg/invoice"
	"github.com/invoicing-microservice/invoicer/pkg/numbering"
)

//go:embed schema.sql
var schema string

// ErrDuplicateNumber is wrapped in the StoreFailure returned when an invoice
// number is already taken.
var ErrDuplicateNumber = errors.New("invoice number already exists")

// Open connects to PostgreSQL and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Postgres stores invoice headers and items in two tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Save writes the header and every item in one transaction.
func (s *Postgres) Save(ctx context.Context, doc *invoice.Document) (id string, err error) {
	fail := func(err error) (string, error) {
		return "", &invoice.StoreFailure{Op: "save", Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	newID := uuid.New()
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		INSERT INTO invoices (id, owner_id, invoice_number, customer_name, customer_email,
			total_charges, gst, final_amount, invoice_date, archive_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		newID,
		doc.OwnerID,
		doc.InvoiceNumber,
		doc.Customer.Name,
		doc.Customer.Email,
		doc.Totals.Subtotal,
		doc.Totals.TaxAmount,
		doc.Totals.GrandTotal,
		doc.IssuedDate,
		doc.ArchiveKey,
	).Scan(&createdAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fail(fmt.Errorf("%w: %s", ErrDuplicateNumber, doc.InvoiceNumber))
		}
		return fail(fmt.Errorf("insert invoice: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invoice_items (invoice_id, position, name, quantity, rate, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fail(fmt.Errorf("prepare item insert: %w", err))
	}
	defer stmt.Close()

	for i, item := range doc.Items {
		if _, err = stmt.ExecContext(ctx, newID, i, item.Name, item.Quantity, item.Rate, item.LineTotal); err != nil {
			return fail(fmt.Errorf("insert item %d: %w", i, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}
	doc.ID = newID.String()
	doc.CreatedAt = createdAt
	return doc.ID, nil
}

const summaryColumns = `id, invoice_number, customer_name, customer_email,
	total_charges, gst, final_amount, invoice_date, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner, s *invoice.Summary) error {
	return row.Scan(
		&s.ID,
		&s.InvoiceNumber,
		&s.Customer.Name,
		&s.Customer.Email,
		&s.Totals.Subtotal,
		&s.Totals.TaxAmount,
		&s.Totals.GrandTotal,
		&s.IssuedDate,
		&s.CreatedAt,
	)
}

func (s *Postgres) FindHistory(ctx context.Context, ownerID string, page, pageSize int) ([]invoice.Summary, invoice.Pagination, error) {
	fail := func(err error) ([]invoice.Summary, invoice.Pagination, error) {
		return nil, invoice.Pagination{}, &invoice.StoreFailure{Op: "history", Err: err}
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return fail(fmt.Errorf("count invoices: %w", err))
	}
	p := invoice.NewPagination(page, pageSize, total)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM invoices
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, ownerID, p.PageSize, p.Offset())
	if err != nil {
		return fail(fmt.Errorf("query invoices: %w", err))
	}
	defer rows.Close()

	summaries := []invoice.Summary{}
	for rows.Next() {
		var sum invoice.Summary
		if err := scanSummary(rows, &sum); err != nil {
			return fail(fmt.Errorf("scan invoice: %w", err))
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return fail(err)
	}
	return summaries, p, nil
}

func (s *Postgres) FindByID(ctx context.Context, ownerID, invoiceID string) (*invoice.Document, error) {
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return nil, invoice.ErrNotFound
	}
	fail := func(err error) (*invoice.Document, error) {
		return nil, &invoice.StoreFailure{Op: "find", Err: err}
	}

	var sum invoice.Summary
	var archiveKey string
	row := s.db.QueryRowContext(ctx, `
		SELECT `+summaryColumns+`, archive_key, owner_id
		FROM invoices
		WHERE id = $1 AND owner_id = $2`, id, ownerID)
	var owner string
	err = row.Scan(
		&sum.ID, &sum.InvoiceNumber, &sum.Customer.Name, &sum.Customer.Email,
		&sum.Totals.Subtotal, &sum.Totals.TaxAmount, &sum.Totals.GrandTotal,
		&sum.IssuedDate, &sum.CreatedAt, &archiveKey, &owner,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invoice.ErrNotFound
	}
	if err != nil {
		return fail(fmt.Errorf("fetch invoice: %w", err))
	}

	doc := &invoice.Document{
		ID:            sum.ID,
		OwnerID:       owner,
		InvoiceNumber: sum.InvoiceNumber,
		Customer:      sum.Customer,
		Totals:        sum.Totals,
		IssuedDate:    sum.IssuedDate,
		ArchiveKey:    archiveKey,
		CreatedAt:     sum.CreatedAt,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, quantity, rate, line_total
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position`, id)
	if err != nil {
		return fail(fmt.Errorf("fetch items: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var item invoice.LineItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.Rate, &item.LineTotal); err != nil {
			return fail(fmt.Errorf("scan item: %w", err))
		}
		doc.Items = append(doc.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fail(err)
	}
	return doc, nil
}

func (s *Postgres) LastInvoiceNumber(ctx context.Context) (string, error) {
	var number string
	err := s.db.QueryRowContext(ctx, `SELECT invoice_number FROM invoices ORDER BY created_at DESC LIMIT 1`).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", &invoice.StoreFailure{Op: "last number", Err: err}
	}
	return number, nil
}

// Counter returns an atomic sequence stored in invoice_counters. A new
// sequence starts after the last persisted invoice number.
func (s *Postgres) Counter(name string) *PostgresCounter {
	return &PostgresCounter{store: s, name: name}
}

type PostgresCounter struct {
	store *Postgres
	name  string
}

func (c *PostgresCounter) Next(ctx context.Context) (int64, error) {
	var n int64
	err := c.store.db.QueryRowContext(ctx,
		`UPDATE invoice_counters SET value = value + 1 WHERE name = $1 RETURNING value`, c.name).Scan(&n)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment counter %s: %w", c.name, err)
	}

	last, err := c.store.LastInvoiceNumber(ctx)
	if err != nil {
		return 0, err
	}
	// Two first callers race here; ON CONFLICT turns the loser into an increment.
	err = c.store.db.QueryRowContext(ctx, `
		INSERT INTO invoice_counters (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = invoice_counters.value + 1
		RETURNING value`, c.name, numbering.ParseSuffix(last)+1).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("seed counter %s: %w", c.name, err)
	}
	return n, nil
}
