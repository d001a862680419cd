// pkg/numbering/numbering.go

// Package numbering allocates invoice numbers.
package numbering

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Prefix starts every invoice number.
const Prefix = "INV-"

// Allocator hands out invoice numbers.
type Allocator interface {
	Next(ctx context.Context) (string, error)
}

// Counter is an increment-and-get sequence.
type Counter interface {
	Next(ctx context.Context) (int64, error)
}

// Sequential formats counter values as INV-001, INV-002, ...
type Sequential struct {
	Counter Counter
}

func NewSequential(c Counter) *Sequential {
	return &Sequential{Counter: c}
}

func (s *Sequential) Next(ctx context.Context) (string, error) {
	n, err := s.Counter.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next invoice sequence: %w", err)
	}
	return Format(n), nil
}

// Format renders n as an invoice number, zero-padded to three digits.
func Format(n int64) string {
	return fmt.Sprintf("%s%03d", Prefix, n)
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// ParseSuffix extracts the trailing number of an invoice number.
// Anything unparseable yields 0 so numbering fails open to INV-001.
func ParseSuffix(number string) int64 {
	m := trailingDigits.FindString(number)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LastNumberSource returns the most recently created invoice number.
type LastNumberSource interface {
	LastInvoiceNumber(ctx context.Context) (string, error)
}

// StoreCounter derives the next value from the last persisted invoice and
// remembers what it handed out, so consecutive calls in one process increase
// even before the previous invoice is saved. Separate processes can still
// collide; use RedisCounter or the Postgres counter when that matters.
type StoreCounter struct {
	Source LastNumberSource

	mu   sync.Mutex
	last int64
}

func NewStoreCounter(src LastNumberSource) *StoreCounter {
	return &StoreCounter{Source: src}
}

func (c *StoreCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	number, err := c.Source.LastInvoiceNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("read last invoice number: %w", err)
	}
	if n := ParseSuffix(number); n > c.last {
		c.last = n
	}
	c.last++
	return c.last, nil
}

// Opaque produces INV-<epoch ms>-<0..999> numbers that need no coordination.
type Opaque struct {
	Now  func() time.Time
	rand func(n int) int
}

func NewOpaque() *Opaque {
	return &Opaque{Now: time.Now, rand: rand.Intn}
}

func (o *Opaque) Next(ctx context.Context) (string, error) {
	now, intn := o.Now, o.rand
	if now == nil {
		now = time.Now
	}
	if intn == nil {
		intn = rand.Intn
	}
	return fmt.Sprintf("%s%d-%d", Prefix, now().UnixMilli(), intn(1000)), nil
}
