package numbering

import (
	"context"
	"errors"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	number string
	err    error
	calls  int
}

func (f *fakeSource) LastInvoiceNumber(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.number, f.err
}

func TestParseSuffix(t *testing.T) {
	cases := map[string]int64{
		"INV-001":             1,
		"INV-042":             42,
		"INV-1234":            1234,
		"INV-1700000000000-7": 7,
		"INV-":                0,
		"":                    0,
		"garbage":             0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseSuffix(in), in)
	}
	assert.Zero(t, ParseSuffix("INV-99999999999999999999"), "overflow fails open")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INV-001", Format(1))
	assert.Equal(t, "INV-099", Format(99))
	assert.Equal(t, "INV-1000", Format(1000))
}

func TestSequential_FailsOpenToFirstNumber(t *testing.T) {
	for _, last := range []string{"", "not-a-number"} {
		alloc := NewSequential(NewStoreCounter(&fakeSource{number: last}))
		got, err := alloc.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "INV-001", got)
	}
}

func TestSequential_ConsecutiveCallsIncrement(t *testing.T) {
	src := &fakeSource{number: "INV-041"}
	alloc := NewSequential(NewStoreCounter(src))
	ctx := context.Background()

	first, err := alloc.Next(ctx)
	require.NoError(t, err)
	second, err := alloc.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, "INV-042", first)
	assert.Equal(t, "INV-043", second)
	assert.Equal(t, ParseSuffix(first)+1, ParseSuffix(second))
}

func TestSequential_FollowsNewerPersistedNumber(t *testing.T) {
	src := &fakeSource{number: "INV-005"}
	alloc := NewSequential(NewStoreCounter(src))
	ctx := context.Background()

	got, err := alloc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-006", got)

	src.number = "INV-010"
	got, err = alloc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-011", got)
}

func TestSequential_SourceError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewSequential(NewStoreCounter(&fakeSource{err: boom})).Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestStoreCounter_ConcurrentCallsInProcessAreUnique(t *testing.T) {
	counter := NewStoreCounter(&fakeSource{})
	seen := make(chan int64, 50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := counter.Next(context.Background())
			assert.NoError(t, err)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for n := range seen {
		unique[n] = true
	}
	assert.Len(t, unique, 50)
}

func TestOpaque(t *testing.T) {
	o := &Opaque{
		Now:  func() time.Time { return time.UnixMilli(1724300000123) },
		rand: func(n int) int { return 7 },
	}
	got, err := o.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "INV-1724300000123-7", got)

	live, err := NewOpaque().Next(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INV-\d+-\d{1,3}$`), live)
}

func TestRedisCounter(t *testing.T) {
	url := os.Getenv("INVOICER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("INVOICER_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	key := "invoicer:test_seq:" + time.Now().Format("150405.000000")
	defer rdb.Del(ctx, key)

	counter := NewRedisCounter(rdb, key, &fakeSource{number: "INV-020"})
	alloc := NewSequential(counter)

	first, err := alloc.Next(ctx)
	require.NoError(t, err)
	second, err := alloc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-021", first)
	assert.Equal(t, "INV-022", second)
}
