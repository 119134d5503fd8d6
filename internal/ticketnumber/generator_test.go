package ticketnumber

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "TKT-000001", Format(1))
	assert.Equal(t, "TKT-000042", Format(42))
	assert.Equal(t, "TKT-999999", Format(999999))
	assert.Equal(t, "TKT-1000000", Format(1000000))
}

func TestGeneratorSequence(t *testing.T) {
	g := NewGenerator(NewMemoryCounter(0))
	ctx := context.Background()

	first, err := g.Next(ctx)
	require.NoError(t, err)
	second, err := g.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, "TKT-000001", first)
	assert.Equal(t, "TKT-000002", second)
}

func TestMemoryCounterResumesAfterStart(t *testing.T) {
	g := NewGenerator(NewMemoryCounter(41))
	got, err := g.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TKT-000042", got)
}

func TestGeneratorConcurrentUnique(t *testing.T) {
	g := NewGenerator(NewMemoryCounter(0))
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := g.Next(ctx)
			if err == nil {
				results <- num
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{}, n)
	for num := range results {
		_, dup := seen[num]
		require.False(t, dup, "duplicate ticket number %s", num)
		seen[num] = struct{}{}
	}
	assert.Len(t, seen, n)
}

type failingStore struct{ err error }

func (f failingStore) Next(context.Context) (int64, error) { return 0, f.err }

func TestGeneratorPropagatesStoreError(t *testing.T) {
	boom := errors.New("sequence unavailable")
	_, err := NewGenerator(failingStore{err: boom}).Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestMemoryCounterHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryCounter(0).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
