package ticketnumber

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Prefix starts every human-readable ticket number.
const Prefix = "TKT-"

const counterWidth = 6

// CounterStore hands out strictly increasing values. Implementations must be
// atomic across concurrent callers; a value is never handed out twice.
type CounterStore interface {
	Next(ctx context.Context) (int64, error)
}

// Generator turns counter values into ticket numbers.
type Generator struct {
	store CounterStore
}

func NewGenerator(store CounterStore) *Generator {
	return &Generator{store: store}
}

// Next reserves the next ticket number. Reserved values are not returned to the
// pool when the caller fails to persist the ticket, so numbers may have gaps.
func (g *Generator) Next(ctx context.Context) (string, error) {
	seq, err := g.store.Next(ctx)
	if err != nil {
		return "", err
	}
	return Format(seq), nil
}

// Format renders seq as TKT-000042.
func Format(seq int64) string {
	return fmt.Sprintf("%s%0*d", Prefix, counterWidth, seq)
}

// MemoryCounter is a process-local CounterStore.
type MemoryCounter struct {
	value atomic.Int64
}

// NewMemoryCounter starts counting after start; the first Next returns start+1.
func NewMemoryCounter(start int64) *MemoryCounter {
	c := &MemoryCounter{}
	c.value.Store(start)
	return c
}

func (c *MemoryCounter) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.value.Add(1), nil
}
