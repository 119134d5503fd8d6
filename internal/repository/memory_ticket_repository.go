package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/eservice/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. Callers always
// receive copies, so stored state only changes through Insert and Update.
type MemoryTicketRepository struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Ticket
	byNumber map[string]string
}

// NewMemoryTicketRepository builds an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		byID:     make(map[string]*domain.Ticket),
		byNumber: make(map[string]string),
	}
}

func (r *MemoryTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[ticket.ID]; exists {
		return ErrConflict
	}
	if _, exists := r.byNumber[ticket.TicketNumber]; exists {
		return ErrConflict
	}
	r.byID[ticket.ID] = ticket.Clone()
	r.byNumber[ticket.TicketNumber] = ticket.ID
	return nil
}

func (r *MemoryTicketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *MemoryTicketRepository) Update(ctx context.Context, id string, mutate MutateFunc) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := stored.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// identity fields are immutable
	working.ID = stored.ID
	working.TicketNumber = stored.TicketNumber
	working.CreatedAt = stored.CreatedAt

	r.byID[id] = working
	return working.Clone(), nil
}

func (r *MemoryTicketRepository) Query(ctx context.Context, q TicketQuery) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	matches := make([]*domain.Ticket, 0, len(r.byID))
	for _, ticket := range r.byID {
		if q.Status != nil && ticket.Status != *q.Status {
			continue
		}
		if q.Priority != nil && ticket.Priority != *q.Priority {
			continue
		}
		if q.CustomerID != nil && ticket.CustomerID != *q.CustomerID {
			continue
		}
		matches = append(matches, ticket.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	result := []domain.Ticket{}
	for i := offset; i < len(matches) && len(result) < limit; i++ {
		result = append(result, *matches[i])
	}
	return result, nil
}
