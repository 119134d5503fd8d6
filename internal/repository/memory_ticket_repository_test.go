package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/eservice/internal/domain"
)

var baseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTicket(n int, status domain.TicketStatus, priority domain.TicketPriority, customer string) *domain.Ticket {
	created := baseTime.Add(time.Duration(n) * time.Minute)
	return &domain.Ticket{
		ID:            uuid.NewString(),
		TicketNumber:  fmt.Sprintf("TKT-%06d", n),
		CustomerID:    customer,
		CustomerName:  "Alice",
		CustomerEmail: "a@x.com",
		Title:         fmt.Sprintf("ticket %d", n),
		Description:   "desc",
		Category:      "auth",
		Status:        status,
		Priority:      priority,
		CreatedAt:     created,
		UpdatedAt:     created,
		Tags:          []string{},
	}
}

func TestMemoryInsertAndFind(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	ticket := newTicket(1, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c1")

	require.NoError(t, repo.Insert(ctx, ticket))

	got, err := repo.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket, got)

	got.Title = "changed"
	again, err := repo.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "ticket 1", again.Title)
}

func TestMemoryFindMissing(t *testing.T) {
	_, err := NewMemoryTicketRepository().FindByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryInsertRejectsDuplicateNumber(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	first := newTicket(1, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c1")
	require.NoError(t, repo.Insert(ctx, first))

	dup := newTicket(1, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c2")
	assert.ErrorIs(t, repo.Insert(ctx, dup), ErrConflict)

	sameID := newTicket(2, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c2")
	sameID.ID = first.ID
	assert.ErrorIs(t, repo.Insert(ctx, sameID), ErrConflict)
}

func TestMemoryUpdateAppliesMutation(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	ticket := newTicket(1, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c1")
	require.NoError(t, repo.Insert(ctx, ticket))

	updated, err := repo.Update(ctx, ticket.ID, func(t *domain.Ticket) error {
		t.Status = domain.TicketStatusResolved
		t.TicketNumber = "TKT-999999"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	assert.Equal(t, ticket.TicketNumber, updated.TicketNumber)

	stored, err := repo.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
}

func TestMemoryUpdateRollsBackOnError(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	ticket := newTicket(1, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c1")
	require.NoError(t, repo.Insert(ctx, ticket))

	boom := errors.New("boom")
	_, err := repo.Update(ctx, ticket.ID, func(t *domain.Ticket) error {
		t.Status = domain.TicketStatusClosed
		t.Tags = append(t.Tags, "x")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket, stored)
}

func TestMemoryUpdateMissing(t *testing.T) {
	_, err := NewMemoryTicketRepository().Update(context.Background(), "nope", func(*domain.Ticket) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryQueryFiltersAndOrders(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	fixtures := []*domain.Ticket{
		newTicket(1, domain.TicketStatusOpen, domain.TicketPriorityHigh, "c1"),
		newTicket(2, domain.TicketStatusOpen, domain.TicketPriorityLow, "c1"),
		newTicket(3, domain.TicketStatusClosed, domain.TicketPriorityHigh, "c2"),
		newTicket(4, domain.TicketStatusOpen, domain.TicketPriorityHigh, "c2"),
	}
	for _, f := range fixtures {
		require.NoError(t, repo.Insert(ctx, f))
	}

	status := domain.TicketStatusOpen
	priority := domain.TicketPriorityHigh
	got, err := repo.Query(ctx, TicketQuery{Status: &status, Priority: &priority, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, fixtures[3].ID, got[0].ID)
	assert.Equal(t, fixtures[0].ID, got[1].ID)

	customer := "c2"
	got, err = repo.Query(ctx, TicketQuery{CustomerID: &customer, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, fixtures[3].ID, got[0].ID)
	assert.Equal(t, fixtures[2].ID, got[1].ID)
}

func TestMemoryQueryPaginates(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	for i := 1; i <= 25; i++ {
		require.NoError(t, repo.Insert(ctx, newTicket(i, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c1")))
	}

	page, err := repo.Query(ctx, TicketQuery{Offset: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 10)
	// newest first: rank 11 is ticket 15, rank 20 is ticket 6
	assert.Equal(t, "TKT-000015", page[0].TicketNumber)
	assert.Equal(t, "TKT-000006", page[9].TicketNumber)

	tail, err := repo.Query(ctx, TicketQuery{Offset: 20, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, tail, 5)

	empty, err := repo.Query(ctx, TicketQuery{Offset: 50, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryQueryBreaksTiesByID(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	a := newTicket(1, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c1")
	b := newTicket(2, domain.TicketStatusOpen, domain.TicketPriorityMedium, "c1")
	a.ID = "00000000-0000-0000-0000-00000000000a"
	b.ID = "00000000-0000-0000-0000-00000000000b"
	b.CreatedAt = a.CreatedAt
	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))

	for i := 0; i < 3; i++ {
		got, err := repo.Query(ctx, TicketQuery{Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, b.ID, got[0].ID)
		assert.Equal(t, a.ID, got[1].ID)
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repo.Insert(ctx, newTicket(1, domain.TicketStatusOpen, domain.TicketPriorityLow, "c1")), context.Canceled)
	_, err := repo.Query(ctx, TicketQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryAuditRepository(t *testing.T) {
	repo := NewMemoryAuditRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, &domain.AuditEntry{ID: "2", EntityType: "ticket", EntityID: "t1", CreatedAt: baseTime.Add(time.Second)}))
	require.NoError(t, repo.Insert(ctx, &domain.AuditEntry{ID: "1", EntityType: "ticket", EntityID: "t1", CreatedAt: baseTime}))
	require.NoError(t, repo.Insert(ctx, &domain.AuditEntry{ID: "3", EntityType: "ticket", EntityID: "t2", CreatedAt: baseTime}))

	entries, err := repo.ListByEntity(ctx, "ticket", "t1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "2", entries[1].ID)

	none, err := repo.ListByEntity(ctx, "ticket", "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
