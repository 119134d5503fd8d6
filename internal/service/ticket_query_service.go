package service

import (
	"context"
	"time"

	"github.com/spec-kit/eservice/internal/domain"
	"github.com/spec-kit/eservice/internal/repository"
	"github.com/spec-kit/eservice/pkg/util/errorutil"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// TicketListFilter selects a page of tickets. Nil filters are ignored.
// A zero Limit means DefaultListLimit.
type TicketListFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	CustomerID *string
	Skip       int
	Limit      int
}

// TicketQueryService serves filtered, newest-first ticket lists. Lists are
// read straight from the store.
//
// Pagination is offset based: a ticket created between two page requests
// shifts every later page by one.
type TicketQueryService struct {
	tickets   repository.TicketRepository
	opTimeout time.Duration
}

func NewTicketQueryService(deps TicketDependencies) *TicketQueryService {
	deps = deps.withDefaults()
	return &TicketQueryService{tickets: deps.TicketRepo, opTimeout: deps.OpTimeout}
}

// List returns tickets matching every supplied filter, ordered by created_at
// descending with id as the tie-break.
func (s *TicketQueryService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	if filter.Limit == 0 {
		filter.Limit = DefaultListLimit
	}
	if err := validateListFilter(filter); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	tickets, err := s.tickets.Query(opCtx, repository.TicketQuery{
		Status:     filter.Status,
		Priority:   filter.Priority,
		CustomerID: filter.CustomerID,
		Offset:     filter.Skip,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, translateStoreError("list_tickets", "", s.opTimeout, err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

func validateListFilter(f TicketListFilter) error {
	fields := map[string]string{}
	if f.Skip < 0 {
		fields["skip"] = "must be greater than or equal to 0"
	}
	if f.Limit < 1 || f.Limit > MaxListLimit {
		fields["limit"] = "must be between 1 and 100"
	}
	if f.Status != nil && !f.Status.Valid() {
		fields["status"] = "is not a valid status"
	}
	if f.Priority != nil && !f.Priority.Valid() {
		fields["priority"] = "is not a valid priority"
	}
	if len(fields) > 0 {
		return errorutil.NewValidationError("Invalid list parameters", map[string]any{"fields": fields})
	}
	return nil
}
