package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/eservice/internal/domain"
	"github.com/spec-kit/eservice/internal/events"
	"github.com/spec-kit/eservice/internal/repository"
	"github.com/spec-kit/eservice/pkg/util/errorutil"
)

const entityTypeTicket = "ticket"

// AuditService records ticket events into the audit trail.
type AuditService struct {
	dispatcher events.Dispatcher
	audit      repository.AuditRepository
	logger     *zap.Logger
	opTimeout  time.Duration
}

// NewAuditService creates the service. Call RegisterHandlers to start recording.
func NewAuditService(dispatcher events.Dispatcher, audit repository.AuditRepository, logger *zap.Logger, opTimeout time.Duration) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &AuditService{
		dispatcher: dispatcher,
		audit:      audit,
		logger:     logger,
		opTimeout:  opTimeout,
	}
}

// RegisterHandlers subscribes to ticket events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventTicketUpdated, a.handleTicketUpdated)
}

// TicketHistory lists audit entries for a ticket, oldest first.
func (a *AuditService) TicketHistory(ctx context.Context, ticketID string) ([]domain.AuditEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()
	entries, err := a.audit.ListByEntity(opCtx, entityTypeTicket, ticketID)
	if err != nil {
		return nil, translateStoreError("list_audit_entries", ticketID, a.opTimeout, err)
	}
	return entries, nil
}

func (a *AuditService) handleTicketCreated(ctx context.Context, event events.Event) error {
	changes := map[string]domain.FieldChange{}
	if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
		changes["ticket_number"] = domain.FieldChange{New: payload.TicketNumber}
		changes["status"] = domain.FieldChange{New: string(domain.TicketStatusOpen)}
		changes["priority"] = domain.FieldChange{New: string(payload.Priority)}
	}
	return a.record(ctx, domain.AuditActionTicketCreated, event, changes)
}

func (a *AuditService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	var changes map[string]domain.FieldChange
	if payload, ok := event.Payload.(events.TicketUpdatedPayload); ok {
		changes = payload.Changes
	}
	return a.record(ctx, domain.AuditActionTicketUpdated, event, changes)
}

func (a *AuditService) record(ctx context.Context, action domain.AuditAction, event events.Event, changes map[string]domain.FieldChange) error {
	if changes == nil {
		changes = map[string]domain.FieldChange{}
	}
	entry := &domain.AuditEntry{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: entityTypeTicket,
		EntityID:   event.TicketID,
		Changes:    changes,
		UserID:     optionalString(event.Actor.SubjectID),
		IPAddress:  optionalString(event.Actor.IPAddress),
		CreatedAt:  event.Timestamp,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()
	if err := a.audit.Insert(opCtx, entry); err != nil {
		wrapped := translateStoreError("record_audit_entry", event.TicketID, a.opTimeout, err)
		a.logger.Error("audit entry not recorded",
			zap.String("ticket_id", event.TicketID),
			zap.String("action", string(action)),
			zap.String("error_code", errorutil.ToDomainError(wrapped).Code),
			zap.Error(err))
		return wrapped
	}

	a.logger.Info("audit entry recorded",
		zap.String("ticket_id", event.TicketID),
		zap.String("action", string(action)),
		zap.Strings("changed_fields", changedFields(changes)))
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
