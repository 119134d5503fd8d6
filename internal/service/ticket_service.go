package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/eservice/internal/cache"
	"github.com/spec-kit/eservice/internal/domain"
	"github.com/spec-kit/eservice/internal/events"
	"github.com/spec-kit/eservice/internal/repository"
	"github.com/spec-kit/eservice/internal/ticketnumber"
	"github.com/spec-kit/eservice/pkg/util/errorutil"
)

const (
	defaultOpTimeout = 5 * time.Second
	defaultCacheTTL  = time.Hour
	resourceTicket   = "Ticket"
)

// TicketService coordinates ticket create, read and update workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	numbers    *ticketnumber.Generator
	cache      cache.Cache
	cacheTTL   time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
	opTimeout  time.Duration
	clock      func() time.Time
}

// TicketDependencies bundles collaborators for the ticket services.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Numbers    *ticketnumber.Generator
	Cache      cache.Cache
	CacheTTL   time.Duration
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// OpTimeout bounds every store call.
	OpTimeout time.Duration
	Clock     func() time.Time
}

// TicketCreateInput describes ticket creation payload. Priority is the raw
// caller value; empty means medium.
type TicketCreateInput struct {
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Title         string
	Description   string
	Category      string
	Priority      string
}

// TicketPatch is a sparse update. Fields that are not set are left alone; only
// the assignment fields may be set to null.
type TicketPatch struct {
	Status               domain.Optional[*string]
	Priority             domain.Optional[*string]
	AssignedAgentID      domain.Optional[*string]
	AssignedDepartmentID domain.Optional[*string]
	Description          domain.Optional[*string]
	Tags                 domain.Optional[[]string]
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	deps = deps.withDefaults()
	return &TicketService{
		tickets:    deps.TicketRepo,
		numbers:    deps.Numbers,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		opTimeout:  deps.OpTimeout,
		clock:      deps.Clock,
	}
}

func (d TicketDependencies) withDefaults() TicketDependencies {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = defaultCacheTTL
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.OpTimeout <= 0 {
		d.OpTimeout = defaultOpTimeout
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

// Create validates input, assigns a ticket number and persists an open ticket.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	input = trimCreateInput(input)
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}
	priority := domain.TicketPriorityMedium
	if input.Priority != "" {
		p, err := domain.ParseTicketPriority(input.Priority)
		if err != nil {
			return nil, invalidEnum("priority", input.Priority, priorityValues())
		}
		priority = p
	}

	number, err := s.nextNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		TicketNumber:  number,
		CustomerID:    input.CustomerID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		Status:        domain.TicketStatusOpen,
		Priority:      priority,
		CreatedAt:     now,
		UpdatedAt:     now,
		Tags:          []string{},
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	err = s.tickets.Insert(opCtx, ticket)
	cancel()
	if err != nil {
		return nil, s.storeError("create_ticket", ticket.ID, err)
	}

	s.writeThrough(ctx, ticket)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			CustomerID:   ticket.CustomerID,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
		},
	})
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber))
	return ticket, nil
}

// Get returns a ticket by id, consulting the cache first.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errorutil.NewNotFound(resourceTicket, id)
	}
	if ticket, ok := s.readCache(ctx, id); ok {
		return ticket, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	ticket, err := s.tickets.FindByID(opCtx, id)
	cancel()
	if err != nil {
		return nil, s.storeError("get_ticket", id, err)
	}

	s.writeThrough(ctx, ticket)
	return ticket, nil
}

// Update applies the supplied patch fields atomically. Validation happens
// before the store is touched; a rejected patch leaves the ticket unchanged.
func (s *TicketService) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errorutil.NewNotFound(resourceTicket, id)
	}
	changes, err := resolvePatch(patch)
	if err != nil {
		return nil, err
	}

	var diff map[string]domain.FieldChange
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	updated, err := s.tickets.Update(opCtx, id, func(ticket *domain.Ticket) error {
		before := ticket.Clone()
		// updated_at strictly increases per ticket; it versions cache entries
		now := s.now()
		if !now.After(ticket.UpdatedAt) {
			now = ticket.UpdatedAt.Add(time.Microsecond)
		}
		if now.Before(ticket.CreatedAt) {
			now = ticket.CreatedAt
		}
		changes.apply(ticket, now)
		ticket.UpdatedAt = now
		diff = diffTickets(before, ticket)
		return nil
	})
	cancel()
	if err != nil {
		return nil, s.storeError("update_ticket", id, err)
	}

	s.writeThrough(ctx, updated)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: updated.ID,
		Payload: events.TicketUpdatedPayload{
			TicketNumber: updated.TicketNumber,
			Changes:      diff,
		},
	})
	s.logger.Info("ticket updated",
		zap.String("ticket_id", updated.ID),
		zap.Strings("changed_fields", changedFields(diff)))
	return updated, nil
}

func (s *TicketService) nextNumber(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	number, err := s.numbers.Next(opCtx)
	if err != nil {
		return "", s.storeError("generate_ticket_number", "", err)
	}
	return number, nil
}

// now is UTC at microsecond precision, the resolution Postgres keeps.
func (s *TicketService) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// storeError translates a repository failure into the error taxonomy.
func (s *TicketService) storeError(op, id string, err error) error {
	return translateStoreError(op, id, s.opTimeout, err)
}

func translateStoreError(op, id string, timeout time.Duration, err error) error {
	var domainErr *errorutil.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return errorutil.NewNotFound(resourceTicket, id)
	case errors.Is(err, repository.ErrConflict):
		return errorutil.NewConflict("Ticket already exists", map[string]any{"operation": op})
	case errors.Is(err, context.DeadlineExceeded):
		return errorutil.NewTimeoutError(op, timeout.Seconds(), err)
	}
	details := map[string]any{"operation": op}
	if id != "" {
		details["ticket_id"] = id
	}
	return errorutil.NewDatabaseError(fmt.Sprintf("Database operation '%s' failed", op), details, err)
}

func (s *TicketService) readCache(ctx context.Context, id string) (*domain.Ticket, bool) {
	key := cache.TicketKey(id)
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logCacheError("get", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		s.logCacheError("decode", key, err)
		s.invalidate(ctx, id)
		return nil, false
	}
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}
	return &ticket, true
}

func (s *TicketService) writeThrough(ctx context.Context, ticket *domain.Ticket) {
	key := cache.TicketKey(ticket.ID)
	raw, err := json.Marshal(ticket)
	if err != nil {
		s.logCacheError("encode", key, err)
		return
	}
	// A fill racing a newer commit loses against the version floor.
	if _, err := s.cache.SetIfNewer(ctx, key, raw, ticket.UpdatedAt.UnixMicro(), s.cacheTTL); err != nil {
		s.logCacheError("set", key, err)
		// a failed set may have left a stale entry behind
		s.invalidate(ctx, ticket.ID)
	}
}

func (s *TicketService) invalidate(ctx context.Context, id string) {
	key := cache.TicketKey(id)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logCacheError("delete", key, err)
	}
}

func (s *TicketService) logCacheError(op, key string, err error) {
	cacheErr := errorutil.NewCacheError(fmt.Sprintf("Cache operation '%s' failed", op), map[string]any{"key": key}, err)
	s.logger.Warn("cache operation failed",
		zap.String("operation", op),
		zap.String("key", key),
		zap.String("error_code", errorutil.CodeCache),
		zap.Error(cacheErr))
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	event.Actor = events.ActorFromContext(ctx)
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func trimCreateInput(in TicketCreateInput) TicketCreateInput {
	return TicketCreateInput{
		CustomerID:    strings.TrimSpace(in.CustomerID),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Category:      strings.TrimSpace(in.Category),
		Priority:      strings.TrimSpace(in.Priority),
	}
}

func validateCreateInput(in TicketCreateInput) error {
	fields := map[string]string{}
	required := []struct {
		name  string
		value string
		max   int
	}{
		{"customer_id", in.CustomerID, domain.MaxCustomerNameLength},
		{"customer_name", in.CustomerName, domain.MaxCustomerNameLength},
		{"customer_email", in.CustomerEmail, domain.MaxCustomerEmailLength},
		{"title", in.Title, domain.MaxTitleLength},
		{"description", in.Description, 0},
		{"category", in.Category, domain.MaxCategoryLength},
	}
	for _, f := range required {
		switch {
		case f.value == "":
			fields[f.name] = "is required"
		case f.max > 0 && utf8.RuneCountInString(f.value) > f.max:
			fields[f.name] = fmt.Sprintf("must be at most %d characters", f.max)
		}
	}
	if len(fields) > 0 {
		return errorutil.NewValidationError("Invalid ticket", map[string]any{"fields": fields})
	}
	return nil
}

// resolvedPatch is a TicketPatch after validation, with typed values.
type resolvedPatch struct {
	status        *domain.TicketStatus
	priority      *domain.TicketPriority
	setAgent      bool
	agentID       *string
	setDepartment bool
	departmentID  *string
	description   *string
	setTags       bool
	tags          []string
}

func resolvePatch(p TicketPatch) (resolvedPatch, error) {
	var out resolvedPatch
	fields := map[string]string{}

	if raw, ok := p.Status.Get(); ok {
		if raw == nil {
			fields["status"] = "must not be null"
		} else if status, err := domain.ParseTicketStatus(*raw); err != nil {
			return out, invalidEnum("status", *raw, statusValues())
		} else {
			out.status = &status
		}
	}
	if raw, ok := p.Priority.Get(); ok {
		if raw == nil {
			fields["priority"] = "must not be null"
		} else if priority, err := domain.ParseTicketPriority(*raw); err != nil {
			return out, invalidEnum("priority", *raw, priorityValues())
		} else {
			out.priority = &priority
		}
	}
	if raw, ok := p.AssignedAgentID.Get(); ok {
		out.setAgent = true
		out.agentID = normalizeOptionalID(raw)
	}
	if raw, ok := p.AssignedDepartmentID.Get(); ok {
		out.setDepartment = true
		out.departmentID = normalizeOptionalID(raw)
	}
	if raw, ok := p.Description.Get(); ok {
		switch {
		case raw == nil:
			fields["description"] = "must not be null"
		case strings.TrimSpace(*raw) == "":
			fields["description"] = "must not be empty"
		default:
			d := strings.TrimSpace(*raw)
			out.description = &d
		}
	}
	if raw, ok := p.Tags.Get(); ok {
		if raw == nil {
			fields["tags"] = "must not be null"
		} else {
			out.setTags = true
			out.tags = normalizeTags(raw)
		}
	}

	if len(fields) > 0 {
		return out, errorutil.NewValidationError("Invalid ticket update", map[string]any{"fields": fields})
	}
	return out, nil
}

// apply writes the patch onto t. Moving into resolved or closed stamps
// resolved_at once; it is never cleared afterwards.
func (p resolvedPatch) apply(t *domain.Ticket, now time.Time) {
	if p.status != nil {
		t.Status = *p.status
		if t.Status.Terminal() && t.ResolvedAt == nil {
			stamp := now
			t.ResolvedAt = &stamp
		}
	}
	if p.priority != nil {
		t.Priority = *p.priority
	}
	if p.setAgent {
		t.AssignedAgentID = p.agentID
	}
	if p.setDepartment {
		t.AssignedDepartmentID = p.departmentID
	}
	if p.description != nil {
		t.Description = *p.description
	}
	if p.setTags {
		t.Tags = p.tags
	}
}

func normalizeOptionalID(raw *string) *string {
	if raw == nil {
		return nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func invalidEnum(field, value string, allowed []string) error {
	return errorutil.NewValidationError(
		fmt.Sprintf("Invalid %s '%s'", field, value),
		map[string]any{"field": field, "value": value, "allowed": allowed},
	)
}

func statusValues() []string {
	out := make([]string, len(domain.TicketStatuses))
	for i, s := range domain.TicketStatuses {
		out[i] = string(s)
	}
	return out
}

func priorityValues() []string {
	out := make([]string, len(domain.TicketPriorities))
	for i, p := range domain.TicketPriorities {
		out[i] = string(p)
	}
	return out
}
