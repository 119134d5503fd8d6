package events

import (
	"context"
	"time"

	"github.com/spec-kit/eservice/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = EventType(domain.AuditActionTicketCreated)
	EventTicketUpdated EventType = EventType(domain.AuditActionTicketUpdated)
)

// Actor identifies who triggered an event. Empty fields mean unknown.
type Actor struct {
	SubjectID string `json:"subject_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	CustomerID   string                `json:"customer_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketUpdatedPayload carries the before and after value of every changed field.
type TicketUpdatedPayload struct {
	TicketNumber string                        `json:"ticket_number"`
	Changes      map[string]domain.FieldChange `json:"changes"`
}

type actorKey struct{}

// ContextWithActor attaches the request actor to ctx.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by ContextWithActor, or the zero Actor.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}
