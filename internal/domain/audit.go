package domain

import "time"

// AuditAction names the mutation recorded by an audit entry.
type AuditAction string

const (
	AuditActionTicketCreated AuditAction = "ticket.created"
	AuditActionTicketUpdated AuditAction = "ticket.updated"
)

// FieldChange holds the before and after value of one ticket field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// AuditEntry is an immutable audit trail record.
type AuditEntry struct {
	ID         string
	Action     AuditAction
	EntityType string
	EntityID   string
	Changes    map[string]FieldChange
	UserID     *string
	IPAddress  *string
	CreatedAt  time.Time
}
