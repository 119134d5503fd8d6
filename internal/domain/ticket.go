package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusOnHold     TicketStatus = "on_hold"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every valid status.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is one of the closed set of statuses.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether the status marks the ticket as done.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// ParseTicketStatus validates raw input against the status set.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	s := TicketStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid ticket status %q", raw)
	}
	return s, nil
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketPriorities lists every valid priority.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// ParseTicketPriority validates raw input against the priority set.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	p := TicketPriority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("invalid ticket priority %q", raw)
	}
	return p, nil
}

// Field limits mirrored by the tickets table.
const (
	MaxTitleLength         = 500
	MaxCustomerNameLength  = 255
	MaxCustomerEmailLength = 255
	MaxCategoryLength      = 100
)

// Ticket is the aggregate for customer support requests.
//
// The AI fields are written by the analysis pipeline; the lifecycle code only
// carries them through unchanged.
type Ticket struct {
	ID           string
	TicketNumber string

	CustomerID    string
	CustomerName  string
	CustomerEmail string

	Title       string
	Description string
	Category    string

	Status   TicketStatus
	Priority TicketPriority

	AssignedAgentID      *string
	AssignedDepartmentID *string

	AIClassification    json.RawMessage
	AISuggestedResponse *string
	AIConfidenceScore   *float64
	AIAnalysisModel     *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	SLADueAt    *time.Time
	SLABreached bool

	Tags             []string
	AttachmentsCount int
	CommentsCount    int
}

// Clone returns a deep copy so callers never share slices or pointers with a store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.AssignedAgentID = cloneString(t.AssignedAgentID)
	c.AssignedDepartmentID = cloneString(t.AssignedDepartmentID)
	c.AISuggestedResponse = cloneString(t.AISuggestedResponse)
	c.AIAnalysisModel = cloneString(t.AIAnalysisModel)
	if t.AIConfidenceScore != nil {
		v := *t.AIConfidenceScore
		c.AIConfidenceScore = &v
	}
	if t.AIClassification != nil {
		c.AIClassification = append(json.RawMessage(nil), t.AIClassification...)
	}
	if t.ResolvedAt != nil {
		v := *t.ResolvedAt
		c.ResolvedAt = &v
	}
	if t.SLADueAt != nil {
		v := *t.SLADueAt
		c.SLADueAt = &v
	}
	c.Tags = append(make([]string, 0, len(t.Tags)), t.Tags...)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
