package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/eservice/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Priority      string `json:"priority"`
}

// UpdateTicketRequest is a sparse payload; keys missing from the body are
// left untouched, explicit nulls are kept distinct from missing keys.
type UpdateTicketRequest struct {
	Status               domain.Optional[*string]  `json:"status"`
	Priority             domain.Optional[*string]  `json:"priority"`
	AssignedAgentID      domain.Optional[*string]  `json:"assigned_agent_id"`
	AssignedDepartmentID domain.Optional[*string]  `json:"assigned_department_id"`
	Description          domain.Optional[*string]  `json:"description"`
	Tags                 domain.Optional[[]string] `json:"tags"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID                   string                `json:"id"`
	TicketNumber         string                `json:"ticket_number"`
	CustomerID           string                `json:"customer_id"`
	CustomerName         string                `json:"customer_name"`
	CustomerEmail        string                `json:"customer_email"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Category             string                `json:"category"`
	Status               domain.TicketStatus   `json:"status"`
	Priority             domain.TicketPriority `json:"priority"`
	AssignedAgentID      *string               `json:"assigned_agent_id"`
	AssignedDepartmentID *string               `json:"assigned_department_id"`
	AIClassification     json.RawMessage       `json:"ai_classification"`
	AISuggestedResponse  *string               `json:"ai_suggested_response"`
	AIConfidenceScore    *float64              `json:"ai_confidence_score"`
	AIAnalysisModel      *string               `json:"ai_analysis_model"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	ResolvedAt           *time.Time            `json:"resolved_at"`
	SLADueAt             *time.Time            `json:"sla_due_at"`
	SLABreached          bool                  `json:"sla_breached"`
	Tags                 []string              `json:"tags"`
	AttachmentsCount     int                   `json:"attachments_count"`
	CommentsCount        int                   `json:"comments_count"`
}

// AuditEntryResponse is one audit trail record.
type AuditEntryResponse struct {
	ID         string                        `json:"id"`
	Action     domain.AuditAction            `json:"action"`
	EntityType string                        `json:"entity_type"`
	EntityID   string                        `json:"entity_id"`
	Changes    map[string]domain.FieldChange `json:"changes"`
	UserID     *string                       `json:"user_id"`
	IPAddress  *string                       `json:"ip_address"`
	CreatedAt  time.Time                     `json:"created_at"`
}

// NewTicketResponse maps a domain ticket to its wire shape.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TicketResponse{
		ID:                   t.ID,
		TicketNumber:         t.TicketNumber,
		CustomerID:           t.CustomerID,
		CustomerName:         t.CustomerName,
		CustomerEmail:        t.CustomerEmail,
		Title:                t.Title,
		Description:          t.Description,
		Category:             t.Category,
		Status:               t.Status,
		Priority:             t.Priority,
		AssignedAgentID:      t.AssignedAgentID,
		AssignedDepartmentID: t.AssignedDepartmentID,
		AIClassification:     t.AIClassification,
		AISuggestedResponse:  t.AISuggestedResponse,
		AIConfidenceScore:    t.AIConfidenceScore,
		AIAnalysisModel:      t.AIAnalysisModel,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
		ResolvedAt:           t.ResolvedAt,
		SLADueAt:             t.SLADueAt,
		SLABreached:          t.SLABreached,
		Tags:                 tags,
		AttachmentsCount:     t.AttachmentsCount,
		CommentsCount:        t.CommentsCount,
	}
}

func NewAuditEntryResponse(e domain.AuditEntry) AuditEntryResponse {
	changes := e.Changes
	if changes == nil {
		changes = map[string]domain.FieldChange{}
	}
	return AuditEntryResponse{
		ID:         e.ID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Changes:    changes,
		UserID:     e.UserID,
		IPAddress:  e.IPAddress,
		CreatedAt:  e.CreatedAt,
	}
}
