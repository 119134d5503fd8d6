package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/eservice/internal/api/dto"
	"github.com/spec-kit/eservice/internal/domain"
	"github.com/spec-kit/eservice/internal/service"
	apperrors "github.com/spec-kit/eservice/pkg/util/errorutil"
)

// TicketsHandler serves the ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	query   *service.TicketQueryService
	audit   *service.AuditService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, query *service.TicketQueryService, audit *service.AuditService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, query: query, audit: audit}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	ticket, err := h.tickets.Create(c.UserContext(), service.TicketCreateInput{
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      req.Priority,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	ticket, err := h.tickets.Update(c.UserContext(), c.Params("id"), service.TicketPatch{
		Status:               req.Status,
		Priority:             req.Priority,
		AssignedAgentID:      req.AssignedAgentID,
		AssignedDepartmentID: req.AssignedDepartmentID,
		Description:          req.Description,
		Tags:                 req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseListQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.query.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(items)
}

// TicketHistory GET /tickets/:id/history.
func (h *TicketsHandler) TicketHistory(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	entries, err := h.audit.TicketHistory(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewAuditEntryResponse(entry))
	}
	return c.JSON(items)
}

func parseListQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{Limit: service.DefaultListLimit}
	fields := map[string]string{}

	if raw := strings.TrimSpace(c.Query("skip")); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			fields["skip"] = "must be an integer greater than or equal to 0"
		}
		filter.Skip = skip
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > service.MaxListLimit {
			fields["limit"] = "must be an integer between 1 and 100"
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			fields["status"] = "is not a valid status"
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("priority")); raw != "" {
		priority, err := domain.ParseTicketPriority(raw)
		if err != nil {
			fields["priority"] = "is not a valid priority"
		}
		filter.Priority = &priority
	}
	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		filter.CustomerID = &raw
	}

	if len(fields) > 0 {
		return filter, apperrors.NewValidationError("Invalid query parameters", map[string]any{"fields": fields})
	}
	return filter, nil
}
