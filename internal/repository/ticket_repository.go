package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/eservice/internal/domain"
)

var (
	// ErrNotFound is returned when no ticket matches the requested id.
	ErrNotFound = errors.New("ticket not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("ticket conflict")
)

const uniqueViolation = "23505"

// TicketQuery captures list filters. Nil filters are ignored; the rest are ANDed.
type TicketQuery struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	CustomerID *string
	Offset     int
	Limit      int
}

// MutateFunc edits a ticket inside an update. Returning an error aborts the
// update and leaves the stored ticket untouched.
type MutateFunc func(ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	FindByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, id string, mutate MutateFunc) (*domain.Ticket, error)
	Query(ctx context.Context, q TicketQuery) ([]domain.Ticket, error)
}

const ticketColumns = `id, ticket_number, customer_id, customer_name, customer_email, title, description, category,
               status, priority, assigned_agent_id, assigned_department_id, ai_classification, ai_suggested_response,
               ai_confidence_score, ai_analysis_model, created_at, updated_at, resolved_at, sla_due_at, sla_breached,
               tags, attachments_count, comments_count`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.TicketNumber,
		ticket.CustomerID,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.AssignedAgentID,
		ticket.AssignedDepartmentID,
		jsonArg(ticket.AIClassification),
		ticket.AISuggestedResponse,
		ticket.AIConfidenceScore,
		ticket.AIAnalysisModel,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		ticket.SLADueAt,
		ticket.SLABreached,
		tagsArg(ticket.Tags),
		ticket.AttachmentsCount,
		ticket.CommentsCount,
	)
	return mapWriteError(err)
}

func (r *ticketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, id string, mutate MutateFunc) (result *domain.Ticket, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const selectQuery = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	ticket, err := scanTicket(tx.QueryRow(ctx, selectQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err = mutate(ticket); err != nil {
		return nil, err
	}

	const updateQuery = `
        UPDATE tickets SET status=$1, priority=$2, assigned_agent_id=$3, assigned_department_id=$4,
            description=$5, tags=$6, updated_at=$7, resolved_at=$8
        WHERE id=$9`
	cmd, err := tx.Exec(ctx, updateQuery,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.AssignedAgentID,
		ticket.AssignedDepartmentID,
		ticket.Description,
		tagsArg(ticket.Tags),
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		id,
	)
	if err != nil {
		err = mapWriteError(err)
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		err = ErrNotFound
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Query(ctx context.Context, q TicketQuery) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if q.Status != nil {
		args = append(args, string(*q.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if q.Priority != nil {
		args = append(args, string(*q.Priority))
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if q.CustomerID != nil {
		args = append(args, *q.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket         domain.Ticket
		status         string
		priority       string
		classification []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CustomerID,
		&ticket.CustomerName,
		&ticket.CustomerEmail,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&status,
		&priority,
		&ticket.AssignedAgentID,
		&ticket.AssignedDepartmentID,
		&classification,
		&ticket.AISuggestedResponse,
		&ticket.AIConfidenceScore,
		&ticket.AIAnalysisModel,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.SLADueAt,
		&ticket.SLABreached,
		&ticket.Tags,
		&ticket.AttachmentsCount,
		&ticket.CommentsCount,
	); err != nil {
		return nil, err
	}

	var err error
	if ticket.Status, err = domain.ParseTicketStatus(status); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", ticket.ID, err)
	}
	if ticket.Priority, err = domain.ParseTicketPriority(priority); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", ticket.ID, err)
	}
	if len(classification) > 0 {
		ticket.AIClassification = classification
	}
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	ticket.UpdatedAt = ticket.UpdatedAt.UTC()
	if ticket.ResolvedAt != nil {
		t := ticket.ResolvedAt.UTC()
		ticket.ResolvedAt = &t
	}
	if ticket.SLADueAt != nil {
		t := ticket.SLADueAt.UTC()
		ticket.SLADueAt = &t
	}
	return &ticket, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func jsonArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func tagsArg(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
