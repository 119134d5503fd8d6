package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCounter hands out ticket sequence values from ticket_number_seq.
// Values are never reused, even when the insert that consumed one fails.
type PostgresCounter struct {
	pool *pgxpool.Pool
}

func NewPostgresCounter(pool *pgxpool.Pool) *PostgresCounter {
	return &PostgresCounter{pool: pool}
}

// Next returns the next sequence value.
func (c *PostgresCounter) Next(ctx context.Context) (int64, error) {
	var seq int64
	if err := c.pool.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}
