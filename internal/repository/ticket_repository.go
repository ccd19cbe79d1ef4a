package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-orchestrator/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Each pipeline step reads
// the ticket, mutates it, and writes it back; there is no cross-step
// transaction.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (customer_email, description, product_purchased, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerEmail,
		ticket.Description,
		ticket.ProductPurchased,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET issue_type=$1, tracker_key=$2, email_draft=$3, status=$4,
            notification_sent=$5, email_sent=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.IssueType,
		ticket.TrackerKey,
		ticket.EmailDraft,
		ticket.Status,
		ticket.NotificationSent,
		ticket.EmailSent,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, customer_email, description, product_purchased, issue_type,
               tracker_key, email_draft, status, notification_sent, email_sent,
               created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.CustomerEmail,
		&ticket.Description,
		&ticket.ProductPurchased,
		&ticket.IssueType,
		&ticket.TrackerKey,
		&ticket.EmailDraft,
		&ticket.Status,
		&ticket.NotificationSent,
		&ticket.EmailSent,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
