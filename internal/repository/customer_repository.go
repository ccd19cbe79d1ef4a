package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-orchestrator/internal/domain"
)

// CustomerRepository reads the customer directory. Truncate and Create exist
// for the seeder only; the pipeline never writes profiles.
type CustomerRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.CustomerProfile, error)
	Truncate(ctx context.Context) error
	Create(ctx context.Context, profile *domain.CustomerProfile) error
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.CustomerProfile, error) {
	const query = `SELECT email, name, age, gender FROM customers WHERE email=$1`
	var profile domain.CustomerProfile
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&profile.Email,
		&profile.Name,
		&profile.Age,
		&profile.Gender,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *customerRepository) Truncate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `TRUNCATE TABLE customers`)
	return err
}

func (r *customerRepository) Create(ctx context.Context, profile *domain.CustomerProfile) error {
	const query = `
        INSERT INTO customers (email, name, age, gender)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (email) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, profile.Email, profile.Name, profile.Age, profile.Gender)
	return err
}
