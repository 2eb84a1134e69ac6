package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"telescreen-backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, email, password_hash, full_name, role, pc_name, is_active, created_at, last_login_at`

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (email, password_hash, full_name, role, pc_name, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query, a.Email, a.PasswordHash, a.FullName, a.Role, a.PCName, a.IsActive).
		Scan(&a.ID, &a.CreatedAt)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	a := &models.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FullName, &a.Role, &a.PCName, &a.IsActive, &a.CreatedAt, &a.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a := &models.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FullName, &a.Role, &a.PCName, &a.IsActive, &a.CreatedAt, &a.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AccountRepo) SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *AccountRepo) SetPCName(ctx context.Context, id uuid.UUID, pcName string) error {
	if pcName == "" {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET pc_name = $2 WHERE id = $1`, id, pcName)
	return err
}
