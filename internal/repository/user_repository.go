package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/internal/service"
)

// UserRepository provides data access for campaign users.
type UserRepository struct {
	pool PoolInterface
}

// NewUserRepository creates a new UserRepository with the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NewUserRepositoryWithPool creates a new UserRepository with a custom pool
// interface. This is primarily used for testing.
func NewUserRepositoryWithPool(pool PoolInterface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Insert inserts a new user.
// Returns service.ErrUserExists if the phone number is already registered.
func (r *UserRepository) Insert(ctx context.Context, user *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, city, email, number, code, used_code)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		user.Name, user.City, user.Email, user.Number, user.Code, user.UsedCode,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return service.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by id.
// Returns nil, nil if the user is not found (service layer handles this).
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, name, city, email, number, code, used_code, created_at FROM users WHERE id = $1`

	var user model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.City,
		&user.Email,
		&user.Number,
		&user.Code,
		&user.UsedCode,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get user by id %d: %w", id, err)
	}
	return &user, nil
}

// CodeExists reports whether any user owns the given referral code.
func (r *UserRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check referral code: %w", err)
	}
	return exists, nil
}

// CountReferrals counts the users who registered with the given referral code.
func (r *UserRepository) CountReferrals(ctx context.Context, code string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE used_code = $1`, code,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}
	return count, nil
}

// ListIDs returns the ids of all registered users, ordered by id.
func (r *UserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}

	if ids == nil {
		ids = []int64{}
	}

	return ids, nil
}
