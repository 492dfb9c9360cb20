package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/internal/service"
	"github.com/elcady/walimah-backend/pkg/database"
)

// AssignmentRepository provides data access for user-coupon assignments.
type AssignmentRepository struct {
	pool PoolInterface
}

// NewAssignmentRepository creates a new AssignmentRepository with the given pool.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// NewAssignmentRepositoryWithPool creates a new AssignmentRepository with a
// custom pool interface. This is primarily used for testing.
func NewAssignmentRepositoryWithPool(pool PoolInterface) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Insert inserts the assignment row binding a user to a coupon within a
// transaction. The UNIQUE constraint on coupon_id turns a lost race into
// service.ErrCouponAlreadyAssigned, which the allocator retries.
func (r *AssignmentRepository) Insert(ctx context.Context, tx database.TxQuerier, userID, couponID int64) error {
	query := `INSERT INTO user_coupons (user_id, coupon_id) VALUES ($1, $2)`

	_, err := tx.Exec(ctx, query, userID, couponID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return service.ErrCouponAlreadyAssigned
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// ListByUser retrieves all coupons assigned to a user, oldest first.
// On success, returns an empty slice (not nil) when no assignments exist.
func (r *AssignmentRepository) ListByUser(ctx context.Context, userID int64) ([]model.Coupon, error) {
	query := `SELECT c.id, c.code, c.company, c.type, c.value, c.start_date, c.end_date, c.created_at
		FROM user_coupons uc
		JOIN coupons c ON c.id = uc.coupon_id
		WHERE uc.user_id = $1
		ORDER BY uc.created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get coupons for user %d: %w", userID, err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		var c model.Coupon
		if err := rows.Scan(&c.ID, &c.Code, &c.Company, &c.Type, &c.Value, &c.StartDate, &c.EndDate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assigned coupon: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned coupons: %w", err)
	}

	// Return empty slice, not nil
	if coupons == nil {
		coupons = []model.Coupon{}
	}

	return coupons, nil
}
