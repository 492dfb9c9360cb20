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
	"github.com/elcady/walimah-backend/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Insert inserts a new coupon into the database.
// Returns service.ErrCouponExists if a coupon with the same code already exists.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO coupons (code, company, type, value, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		coupon.Code, coupon.Company, coupon.Type, coupon.Value, coupon.StartDate, coupon.EndDate,
	).Scan(&coupon.ID, &coupon.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// CountAvailableByCompany returns, for each company that still has at least
// one unassigned coupon, the number of unassigned coupons.
func (r *CouponRepository) CountAvailableByCompany(ctx context.Context, tx database.TxQuerier) (map[model.CouponCompany]int, error) {
	query := `SELECT c.company, COUNT(*)
		FROM coupons c
		WHERE NOT EXISTS (SELECT 1 FROM user_coupons uc WHERE uc.coupon_id = c.id)
		GROUP BY c.company`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count available coupons: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.CouponCompany]int)
	for rows.Next() {
		var company model.CouponCompany
		var count int
		if err := rows.Scan(&company, &count); err != nil {
			return nil, fmt.Errorf("scan available count: %w", err)
		}
		counts[company] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate available counts: %w", err)
	}
	return counts, nil
}

// CountAssignedByCompany returns, for each company, the number of its
// coupons that already have an assignment.
func (r *CouponRepository) CountAssignedByCompany(ctx context.Context, tx database.TxQuerier) (map[model.CouponCompany]int, error) {
	query := `SELECT c.company, COUNT(*)
		FROM coupons c
		JOIN user_coupons uc ON uc.coupon_id = c.id
		GROUP BY c.company`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count assigned coupons: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.CouponCompany]int)
	for rows.Next() {
		var company model.CouponCompany
		var count int
		if err := rows.Scan(&company, &count); err != nil {
			return nil, fmt.Errorf("scan assigned count: %w", err)
		}
		counts[company] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned counts: %w", err)
	}
	return counts, nil
}

// PickAvailable fetches the unassigned coupon of the given company at the
// given offset. Ordering by primary key keeps offset semantics stable.
// Returns service.ErrCouponPickRaced if the offset is out of range, which
// happens when a concurrent caller drained the company between the count
// and the pick; other companies may still hold stock, so the caller
// re-runs the selection rather than reporting exhaustion.
func (r *CouponRepository) PickAvailable(ctx context.Context, tx database.TxQuerier, company model.CouponCompany, offset int) (*model.Coupon, error) {
	query := `SELECT c.id, c.code, c.company, c.type, c.value, c.start_date, c.end_date, c.created_at
		FROM coupons c
		WHERE c.company = $1
		  AND NOT EXISTS (SELECT 1 FROM user_coupons uc WHERE uc.coupon_id = c.id)
		ORDER BY c.id
		OFFSET $2
		LIMIT 1`

	var coupon model.Coupon
	err := tx.QueryRow(ctx, query, company, offset).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Company,
		&coupon.Type,
		&coupon.Value,
		&coupon.StartDate,
		&coupon.EndDate,
		&coupon.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponPickRaced
		}
		return nil, fmt.Errorf("pick available coupon for %s: %w", company, err)
	}
	return &coupon, nil
}

// DeleteAll removes every coupon and, via ON DELETE CASCADE, their
// assignments. Administrative escape hatch only.
func (r *CouponRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons`)
	if err != nil {
		return 0, fmt.Errorf("delete all coupons: %w", err)
	}
	return tag.RowsAffected(), nil
}
