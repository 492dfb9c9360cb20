package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/pkg/database"
)

// WinnerRepository provides data access for draw winner records.
type WinnerRepository struct {
	pool PoolInterface
}

// NewWinnerRepository creates a new WinnerRepository with the given pool.
func NewWinnerRepository(pool *pgxpool.Pool) *WinnerRepository {
	return &WinnerRepository{pool: pool}
}

// NewWinnerRepositoryWithPool creates a new WinnerRepository with a custom
// pool interface. This is primarily used for testing.
func NewWinnerRepositoryWithPool(pool PoolInterface) *WinnerRepository {
	return &WinnerRepository{pool: pool}
}

// Insert inserts one winner row within a transaction and fills in the
// generated id and timestamp.
func (r *WinnerRepository) Insert(ctx context.Context, tx database.TxQuerier, winner *model.Winner) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO draw_winners (draw_prize_id, user_id)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		winner.DrawPrizeID, winner.UserID,
	).Scan(&winner.ID, &winner.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert winner: %w", err)
	}
	return nil
}

// ListWinnerUserIDs returns the distinct ids of every user who has won any
// prize in any draw, ever. This is the global exclusion set for execution
// and is read inside the execution transaction, after the advisory lock,
// so concurrent executions cannot read overlapping snapshots.
func (r *WinnerRepository) ListWinnerUserIDs(ctx context.Context, tx database.TxQuerier) ([]int64, error) {
	rows, err := tx.Query(ctx, `SELECT DISTINCT user_id FROM draw_winners`)
	if err != nil {
		return nil, fmt.Errorf("list winner user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan winner user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate winner user ids: %w", err)
	}

	if ids == nil {
		ids = []int64{}
	}

	return ids, nil
}
