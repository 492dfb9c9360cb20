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

// executionLockKey is the advisory lock key serializing draw executions.
// All executions contend on the same key because the exclusion set spans
// every draw.
const executionLockKey = int64(0x64726177) // "draw"

// DrawRepository provides data access for draws and their prizes.
type DrawRepository struct {
	pool PoolInterface
}

// NewDrawRepository creates a new DrawRepository with the given pool.
func NewDrawRepository(pool *pgxpool.Pool) *DrawRepository {
	return &DrawRepository{pool: pool}
}

// NewDrawRepositoryWithPool creates a new DrawRepository with a custom pool
// interface. This is primarily used for testing.
func NewDrawRepositoryWithPool(pool PoolInterface) *DrawRepository {
	return &DrawRepository{pool: pool}
}

// InsertDraw inserts a draw within a transaction.
// Returns service.ErrDrawExists if a draw with the same title already exists.
func (r *DrawRepository) InsertDraw(ctx context.Context, tx database.TxQuerier, draw *model.Draw) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO draws (title, start_date, end_date, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		draw.Title, draw.StartDate, draw.EndDate, model.DrawStatusScheduled,
	).Scan(&draw.ID, &draw.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return service.ErrDrawExists
		}
		return fmt.Errorf("insert draw: %w", err)
	}
	draw.Status = model.DrawStatusScheduled
	return nil
}

// InsertPrize inserts one prize of a draw within a transaction.
func (r *DrawRepository) InsertPrize(ctx context.Context, tx database.TxQuerier, prize *model.Prize) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO draw_prizes (draw_id, name, value, winners_num)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		prize.DrawID, prize.Name, prize.Value, prize.WinnersNum,
	).Scan(&prize.ID)
	if err != nil {
		return fmt.Errorf("insert prize: %w", err)
	}
	return nil
}

// FindByID retrieves a draw with its prizes in attachment order.
// Returns nil, nil if the draw is not found (service layer handles this).
func (r *DrawRepository) FindByID(ctx context.Context, id int64) (*model.Draw, error) {
	var draw model.Draw
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, start_date, end_date, status, created_at FROM draws WHERE id = $1`, id,
	).Scan(&draw.ID, &draw.Title, &draw.StartDate, &draw.EndDate, &draw.Status, &draw.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get draw by id %d: %w", id, err)
	}

	prizes, err := r.prizesByDraw(ctx, id)
	if err != nil {
		return nil, err
	}
	draw.Prizes = prizes

	return &draw, nil
}

func (r *DrawRepository) prizesByDraw(ctx context.Context, drawID int64) ([]model.Prize, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, draw_id, name, value, winners_num FROM draw_prizes WHERE draw_id = $1 ORDER BY id`, drawID)
	if err != nil {
		return nil, fmt.Errorf("get prizes for draw %d: %w", drawID, err)
	}
	defer rows.Close()

	var prizes []model.Prize
	for rows.Next() {
		var p model.Prize
		if err := rows.Scan(&p.ID, &p.DrawID, &p.Name, &p.Value, &p.WinnersNum); err != nil {
			return nil, fmt.Errorf("scan prize: %w", err)
		}
		prizes = append(prizes, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prizes: %w", err)
	}

	if prizes == nil {
		prizes = []model.Prize{}
	}

	return prizes, nil
}

// List retrieves all draws with their prizes, newest first.
func (r *DrawRepository) List(ctx context.Context) ([]model.Draw, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, start_date, end_date, status, created_at FROM draws ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	defer rows.Close()

	var draws []model.Draw
	for rows.Next() {
		var d model.Draw
		if err := rows.Scan(&d.ID, &d.Title, &d.StartDate, &d.EndDate, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan draw: %w", err)
		}
		draws = append(draws, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draws: %w", err)
	}

	for i := range draws {
		prizes, err := r.prizesByDraw(ctx, draws[i].ID)
		if err != nil {
			return nil, err
		}
		draws[i].Prizes = prizes
	}

	if draws == nil {
		draws = []model.Draw{}
	}

	return draws, nil
}

// LockExecution takes the transaction-scoped advisory lock serializing
// draw executions. A concurrent execution blocks here until the holder
// commits or rolls back, so the exclusion set it then reads includes the
// holder's winner rows.
func (r *DrawRepository) LockExecution(ctx context.Context, tx database.TxQuerier) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, executionLockKey); err != nil {
		return fmt.Errorf("acquire draw execution lock: %w", err)
	}
	return nil
}

// MarkCompleted flips a draw from SCHEDULED to COMPLETED within a
// transaction. The status predicate makes the transition a compare-and-swap:
// if another execution already completed the draw, zero rows match and
// service.ErrDrawAlreadyExecuted is returned.
func (r *DrawRepository) MarkCompleted(ctx context.Context, tx database.TxQuerier, id int64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE draws SET status = $1 WHERE id = $2 AND status = $3`,
		model.DrawStatusCompleted, id, model.DrawStatusScheduled)
	if err != nil {
		return fmt.Errorf("mark draw %d completed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrDrawAlreadyExecuted
	}
	return nil
}

// Delete removes a draw and, via ON DELETE CASCADE, its prizes and winner
// rows. Administrative escape hatch only.
func (r *DrawRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM draws WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete draw %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrDrawNotFound
	}
	return nil
}
