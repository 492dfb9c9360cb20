package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/internal/random"
	"github.com/elcady/walimah-backend/pkg/database"
)

// DrawRepositoryInterface defines the interface for draw data access.
type DrawRepositoryInterface interface {
	InsertDraw(ctx context.Context, tx database.TxQuerier, draw *model.Draw) error
	InsertPrize(ctx context.Context, tx database.TxQuerier, prize *model.Prize) error
	FindByID(ctx context.Context, id int64) (*model.Draw, error)
	List(ctx context.Context) ([]model.Draw, error)
	LockExecution(ctx context.Context, tx database.TxQuerier) error
	MarkCompleted(ctx context.Context, tx database.TxQuerier, id int64) error
	Delete(ctx context.Context, id int64) error
}

// WinnerRepositoryInterface defines the interface for winner data access.
type WinnerRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, winner *model.Winner) error
	ListWinnerUserIDs(ctx context.Context, tx database.TxQuerier) ([]int64, error)
}

// DrawService provides draw administration and the execution engine that
// selects winners for every prize of a scheduled draw.
type DrawService struct {
	pool       database.TxBeginner
	drawRepo   DrawRepositoryInterface
	winnerRepo WinnerRepositoryInterface
	userRepo   UserRepositoryInterface
	rng        random.Source
}

// NewDrawService creates a new DrawService with the given pool,
// repositories and randomness source.
func NewDrawService(pool *pgxpool.Pool, drawRepo DrawRepositoryInterface, winnerRepo WinnerRepositoryInterface, userRepo UserRepositoryInterface, rng random.Source) *DrawService {
	return newDrawService(pool, drawRepo, winnerRepo, userRepo, rng)
}

// NewDrawServiceWithTxBeginner creates a DrawService with a custom TxBeginner.
// Primarily used for testing.
func NewDrawServiceWithTxBeginner(pool database.TxBeginner, drawRepo DrawRepositoryInterface, winnerRepo WinnerRepositoryInterface, userRepo UserRepositoryInterface, rng random.Source) *DrawService {
	return newDrawService(pool, drawRepo, winnerRepo, userRepo, rng)
}

func newDrawService(pool database.TxBeginner, drawRepo DrawRepositoryInterface, winnerRepo WinnerRepositoryInterface, userRepo UserRepositoryInterface, rng random.Source) *DrawService {
	if rng == nil {
		rng = random.New()
	}
	return &DrawService{
		pool:       pool,
		drawRepo:   drawRepo,
		winnerRepo: winnerRepo,
		userRepo:   userRepo,
		rng:        rng,
	}
}

// Create creates a scheduled draw with its prizes in one transaction.
// Returns ErrDrawExists if a draw with the same title already exists.
// Returns ErrInvalidRequest if request data is nil or malformed.
func (s *DrawService) Create(ctx context.Context, req *model.CreateDrawRequest) (*model.Draw, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || len(req.Prizes) == 0 {
		return nil, ErrInvalidRequest
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, ErrInvalidRequest
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, ErrInvalidRequest
	}

	draw := &model.Draw{
		Title:     req.Title,
		StartDate: startDate,
		EndDate:   endDate,
	}

	err = database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.drawRepo.InsertDraw(ctx, tx, draw); err != nil {
			return err
		}
		for _, p := range req.Prizes {
			if p.Winners == nil {
				return ErrInvalidRequest
			}
			prize := model.Prize{
				DrawID:     draw.ID,
				Name:       p.Name,
				Value:      p.Value,
				WinnersNum: *p.Winners,
			}
			if err := s.drawRepo.InsertPrize(ctx, tx, &prize); err != nil {
				return err
			}
			draw.Prizes = append(draw.Prizes, prize)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draw, nil
}

// Execute selects winners for every prize of a scheduled draw and marks it
// completed. Eligibility is global: any user with a winner row in any draw,
// ever, is excluded. Each prize samples without replacement from its own
// copy of the eligible pool, so one user may win different prizes within
// the same draw but never the same prize twice. Winner rows and the status
// flip commit in a single transaction, and executions serialize on an
// advisory lock taken before the exclusion set is read so two concurrent
// draws cannot both select a not-yet-committed winner.
//
// Returns:
//   - ErrDrawNotFound if the draw doesn't exist
//   - ErrDrawAlreadyExecuted if the draw is already completed
//   - ErrNoEligibleUsers if every user is excluded by prior wins
func (s *DrawService) Execute(ctx context.Context, drawID int64) (*model.ExecuteDrawResponse, error) {
	draw, err := s.drawRepo.FindByID(ctx, drawID)
	if err != nil {
		return nil, fmt.Errorf("get draw: %w", err)
	}
	if draw == nil {
		return nil, ErrDrawNotFound
	}
	if draw.Status == model.DrawStatusCompleted {
		return nil, ErrDrawAlreadyExecuted
	}

	var winners []model.Winner
	var eligible []int64
	err = database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.drawRepo.LockExecution(ctx, tx); err != nil {
			return err
		}

		eligible, err = s.eligiblePool(ctx, tx)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return ErrNoEligibleUsers
		}

		for _, prize := range draw.Prizes {
			// Each prize restarts from the full eligible pool: a user may
			// win several prizes within the same draw execution.
			pool := make([]int64, len(eligible))
			copy(pool, eligible)

			for picked := 0; picked < prize.WinnersNum && len(pool) > 0; picked++ {
				idx := s.rng.Intn(len(pool))
				winner := model.Winner{
					DrawPrizeID: prize.ID,
					UserID:      pool[idx],
				}
				pool = append(pool[:idx], pool[idx+1:]...)

				if err := s.winnerRepo.Insert(ctx, tx, &winner); err != nil {
					return err
				}
				winners = append(winners, winner)
			}
		}
		return s.drawRepo.MarkCompleted(ctx, tx, draw.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("draw_id", draw.ID).
		Int("winners", len(winners)).
		Int("eligible_pool", len(eligible)).
		Msg("draw executed")

	return &model.ExecuteDrawResponse{
		DrawID:  draw.ID,
		Status:  string(model.DrawStatusCompleted),
		Winners: winners,
	}, nil
}

// eligiblePool returns all user ids minus users with any prior winner row.
// The exclusion set is read on the execution transaction; the user list is
// a pool read, which is safe because users are only ever added and a user
// registered mid-execution simply misses this draw.
func (s *DrawService) eligiblePool(ctx context.Context, tx database.TxQuerier) ([]int64, error) {
	won, err := s.winnerRepo.ListWinnerUserIDs(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	excluded := make(map[int64]struct{}, len(won))
	for _, id := range won {
		excluded[id] = struct{}{}
	}

	users, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	eligible := make([]int64, 0, len(users))
	for _, id := range users {
		if _, ok := excluded[id]; !ok {
			eligible = append(eligible, id)
		}
	}
	return eligible, nil
}

// List retrieves all draws with their prizes.
func (s *DrawService) List(ctx context.Context) ([]model.Draw, error) {
	return s.drawRepo.List(ctx)
}

// Delete removes a draw with its prizes and winners.
// Returns ErrDrawNotFound if the draw doesn't exist.
func (s *DrawService) Delete(ctx context.Context, id int64) error {
	return s.drawRepo.Delete(ctx, id)
}
