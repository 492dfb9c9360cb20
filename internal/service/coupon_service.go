package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/internal/random"
	"github.com/elcady/walimah-backend/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	CountAvailableByCompany(ctx context.Context, tx database.TxQuerier) (map[model.CouponCompany]int, error)
	CountAssignedByCompany(ctx context.Context, tx database.TxQuerier) (map[model.CouponCompany]int, error)
	PickAvailable(ctx context.Context, tx database.TxQuerier, company model.CouponCompany, offset int) (*model.Coupon, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// AssignmentRepositoryInterface defines the interface for assignment data access.
type AssignmentRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, userID, couponID int64) error
	ListByUser(ctx context.Context, userID int64) ([]model.Coupon, error)
}

// CouponService provides coupon administration and the allocation engine
// that assigns one unused coupon to a user with weighted fairness across
// sponsor companies.
type CouponService struct {
	pool        database.TxBeginner
	couponRepo  CouponRepositoryInterface
	assignRepo  AssignmentRepositoryInterface
	userRepo    UserRepositoryInterface
	weights     map[model.CouponCompany]float64
	rng         random.Source
	maxAttempts int
}

// NewCouponService creates a new CouponService with the given pool,
// repositories, fairness weight table and randomness source.
func NewCouponService(pool *pgxpool.Pool, couponRepo CouponRepositoryInterface, assignRepo AssignmentRepositoryInterface, userRepo UserRepositoryInterface, weights map[model.CouponCompany]float64, rng random.Source, maxAttempts int) *CouponService {
	return newCouponService(pool, couponRepo, assignRepo, userRepo, weights, rng, maxAttempts)
}

// NewCouponServiceWithTxBeginner creates a CouponService with a custom TxBeginner.
// Primarily used for testing.
func NewCouponServiceWithTxBeginner(pool database.TxBeginner, couponRepo CouponRepositoryInterface, assignRepo AssignmentRepositoryInterface, userRepo UserRepositoryInterface, weights map[model.CouponCompany]float64, rng random.Source, maxAttempts int) *CouponService {
	return newCouponService(pool, couponRepo, assignRepo, userRepo, weights, rng, maxAttempts)
}

func newCouponService(pool database.TxBeginner, couponRepo CouponRepositoryInterface, assignRepo AssignmentRepositoryInterface, userRepo UserRepositoryInterface, weights map[model.CouponCompany]float64, rng random.Source, maxAttempts int) *CouponService {
	if weights == nil {
		weights = model.DefaultCompanyWeights
	}
	if rng == nil {
		rng = random.New()
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &CouponService{
		pool:        pool,
		couponRepo:  couponRepo,
		assignRepo:  assignRepo,
		userRepo:    userRepo,
		weights:     weights,
		rng:         rng,
		maxAttempts: maxAttempts,
	}
}

// Create creates a new coupon from the request.
// Returns ErrCouponExists if a coupon with the same code already exists.
// Returns ErrInvalidRequest if request data is nil or malformed.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil {
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

	coupon := &model.Coupon{
		Code:      req.Code,
		Company:   model.CouponCompany(req.Company),
		Type:      model.CouponType(req.Type),
		Value:     req.Value,
		StartDate: startDate,
		EndDate:   endDate,
	}
	if err := s.couponRepo.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// AssignCoupon assigns exactly one previously-unassigned coupon to the user.
//
// Selection is a two-stage weighted pick: first a sponsor company is chosen
// by weighted random among companies with availability (ordered by ascending
// usage so heavily-drained sponsors sort first on ties), then a uniformly
// random coupon inside that company. Selection and assignment run inside a
// single transaction; if a concurrent caller wins the race for the picked
// coupon the UNIQUE constraint rejects the insert and the whole selection
// is re-run, up to maxAttempts times.
//
// Returns:
//   - ErrUserNotFound if the user doesn't exist
//   - ErrCouponsExhausted if no company has an available coupon, or every
//     attempt lost its race
func (s *CouponService) AssignCoupon(ctx context.Context, userID int64) (*model.Coupon, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		coupon, err := s.tryAssign(ctx, userID)
		if errors.Is(err, ErrCouponAlreadyAssigned) || errors.Is(err, ErrCouponPickRaced) {
			// Lost the race for this coupon, or a concurrent caller
			// drained the selected company between the count and the
			// pick. Either way other companies may still hold stock,
			// so the whole selection re-runs from scratch.
			continue
		}
		if err != nil {
			return nil, err
		}
		return coupon, nil
	}
	return nil, ErrCouponsExhausted
}

func (s *CouponService) tryAssign(ctx context.Context, userID int64) (*model.Coupon, error) {
	var coupon *model.Coupon
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		available, err := s.couponRepo.CountAvailableByCompany(ctx, tx)
		if err != nil {
			return fmt.Errorf("count available: %w", err)
		}
		assigned, err := s.couponRepo.CountAssignedByCompany(ctx, tx)
		if err != nil {
			return fmt.Errorf("count assigned: %w", err)
		}

		company, ok := s.selectCompany(available, assigned)
		if !ok {
			return ErrCouponsExhausted
		}

		offset := s.rng.Intn(available[company])
		picked, err := s.couponRepo.PickAvailable(ctx, tx, company, offset)
		if err != nil {
			return err
		}

		if err := s.assignRepo.Insert(ctx, tx, userID, picked.ID); err != nil {
			return err
		}

		coupon = picked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

// selectCompany performs the weighted random pick among companies that
// still have availability. Candidates are ordered by ascending usage,
// ties broken by the weight-table iteration order (model.Companies); a
// uniform number in [0, totalWeight) is drawn and candidate weights are
// subtracted in turn until the draw crosses zero.
func (s *CouponService) selectCompany(available, assigned map[model.CouponCompany]int) (model.CouponCompany, bool) {
	type candidate struct {
		company model.CouponCompany
		weight  float64
		usage   int
	}

	var candidates []candidate
	var totalWeight float64
	for _, company := range model.Companies {
		if available[company] <= 0 {
			continue
		}
		weight := s.weights[company]
		if weight <= 0 {
			continue
		}
		candidates = append(candidates, candidate{company: company, weight: weight, usage: assigned[company]})
		totalWeight += weight
	}

	if len(candidates) == 0 || totalWeight <= 0 {
		return "", false
	}

	// Stable sort keeps model.Companies order on equal usage.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].usage < candidates[j].usage
	})

	r := s.rng.Float64() * totalWeight
	for _, c := range candidates {
		r -= c.weight
		if r < 0 {
			return c.company, true
		}
	}
	// Float rounding can leave a sliver; the last candidate absorbs it.
	return candidates[len(candidates)-1].company, true
}

// UserCoupons retrieves the coupons assigned to a user.
// Returns ErrUserNotFound if the user doesn't exist.
func (s *CouponService) UserCoupons(ctx context.Context, userID int64) ([]model.Coupon, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.assignRepo.ListByUser(ctx, userID)
}

// DeleteAll removes every coupon and assignment. Administrative escape hatch.
func (s *CouponService) DeleteAll(ctx context.Context) (int64, error) {
	return s.couponRepo.DeleteAll(ctx)
}
