package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/elcady/walimah-backend/internal/model"
)

// UserRepositoryInterface defines the interface for user data access.
type UserRepositoryInterface interface {
	Insert(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	CountReferrals(ctx context.Context, code string) (int, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

// UserService provides registration and referral logic for campaign users.
type UserService struct {
	userRepo UserRepositoryInterface
}

// NewUserService creates a new UserService with the given repository.
func NewUserService(userRepo UserRepositoryInterface) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register creates a user with a freshly generated referral code.
// When the request carries a used_code it must belong to an existing user.
// Returns:
//   - ErrInvalidRequest if request data is nil
//   - ErrUserCodeNotFound if used_code doesn't belong to any user
//   - ErrUserExists if the phone number is already registered
func (s *UserService) Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil {
		return nil, ErrInvalidRequest
	}

	var usedCode *string
	if req.UsedCode != "" {
		exists, err := s.userRepo.CodeExists(ctx, req.UsedCode)
		if err != nil {
			return nil, fmt.Errorf("check used code: %w", err)
		}
		if !exists {
			return nil, ErrUserCodeNotFound
		}
		usedCode = &req.UsedCode
	}

	code := newReferralCode()
	user := &model.User{
		Name:     req.Name,
		City:     req.City,
		Email:    req.Email,
		Number:   req.Number,
		Code:     &code,
		UsedCode: usedCode,
	}
	if err := s.userRepo.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ReferralCount counts registrations that used the given user's code.
// Returns ErrUserNotFound if the user doesn't exist; a user without a
// referral code has zero referrals.
func (s *UserService) ReferralCount(ctx context.Context, userID int64) (int, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	if user.Code == nil {
		return 0, nil
	}
	return s.userRepo.CountReferrals(ctx, *user.Code)
}

// newReferralCode derives a short shareable code from a random UUID.
func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
