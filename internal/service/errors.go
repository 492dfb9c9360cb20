package service

import "errors"

var (
	// ErrCouponExists is returned when attempting to create a coupon whose code already exists
	ErrCouponExists = errors.New("coupon already exists")

	// ErrCouponsExhausted is returned when no company has any unassigned coupon left
	ErrCouponsExhausted = errors.New("all coupons used")

	// ErrCouponAlreadyAssigned is returned when a concurrent caller won the race for the picked coupon
	ErrCouponAlreadyAssigned = errors.New("coupon already assigned")

	// ErrCouponPickRaced is returned when the selected company was drained
	// between counting its availability and fetching a coupon from it
	ErrCouponPickRaced = errors.New("picked coupon no longer available")

	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserCodeNotFound is returned when a referral code does not belong to any user
	ErrUserCodeNotFound = errors.New("referral code not found")

	// ErrUserExists is returned when registering a user whose number is already registered
	ErrUserExists = errors.New("user already registered")

	// ErrDrawNotFound is returned when a draw cannot be found
	ErrDrawNotFound = errors.New("draw not found")

	// ErrDrawExists is returned when creating a draw whose title already exists
	ErrDrawExists = errors.New("draw already exists")

	// ErrDrawAlreadyExecuted is returned when executing a draw that is already completed
	ErrDrawAlreadyExecuted = errors.New("draw already executed")

	// ErrNoEligibleUsers is returned when every user is excluded by prior wins
	ErrNoEligibleUsers = errors.New("no eligible users")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)
