package model

import "time"

// User is a campaign participant. Code is the user's own referral code
// (generated at registration); UsedCode optionally references another
// user's code. Referral counts are derived, never stored.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Email     string    `json:"email"`
	Number    string    `json:"number"`
	Code      *string   `json:"code"`
	UsedCode  *string   `json:"used_code"`
	CreatedAt time.Time `json:"-"`
}

// RegisterUserRequest is the DTO for POST /api/users.
type RegisterUserRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=255"`
	City     string `json:"city" validate:"required,notblank,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Number   string `json:"number" validate:"required,notblank,max=32"`
	UsedCode string `json:"used_code" validate:"omitempty,max=64"`
}

// ReferralCountResponse is the API response for GET /api/users/:id/referrals.
type ReferralCountResponse struct {
	UserID    int64 `json:"user_id"`
	Referrals int   `json:"referrals"`
}
