package model

import "time"

// DrawStatus is the lifecycle state of a draw.
// SCHEDULED -> COMPLETED is the only transition and it happens exactly
// once, at execution time.
type DrawStatus string

const (
	DrawStatusScheduled DrawStatus = "SCHEDULED"
	DrawStatusCompleted DrawStatus = "COMPLETED"
)

// Draw is a scheduled lottery event owning an ordered set of prizes.
type Draw struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Status    DrawStatus `json:"status"`
	Prizes    []Prize    `json:"prizes"`
	CreatedAt time.Time  `json:"-"`
}

// Prize is a named reward within a draw with a target winner count.
type Prize struct {
	ID         int64  `json:"id"`
	DrawID     int64  `json:"draw_id"`
	Name       string `json:"name"`
	Value      string `json:"value"`
	WinnersNum int    `json:"winners_num"`
}

// Winner binds one user to one prize. A user with any winner row, in any
// draw, is permanently excluded from future selections.
type Winner struct {
	ID          int64     `json:"id"`
	DrawPrizeID int64     `json:"prize_id"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreatePrizeRequest is one prize entry in a CreateDrawRequest.
type CreatePrizeRequest struct {
	Name    string `json:"name" validate:"required,notblank,max=255"`
	Value   string `json:"value" validate:"required,notblank,max=255"`
	Winners *int   `json:"winners" validate:"required,gte=1"`
}

// CreateDrawRequest is the DTO for POST /api/draws.
type CreateDrawRequest struct {
	Title     string               `json:"title" validate:"required,notblank,max=255"`
	StartDate string               `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string               `json:"end_date" validate:"required,datetime=2006-01-02"`
	Prizes    []CreatePrizeRequest `json:"prizes" validate:"required,min=1,dive"`
}

// ExecuteDrawRequest is the DTO for POST /api/draws/execute.
type ExecuteDrawRequest struct {
	DrawID *int64 `json:"draw_id" validate:"required,gte=1"`
}

// ExecuteDrawResponse is the API response for a completed execution.
type ExecuteDrawResponse struct {
	DrawID  int64    `json:"draw_id"`
	Status  string   `json:"status"`
	Winners []Winner `json:"winners"`
}
