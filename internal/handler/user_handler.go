package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/internal/service"
)

// UserServiceInterface defines the interface for user business logic.
type UserServiceInterface interface {
	Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error)
	ReferralCount(ctx context.Context, userID int64) (int, error)
}

// UserHandler handles HTTP requests for user operations.
type UserHandler struct {
	service   UserServiceInterface
	validator *validator.Validate
}

// NewUserHandler creates a new UserHandler with the given service and validator.
func NewUserHandler(svc UserServiceInterface, v *validator.Validate) *UserHandler {
	return &UserHandler{service: svc, validator: v}
}

// Register handles POST /api/users requests to register a campaign user.
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req model.RegisterUserRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	user, err := h.service.Register(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserCodeNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "referral code not found"})
		}
		if errors.Is(err, service.ErrUserExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "user already registered"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("number", req.Number).
			Msg("failed to register user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetReferrals handles GET /api/users/:id/referrals requests.
func (h *UserHandler) GetReferrals(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	count, err := h.service.ReferralCount(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int64("user_id", userID).
			Msg("failed to count referrals")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusOK).JSON(model.ReferralCountResponse{UserID: userID, Referrals: count})
}
