package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/internal/service"
)

// CouponServiceInterface defines the interface for coupon business logic.
type CouponServiceInterface interface {
	Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	AssignCoupon(ctx context.Context, userID int64) (*model.Coupon, error)
	UserCoupons(ctx context.Context, userID int64) ([]model.Coupon, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// fieldName maps a validated struct field to its JSON name.
func fieldName(field string) string {
	switch field {
	case "UserID":
		return "user_id"
	case "DrawID":
		return "draw_id"
	case "StartDate":
		return "start_date"
	case "EndDate":
		return "end_date"
	case "UsedCode":
		return "used_code"
	default:
		return strings.ToLower(field)
	}
}

// formatValidationError converts validator errors to stable API messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			name := fieldName(fe.Field())
			switch fe.Tag() {
			case "required":
				return "invalid request: " + name + " is required"
			case "notblank":
				return "invalid request: " + name + " cannot be whitespace only"
			case "max":
				return "invalid request: " + name + " exceeds maximum length"
			case "min":
				return "invalid request: " + name + " has too few entries"
			case "gte":
				return "invalid request: " + name + " must be at least 1"
			case "datetime":
				return "invalid request: " + name + " must be a yyyy-mm-dd date"
			case "couponcompany":
				return "invalid request: " + name + " is not a known company"
			case "oneof":
				return "invalid request: " + name + " must be one of " + fe.Param()
			case "email":
				return "invalid request: " + name + " must be a valid email"
			default:
				return "invalid request: " + name + " is invalid"
			}
		}
	}
	return "invalid request"
}

// parseIDParam parses a positive integer path parameter.
func parseIDParam(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// CreateCoupon handles POST /api/coupons requests to register a sponsor coupon.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CreateCouponRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCouponExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon already exists"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("code", req.Code).
			Msg("failed to create coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// AssignCoupon handles POST /api/coupons/assign requests to allocate one
// unused coupon to a user.
func (h *CouponHandler) AssignCoupon(c *fiber.Ctx) error {
	var req model.AssignCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.AssignCoupon(c.Context(), *req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		if errors.Is(err, service.ErrCouponsExhausted) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "all coupons used"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int64("user_id", *req.UserID).
			Msg("failed to assign coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Int64("user_id", *req.UserID).
		Int64("coupon_id", coupon.ID).
		Str("company", string(coupon.Company)).
		Msg("coupon assigned")

	return c.Status(fiber.StatusOK).JSON(coupon)
}

// GetUserCoupons handles GET /api/users/:id/coupons requests.
func (h *CouponHandler) GetUserCoupons(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	coupons, err := h.service.UserCoupons(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int64("user_id", userID).
			Msg("failed to list user coupons")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"coupons": coupons})
}

// DeleteAllCoupons handles DELETE /api/coupons requests.
// Administrative escape hatch: wipes the whole coupon pool.
func (h *CouponHandler) DeleteAllCoupons(c *fiber.Ctx) error {
	deleted, err := h.service.DeleteAll(c.Context())
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Msg("failed to delete coupons")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"deleted": deleted})
}
