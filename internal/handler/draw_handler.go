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

// DrawServiceInterface defines the interface for draw business logic.
type DrawServiceInterface interface {
	Create(ctx context.Context, req *model.CreateDrawRequest) (*model.Draw, error)
	Execute(ctx context.Context, drawID int64) (*model.ExecuteDrawResponse, error)
	List(ctx context.Context) ([]model.Draw, error)
	Delete(ctx context.Context, id int64) error
}

// DrawHandler handles HTTP requests for draw operations.
type DrawHandler struct {
	service   DrawServiceInterface
	validator *validator.Validate
}

// NewDrawHandler creates a new DrawHandler with the given service and validator.
func NewDrawHandler(svc DrawServiceInterface, v *validator.Validate) *DrawHandler {
	return &DrawHandler{service: svc, validator: v}
}

// CreateDraw handles POST /api/draws requests to schedule a draw with prizes.
func (h *DrawHandler) CreateDraw(c *fiber.Ctx) error {
	var req model.CreateDrawRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	draw, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDrawExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "draw already exists"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("title", req.Title).
			Msg("failed to create draw")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(draw)
}

// ExecuteDraw handles POST /api/draws/execute requests to run a scheduled draw.
func (h *DrawHandler) ExecuteDraw(c *fiber.Ctx) error {
	var req model.ExecuteDrawRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	result, err := h.service.Execute(c.Context(), *req.DrawID)
	if err != nil {
		if errors.Is(err, service.ErrDrawNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "draw not found"})
		}
		if errors.Is(err, service.ErrDrawAlreadyExecuted) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "draw already executed"})
		}
		if errors.Is(err, service.ErrNoEligibleUsers) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no eligible users"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int64("draw_id", *req.DrawID).
			Msg("failed to execute draw")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Int64("draw_id", result.DrawID).
		Int("winners", len(result.Winners)).
		Msg("draw executed successfully")

	return c.Status(fiber.StatusOK).JSON(result)
}

// ListDraws handles GET /api/draws requests.
func (h *DrawHandler) ListDraws(c *fiber.Ctx) error {
	draws, err := h.service.List(c.Context())
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Msg("failed to list draws")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"draws": draws})
}

// DeleteDraw handles DELETE /api/draws/:id requests.
func (h *DrawHandler) DeleteDraw(c *fiber.Ctx) error {
	drawID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid draw id"})
	}

	if err := h.service.Delete(c.Context(), drawID); err != nil {
		if errors.Is(err, service.ErrDrawNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "draw not found"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int64("draw_id", drawID).
			Msg("failed to delete draw")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusOK).Send(nil)
}
