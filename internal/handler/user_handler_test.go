package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/internal/service"
	appvalidator "github.com/elcady/walimah-backend/internal/validator"
)

// mockUserService is a mock implementation of UserServiceInterface.
type mockUserService struct {
	registerFn      func(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error)
	referralCountFn func(ctx context.Context, userID int64) (int, error)
}

func (m *mockUserService) Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return &model.User{}, nil
}

func (m *mockUserService) ReferralCount(ctx context.Context, userID int64) (int, error) {
	if m.referralCountFn != nil {
		return m.referralCountFn(ctx, userID)
	}
	return 0, nil
}

func setupUserApp(mockSvc *mockUserService) *fiber.App {
	app := fiber.New()
	h := NewUserHandler(mockSvc, appvalidator.New())
	app.Post("/api/users", h.Register)
	app.Get("/api/users/:id/referrals", h.GetReferrals)
	return app
}

const validUserBody = `{"name": "Sara", "city": "Jeddah", "email": "sara@example.com", "number": "+966500000001"}`

func TestRegister_Success(t *testing.T) {
	code := "AB12CD34"
	mockSvc := &mockUserService{
		registerFn: func(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
			return &model.User{ID: 7, Name: req.Name, Code: &code}, nil
		},
	}
	app := setupUserApp(mockSvc)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/users", validUserBody))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode, "Expected 201 Created")

	var user model.User
	err = json.NewDecoder(resp.Body).Decode(&user)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	require.NotNil(t, user.Code)
	assert.Equal(t, "AB12CD34", *user.Code)
}

func TestRegister_MissingName(t *testing.T) {
	app := setupUserApp(&mockUserService{})

	body := `{"city": "Jeddah", "email": "sara@example.com", "number": "+966500000001"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/users", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "invalid request: name is required", result["error"], "Exact error message required")
}

func TestRegister_BadEmail(t *testing.T) {
	app := setupUserApp(&mockUserService{})

	body := `{"name": "Sara", "city": "Jeddah", "email": "not-an-email", "number": "+966500000001"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/users", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "invalid request: email must be a valid email", result["error"])
}

func TestRegister_ReferralCodeNotFound(t *testing.T) {
	mockSvc := &mockUserService{
		registerFn: func(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
			return nil, service.ErrUserCodeNotFound
		},
	}
	app := setupUserApp(mockSvc)

	body := `{"name": "Sara", "city": "Jeddah", "email": "sara@example.com", "number": "+966500000001", "used_code": "NOPE0000"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/users", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "referral code not found", result["error"])
}

func TestRegister_DuplicateNumber(t *testing.T) {
	mockSvc := &mockUserService{
		registerFn: func(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
			return nil, service.ErrUserExists
		},
	}
	app := setupUserApp(mockSvc)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/users", validUserBody))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "user already registered", result["error"])
}

func TestRegister_ServiceError(t *testing.T) {
	mockSvc := &mockUserService{
		registerFn: func(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
			return nil, errors.New("database connection failed")
		},
	}
	app := setupUserApp(mockSvc)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/users", validUserBody))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestGetReferrals_Success(t *testing.T) {
	mockSvc := &mockUserService{
		referralCountFn: func(ctx context.Context, userID int64) (int, error) {
			return 4, nil
		},
	}
	app := setupUserApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/7/referrals", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.ReferralCountResponse
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.UserID)
	assert.Equal(t, 4, result.Referrals)
}

func TestGetReferrals_InvalidID(t *testing.T) {
	app := setupUserApp(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/0/referrals", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "invalid user id", result["error"])
}

func TestGetReferrals_UserNotFound(t *testing.T) {
	mockSvc := &mockUserService{
		referralCountFn: func(ctx context.Context, userID int64) (int, error) {
			return 0, service.ErrUserNotFound
		},
	}
	app := setupUserApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/99/referrals", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "user not found", result["error"])
}
