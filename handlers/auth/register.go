package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/model"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/utils/middleware"
	"github.com/kujua-learning/kujua-api/utils/response"
	"github.com/kujua-learning/kujua-api/utils/validation"
)

// RegisterResponse is returned on successful registration
type RegisterResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// Register handles learner registration
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.authService.Register(req, model.RoleUser)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return response.Conflict(c, "An account with this email already exists")
		}
		return response.InternalServerError(c, "Failed to register user")
	}

	return response.Created(c, RegisterResponse{
		User:  toUserResponse(result.User),
		Token: result.Token,
	})
}

// RegisterAdmin handles admin account provisioning. When the caller is an
// authenticated admin, the new account records who created it.
func (h *AuthHandler) RegisterAdmin(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if !validation.ValidateEmail(req.Email) {
		return response.BadRequest(c, "Invalid email format")
	}

	var createdBy *uint
	if callerID, ok := middleware.GetUserID(c); ok {
		createdBy = &callerID
	}

	result, err := h.authService.RegisterAdmin(req, createdBy)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return response.Conflict(c, "An account with this email already exists")
		}
		return response.InternalServerError(c, "Failed to register admin")
	}

	return response.Created(c, RegisterResponse{
		User:  toUserResponse(result.User),
		Token: result.Token,
	})
}
