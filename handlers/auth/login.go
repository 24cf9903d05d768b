package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/utils/response"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// Login handles user signin
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	ip := c.IP()

	result, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			if h.bruteForce != nil {
				h.bruteForce.RecordFailedAttempt(c, ip)
			}
			return response.Unauthorized(c, "Invalid email or password")
		}
		return response.InternalServerError(c, "Failed to sign in")
	}

	if h.bruteForce != nil {
		h.bruteForce.RecordSuccessfulAttempt(c, ip)
	}

	return response.Success(c, LoginResponse{
		User:  toUserResponse(result.User),
		Token: result.Token,
	})
}
