package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/utils/middleware"
	"github.com/kujua-learning/kujua-api/utils/response"
)

// Profile returns the authenticated user's profile
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	user, err := h.authService.GetProfile(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.Unauthorized(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to load profile")
	}

	return response.Success(c, toUserResponse(user))
}
