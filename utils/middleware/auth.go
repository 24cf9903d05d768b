package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kujua-learning/kujua-api/model"
	"github.com/kujua-learning/kujua-api/utils/auth"
	"github.com/kujua-learning/kujua-api/utils/response"
	"gorm.io/gorm"
)

var (
	errMissingToken = errors.New("missing authorization token")
	errBadFormat    = errors.New("invalid authorization format")
	errUserNotFound = errors.New("user not found")
	errUserLoad     = errors.New("failed to load user")
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	db         *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		db:         db,
	}
}

// authenticate validates the bearer token and loads the account behind it.
// Deactivated accounts fail here because soft-deleted rows are excluded
// from the default query scope.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, errMissingToken
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, errBadFormat
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, nil, err
	}

	var user model.User
	if err := m.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errUserNotFound
		}
		return nil, nil, errUserLoad
	}

	return claims, &user, nil
}

// reject maps an authentication failure to the HTTP response
func reject(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errMissingToken):
		return response.Unauthorized(c, "Missing authorization token")
	case errors.Is(err, errBadFormat):
		return response.Unauthorized(c, "Invalid authorization format")
	case errors.Is(err, auth.ErrExpiredToken):
		return response.Unauthorized(c, "Token has expired")
	case errors.Is(err, errUserNotFound):
		return response.Unauthorized(c, "User not found")
	case errors.Is(err, errUserLoad):
		return response.InternalServerError(c, "Failed to load user")
	default:
		return response.Unauthorized(c, "Invalid token")
	}
}

func storeAuthContext(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", claims.UserID)
	c.Locals("user_email", claims.Email)
	c.Locals("user_role", user.Role)
	c.Locals("claims", claims)
	c.Locals("user", user)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return reject(c, err)
		}

		storeAuthContext(c, claims, user)
		return c.Next()
	}
}

// RequireAdmin is middleware that requires a valid token belonging to an
// admin account. The role check runs against the stored user, not the
// token claims, so a demoted admin loses access immediately.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return reject(c, err)
		}

		if user.Role != model.RoleAdmin {
			return response.Forbidden(c, "Admin access required")
		}

		storeAuthContext(c, claims, user)
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return c.Next()
		}

		storeAuthContext(c, claims, user)
		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *fiber.Ctx) (string, bool) {
	email := c.Locals("user_email")
	if email == nil {
		return "", false
	}
	e, ok := email.(string)
	return e, ok
}

// GetUserRole extracts user role from context
func GetUserRole(c *fiber.Ctx) (string, bool) {
	role := c.Locals("user_role")
	if role == nil {
		return "", false
	}
	r, ok := role.(string)
	return r, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims := c.Locals("claims")
	if claims == nil {
		return nil, false
	}
	claimsData, ok := claims.(*auth.Claims)
	return claimsData, ok
}
