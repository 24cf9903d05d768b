package auth

import (
	"time"

	"github.com/kujua-learning/kujua-api/config"
	"github.com/kujua-learning/kujua-api/model"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/utils/middleware"
	"github.com/kujua-learning/kujua-api/utils/validation"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	validator   *validation.Validator
	bruteForce  *middleware.BruteForceProtection
	oauthConfig *oauth2.Config
	frontendURL string
}

// NewAuthHandler creates a new auth handler. The OAuth config is nil when
// Google credentials are not configured; the Google routes then return 404.
func NewAuthHandler(
	authService *services.AuthService,
	validator *validation.Validator,
	bruteForce *middleware.BruteForceProtection,
	cfg *config.Config,
) *AuthHandler {
	var oauthConfig *oauth2.Config
	if cfg.GoogleOAuthEnabled() {
		oauthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleOAuth.ClientID,
			ClientSecret: cfg.GoogleOAuth.ClientSecret,
			RedirectURL:  cfg.GoogleOAuth.CallbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}
	}

	return &AuthHandler{
		authService: authService,
		validator:   validator,
		bruteForce:  bruteForce,
		oauthConfig: oauthConfig,
		frontendURL: cfg.FrontendURL,
	}
}

// UserResponse is the sanitized user projection returned by auth endpoints
type UserResponse struct {
	ID          uint      `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Image       string    `json:"image,omitempty"`
	IsOAuth     bool      `json:"is_oauth"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        u.Role,
		PhoneNumber: u.PhoneNumber,
		Image:       u.Image,
		IsOAuth:     u.IsOAuth,
		CreatedAt:   u.CreatedAt,
	}
}
