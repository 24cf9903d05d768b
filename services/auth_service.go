package services

import (
	"errors"
	"log"
	"strings"

	"github.com/kujua-learning/kujua-api/model"
	"github.com/kujua-learning/kujua-api/utils/auth"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// WelcomeMailer sends the post-registration email. Satisfied by EmailService;
// tests substitute a stub.
type WelcomeMailer interface {
	SendWelcomeEmail(toEmail, firstName string) error
}

// AuthService handles registration, credential checks and token issuance
type AuthService struct {
	db         *gorm.DB
	jwtManager *auth.JWTManager
	mailer     WelcomeMailer
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, jwtManager *auth.JWTManager, mailer WelcomeMailer) *AuthService {
	return &AuthService{
		db:         db,
		jwtManager: jwtManager,
		mailer:     mailer,
	}
}

// RegisterInput is the payload for creating a new account
type RegisterInput struct {
	FirstName   string `json:"firstName" validate:"required,min=1,max=100"`
	LastName    string `json:"lastName" validate:"required,min=1,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=20"`
	Image       string `json:"image" validate:"omitempty,max=500"`
}

// AuthResult is returned from registration and signin
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a new local account inside a transaction and sends a
// best-effort welcome email after commit. Email failures never fail
// registration.
func (s *AuthService) Register(input RegisterInput, role string) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       email,
		Password:    hashed,
		Role:        role,
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Image:       input.Image,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.User
		if err := tx.Where("email = ?", email).First(&existing).Error; err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if mailErr := s.mailer.SendWelcomeEmail(user.Email, user.FirstName); mailErr != nil {
			log.Printf("welcome email failed for %s: %v", user.Email, mailErr)
		}
	}

	token, err := s.issueToken(&user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: &user, Token: token}, nil
}

// RegisterAdmin creates an admin account, recording the provisioning admin
func (s *AuthService) RegisterAdmin(input RegisterInput, createdBy *uint) (*AuthResult, error) {
	result, err := s.Register(input, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if createdBy != nil {
		if err := s.db.Model(result.User).Update("created_by_id", *createdBy).Error; err != nil {
			return nil, err
		}
		result.User.CreatedByID = createdBy
	}

	return result, nil
}

// Login verifies credentials and issues a token. The error is identical for
// a missing account and a wrong password.
func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.VerifyPassword(user.Password, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(&user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: &user, Token: token}, nil
}

// GetProfile returns the user for the given id
func (s *AuthService) GetProfile(userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindOrCreateOAuthUser resolves a verified external identity to a local
// account. An existing account is returned as-is; a new one gets a random
// placeholder password since it never authenticates locally.
func (s *AuthService) FindOrCreateOAuthUser(email, firstName, lastName, image string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user model.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		token, tokenErr := s.issueToken(&user)
		if tokenErr != nil {
			return nil, tokenErr
		}
		return &AuthResult{User: &user, Token: token}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	placeholder, err := auth.RandomPlaceholderPassword()
	if err != nil {
		return nil, err
	}
	hashed, err := auth.HashPassword(placeholder)
	if err != nil {
		return nil, err
	}

	user = model.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  hashed,
		IsOAuth:   true,
		Role:      model.RoleUser,
		Image:     image,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&user).Error
	}); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if mailErr := s.mailer.SendWelcomeEmail(user.Email, user.FirstName); mailErr != nil {
			log.Printf("welcome email failed for %s: %v", user.Email, mailErr)
		}
	}

	token, err := s.issueToken(&user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: &user, Token: token}, nil
}

func (s *AuthService) issueToken(user *model.User) (string, error) {
	return s.jwtManager.GenerateToken(auth.TokenSubject{
		UserID:      user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		Role:        user.Role,
		CreatedBy:   user.CreatedByID,
	})
}
