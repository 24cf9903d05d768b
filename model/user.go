package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered learner or admin
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	FirstName   string         `gorm:"not null" json:"first_name"`
	LastName    string         `gorm:"not null" json:"last_name"`
	Email       string         `gorm:"uniqueIndex;not null" json:"email"`
	Password    string         `gorm:"not null" json:"-"` // bcrypt hash, never exposed
	IsOAuth     bool           `gorm:"default:false" json:"is_oauth"`
	Role        string         `gorm:"type:varchar(20);default:'user'" json:"role"` // user, admin
	PhoneNumber string         `json:"phone_number,omitempty"`
	Image       string         `json:"image,omitempty"`
	CreatedByID *uint          `gorm:"index" json:"created_by,omitempty"` // admin that provisioned this account

	// Relationships
	CreatedBy   *User        `gorm:"foreignKey:CreatedByID" json:"-"`
	Progress    *Progress    `gorm:"foreignKey:UserID" json:"-"`
	Reflections []Reflection `gorm:"foreignKey:UserID" json:"-"`
}

// FullName joins first and last name for tokens, certificates and exports
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
