package model

import (
	"time"
)

// Module statuses
const (
	ModuleStatusLocked     = "locked"
	ModuleStatusInProgress = "in-progress"
	ModuleStatusCompleted  = "completed"
)

// Progress tracks one user's journey through the course. One record per
// user; modules and parts hang off it as ordered sub-records.
type Progress struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	UserID              uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	OverallProgress     int        `gorm:"default:0" json:"overall_progress"` // 0-100, mean of module progress
	CompletedModules    int        `gorm:"default:0" json:"completed_modules"`
	TotalModules        int        `gorm:"default:4" json:"total_modules"`
	CurrentModuleID     int        `gorm:"default:1" json:"current_module_id"`
	CourseStartedAt     *time.Time `json:"course_started_at"`
	LastAccessedAt      *time.Time `json:"last_accessed_at"`
	AverageScore        int        `gorm:"default:0" json:"average_score"` // over passed-and-completed modules
	CertificateEarned   bool       `gorm:"default:false" json:"certificate_earned"`
	CertificateIssuedAt *time.Time `json:"certificate_issued_at"`
	CertificateID       string     `gorm:"type:varchar(30)" json:"certificate_id,omitempty"`

	// Relationships
	User    User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Modules []ModuleProgress `gorm:"foreignKey:ProgressID;constraint:OnDelete:CASCADE" json:"modules"`
}

// ModuleProgress is one user's state for one of the four curriculum modules
type ModuleProgress struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	ProgressID         uint       `gorm:"index;not null" json:"-"`
	ModuleID           int        `gorm:"not null" json:"module_id"` // 1..4
	Title              string     `gorm:"not null" json:"title"`
	Status             string     `gorm:"type:varchar(20);default:'locked'" json:"status"` // locked, in-progress, completed
	Progress           int        `gorm:"default:0" json:"progress"`                       // 0-100, derived from parts
	StartedAt          *time.Time `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	AssessmentScore    *int       `json:"assessment_score"`
	AssessmentPassed   bool       `gorm:"default:false" json:"assessment_passed"`
	AssessmentAttempts int        `gorm:"default:0" json:"assessment_attempts"`
	LastAssessmentAt   *time.Time `json:"last_assessment_at"`

	Parts []PartProgress `gorm:"foreignKey:ModuleProgressID;constraint:OnDelete:CASCADE" json:"parts"`
}

// PartProgress is binary completion state for one content unit
type PartProgress struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ModuleProgressID uint       `gorm:"index;not null" json:"-"`
	PartID           int        `gorm:"not null" json:"part_id"`
	Title            string     `gorm:"not null" json:"title"`
	Completed        bool       `gorm:"default:false" json:"completed"`
	CompletedAt      *time.Time `json:"completed_at"`
}
