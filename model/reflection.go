package model

import (
	"time"

	"gorm.io/datatypes"
)

// Reflection is a free-form survey submission for one module segment.
// At most one row exists per (user, module, segment); resubmission
// replaces the response list in place.
type Reflection struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	UserID        uint           `gorm:"not null;uniqueIndex:idx_reflection_key" json:"user_id"`
	ModuleID      int            `gorm:"not null;uniqueIndex:idx_reflection_key;index" json:"module_id"`
	SegmentID     int            `gorm:"not null;uniqueIndex:idx_reflection_key" json:"segment_id"`
	ActivityTitle string         `gorm:"not null" json:"activity_title"`
	Responses     datatypes.JSON `gorm:"type:jsonb" json:"responses"` // []ReflectionResponse
	CompletedAt   time.Time      `json:"completed_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// ReflectionResponse is one answered prompt inside a reflection
type ReflectionResponse struct {
	PromptID    int       `json:"prompt_id"`
	Question    string    `json:"question"`
	Response    string    `json:"response"`
	SubmittedAt time.Time `json:"submitted_at"`
}
