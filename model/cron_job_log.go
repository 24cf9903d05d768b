package model

import "time"

// CronJobLog records one run of a scheduled background job
type CronJobLog struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	JobName     string     `gorm:"type:varchar(100);index" json:"job_name"`
	Status      string     `gorm:"type:varchar(20)" json:"status"` // running, completed, failed
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Message     string     `gorm:"type:text" json:"message,omitempty"`
	ErrorMsg    string     `gorm:"type:text" json:"error_msg,omitempty"`
}
