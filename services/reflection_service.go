package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/kujua-learning/kujua-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrReflectionNotFound is returned when no reflection exists for a segment
var ErrReflectionNotFound = errors.New("reflection not found")

// ReflectionService handles survey submissions and their read-side queries
type ReflectionService struct {
	db *gorm.DB
}

// NewReflectionService creates a new reflection service
func NewReflectionService(db *gorm.DB) *ReflectionService {
	return &ReflectionService{db: db}
}

// SubmitReflectionInput is the payload for submitting a reflection
type SubmitReflectionInput struct {
	ModuleID      int                     `json:"moduleId" validate:"required,gte=1,lte=4"`
	SegmentID     int                     `json:"segmentId" validate:"required,gte=1"`
	ActivityTitle string                  `json:"activityTitle" validate:"required,max=300"`
	Responses     []ReflectionPromptInput `json:"responses" validate:"required,min=1,dive"`
}

// ReflectionPromptInput is one answered prompt in a submission
type ReflectionPromptInput struct {
	PromptID int    `json:"promptId" validate:"required"`
	Question string `json:"question" validate:"required"`
	Response string `json:"response" validate:"required"`
}

// Submit creates or replaces the reflection for (user, module, segment).
// Resubmission overwrites the response list and completion timestamp.
func (s *ReflectionService) Submit(userID uint, input SubmitReflectionInput) (*model.Reflection, error) {
	now := time.Now()

	responses := make([]model.ReflectionResponse, 0, len(input.Responses))
	for _, r := range input.Responses {
		responses = append(responses, model.ReflectionResponse{
			PromptID:    r.PromptID,
			Question:    r.Question,
			Response:    r.Response,
			SubmittedAt: now,
		})
	}

	encoded, err := json.Marshal(responses)
	if err != nil {
		return nil, err
	}

	var reflection model.Reflection
	err = s.db.Where("user_id = ? AND module_id = ? AND segment_id = ?",
		userID, input.ModuleID, input.SegmentID).First(&reflection).Error
	if err == nil {
		reflection.Responses = datatypes.JSON(encoded)
		reflection.CompletedAt = now
		if err := s.db.Save(&reflection).Error; err != nil {
			return nil, err
		}
		return &reflection, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	reflection = model.Reflection{
		UserID:        userID,
		ModuleID:      input.ModuleID,
		SegmentID:     input.SegmentID,
		ActivityTitle: input.ActivityTitle,
		Responses:     datatypes.JSON(encoded),
		CompletedAt:   now,
	}
	if err := s.db.Create(&reflection).Error; err != nil {
		return nil, err
	}
	return &reflection, nil
}

// GetBySegment returns the user's reflection for one module segment
func (s *ReflectionService) GetBySegment(userID uint, moduleID, segmentID int) (*model.Reflection, error) {
	var reflection model.Reflection
	err := s.db.Where("user_id = ? AND module_id = ? AND segment_id = ?",
		userID, moduleID, segmentID).First(&reflection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReflectionNotFound
		}
		return nil, err
	}
	return &reflection, nil
}

// GetUserReflections lists the user's reflections, newest first
func (s *ReflectionService) GetUserReflections(userID uint) ([]model.Reflection, error) {
	var reflections []model.Reflection
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reflections).Error
	return reflections, err
}

// GetModuleReflections lists all reflections for a module with submitter
// identity attached, newest first
func (s *ReflectionService) GetModuleReflections(moduleID int) ([]model.Reflection, error) {
	var reflections []model.Reflection
	err := s.db.Preload("User").
		Where("module_id = ?", moduleID).
		Order("created_at DESC").
		Find(&reflections).Error
	return reflections, err
}

// ReflectionFilters narrows GetAllReflections
type ReflectionFilters struct {
	ModuleID  int
	SegmentID int
	StartDate *time.Time
	EndDate   *time.Time
}

// GetAllReflections lists reflections matching the filters, newest first
func (s *ReflectionService) GetAllReflections(filters ReflectionFilters) ([]model.Reflection, error) {
	query := s.db.Preload("User").Order("created_at DESC")

	if filters.ModuleID > 0 {
		query = query.Where("module_id = ?", filters.ModuleID)
	}
	if filters.SegmentID > 0 {
		query = query.Where("segment_id = ?", filters.SegmentID)
	}
	if filters.StartDate != nil {
		query = query.Where("created_at >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		query = query.Where("created_at <= ?", *filters.EndDate)
	}

	var reflections []model.Reflection
	err := query.Find(&reflections).Error
	return reflections, err
}

// ModuleReflectionCount is one module's submission count
type ModuleReflectionCount struct {
	ModuleID int   `json:"moduleId"`
	Count    int64 `json:"count"`
}

// SegmentReflectionCount is one (module, segment) pair's submission count
type SegmentReflectionCount struct {
	ModuleID  int   `json:"moduleId"`
	SegmentID int   `json:"segmentId"`
	Count     int64 `json:"count"`
}

// DailyReflectionCount is one day's submission count
type DailyReflectionCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ReflectionStats aggregates submissions by module, segment and day
type ReflectionStats struct {
	TotalReflections int64                    `json:"totalReflections"`
	TotalUsers       int64                    `json:"totalUsers"`
	ByModule         []ModuleReflectionCount  `json:"byModule"`
	BySegment        []SegmentReflectionCount `json:"bySegment"`
	Daily            []DailyReflectionCount   `json:"daily"`
}

// GetReflectionStats computes submission aggregates. The daily series
// covers a trailing 30-day window.
func (s *ReflectionService) GetReflectionStats() (*ReflectionStats, error) {
	stats := &ReflectionStats{}

	if err := s.db.Model(&model.Reflection{}).Count(&stats.TotalReflections).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&model.Reflection{}).
		Distinct("user_id").
		Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&model.Reflection{}).
		Select("module_id, COUNT(*) as count").
		Group("module_id").
		Order("module_id ASC").
		Scan(&stats.ByModule).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&model.Reflection{}).
		Select("module_id, segment_id, COUNT(*) as count").
		Group("module_id, segment_id").
		Order("module_id ASC, segment_id ASC").
		Scan(&stats.BySegment).Error; err != nil {
		return nil, err
	}

	windowStart := time.Now().AddDate(0, 0, -30)
	var rows []struct {
		Day   string
		Count int64
	}
	if err := s.db.Model(&model.Reflection{}).
		Select("DATE(created_at) as day, COUNT(*) as count").
		Where("created_at >= ?", windowStart).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.Daily = append(stats.Daily, DailyReflectionCount{
			Date:  dayString(row.Day),
			Count: row.Count,
		})
	}

	return stats, nil
}

// ExportedReflection is a flattened reflection row for admin export
type ExportedReflection struct {
	UserName      string                     `json:"userName"`
	UserEmail     string                     `json:"userEmail"`
	ModuleID      int                        `json:"moduleId"`
	SegmentID     int                        `json:"segmentId"`
	ActivityTitle string                     `json:"activityTitle"`
	CompletedAt   time.Time                  `json:"completedAt"`
	Responses     []model.ReflectionResponse `json:"responses"`
}

// ExportReflections flattens reflections (optionally one module's) into
// export rows with submitter identity
func (s *ReflectionService) ExportReflections(moduleID int) ([]ExportedReflection, error) {
	query := s.db.Preload("User").Order("created_at DESC")
	if moduleID > 0 {
		query = query.Where("module_id = ?", moduleID)
	}

	var reflections []model.Reflection
	if err := query.Find(&reflections).Error; err != nil {
		return nil, err
	}

	exported := make([]ExportedReflection, 0, len(reflections))
	for _, r := range reflections {
		var responses []model.ReflectionResponse
		if len(r.Responses) > 0 {
			if err := json.Unmarshal(r.Responses, &responses); err != nil {
				return nil, err
			}
		}
		exported = append(exported, ExportedReflection{
			UserName:      r.User.FullName(),
			UserEmail:     r.User.Email,
			ModuleID:      r.ModuleID,
			SegmentID:     r.SegmentID,
			ActivityTitle: r.ActivityTitle,
			CompletedAt:   r.CompletedAt,
			Responses:     responses,
		})
	}
	return exported, nil
}

// dayString normalizes a scanned DATE() value to YYYY-MM-DD. Drivers differ
// on whether the value arrives as a bare date or a full timestamp string.
func dayString(day string) string {
	if len(day) > 10 {
		return day[:10]
	}
	return day
}
