package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/kujua-learning/kujua-api/model"
	"github.com/kujua-learning/kujua-api/utils/cache"
	"gorm.io/gorm"
)

// ErrAdminRequired is returned uniformly for any non-admin caller,
// including nonexistent ids
var ErrAdminRequired = errors.New("only admins can access this resource")

const (
	dashboardStatsCacheKey = "admin:dashboard_stats"
	dashboardStatsCacheTTL = 5 * time.Minute
)

// AdminService is the read-only analytics surface. Every entry point
// verifies the caller's role before touching data; the router-level admin
// guard is not trusted on its own.
type AdminService struct {
	db          *gorm.DB
	redisCache  *cache.RedisCache
	reflections *ReflectionService
}

// NewAdminService creates a new admin service. redisCache may be nil, in
// which case dashboard stats are computed on every call.
func NewAdminService(db *gorm.DB, redisCache *cache.RedisCache, reflections *ReflectionService) *AdminService {
	return &AdminService{
		db:          db,
		redisCache:  redisCache,
		reflections: reflections,
	}
}

// requireAdmin loads the caller and rejects anyone who is not an active
// admin account
func (s *AdminService) requireAdmin(callerID uint) error {
	var caller model.User
	if err := s.db.First(&caller, callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminRequired
		}
		return err
	}
	if caller.Role != model.RoleAdmin {
		return ErrAdminRequired
	}
	return nil
}

// DashboardStats is the headline admin dashboard payload
type DashboardStats struct {
	TotalLearners      int64 `json:"totalLearners"`
	ActiveModules      int   `json:"activeModules"`
	CompletionRate     int   `json:"completionRate"`
	CertificatesIssued int64 `json:"certificatesIssued"`
}

// GetDashboardStats returns headline counts, served from cache when warm
func (s *AdminService) GetDashboardStats(ctx context.Context, callerID uint) (*DashboardStats, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}

	if s.redisCache != nil {
		var cached DashboardStats
		if err := s.redisCache.GetJSON(ctx, dashboardStatsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	return s.RefreshDashboardStats(ctx)
}

// RefreshDashboardStats recomputes the dashboard payload and rewarms the
// cache. Also called by the hourly cron job, which has no admin caller.
func (s *AdminService) RefreshDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		ActiveModules: len(moduleDefinitions),
	}

	if err := s.db.Model(&model.User{}).
		Where("role = ?", model.RoleUser).
		Count(&stats.TotalLearners).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&model.Progress{}).
		Where("certificate_earned = ?", true).
		Count(&stats.CertificatesIssued).Error; err != nil {
		return nil, err
	}

	var overall []int
	if err := s.db.Model(&model.Progress{}).
		Pluck("overall_progress", &overall).Error; err != nil {
		return nil, err
	}
	if len(overall) > 0 {
		total := 0
		for _, p := range overall {
			total += p
		}
		stats.CompletionRate = roundDiv(total, len(overall))
	}

	if s.redisCache != nil {
		// Cache failures are not worth failing the read over
		_ = s.redisCache.SetJSON(ctx, dashboardStatsCacheKey, stats, dashboardStatsCacheTTL)
	}

	return stats, nil
}

// RecentLearner is one row in the recent-learners listing
type RecentLearner struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Progress  int    `json:"progress"`
}

// GetRecentLearners lists the newest learner accounts with their overall
// progress
func (s *AdminService) GetRecentLearners(callerID uint, limit int) ([]RecentLearner, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 5
	}

	var users []model.User
	if err := s.db.Where("role = ?", model.RoleUser).
		Order("created_at DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	progressByUser := make(map[uint]int)
	if len(userIDs) > 0 {
		var records []model.Progress
		if err := s.db.Select("user_id, overall_progress").
			Where("user_id IN ?", userIDs).
			Find(&records).Error; err != nil {
			return nil, err
		}
		for _, p := range records {
			progressByUser[p.UserID] = p.OverallProgress
		}
	}

	learners := make([]RecentLearner, 0, len(users))
	for _, u := range users {
		learners = append(learners, RecentLearner{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Name:      u.FullName(),
			Email:     u.Email,
			Progress:  progressByUser[u.ID],
		})
	}
	return learners, nil
}

// ModulePerformance is one module's aggregate performance row
type ModulePerformance struct {
	ModuleID        int    `json:"moduleId"`
	Title           string `json:"title"`
	Duration        int    `json:"duration"` // minutes, parts x 5
	Type            string `json:"type"`
	CompletionRate  int    `json:"completionRate"`
	AverageScore    int    `json:"averageScore"`
	CompletedCount  int    `json:"completedCount"`
	InProgressCount int    `json:"inProgressCount"`
}

// GetTopPerformingModules ranks modules by completion rate
func (s *AdminService) GetTopPerformingModules(callerID uint, limit int) ([]ModulePerformance, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 3
	}

	var totalUsers int64
	if err := s.db.Model(&model.Progress{}).Count(&totalUsers).Error; err != nil {
		return nil, err
	}

	var modules []model.ModuleProgress
	if err := s.db.Find(&modules).Error; err != nil {
		return nil, err
	}

	perf := make([]ModulePerformance, 0, len(moduleDefinitions))
	for _, def := range moduleDefinitions {
		row := ModulePerformance{
			ModuleID: def.ModuleID,
			Title:    def.Title,
			Duration: def.Parts * 5,
			Type:     def.Type,
		}

		totalScore, scored := 0, 0
		for i := range modules {
			m := &modules[i]
			if m.ModuleID != def.ModuleID {
				continue
			}
			switch m.Status {
			case model.ModuleStatusCompleted:
				row.CompletedCount++
			case model.ModuleStatusInProgress:
				row.InProgressCount++
			}
			if m.AssessmentScore != nil {
				totalScore += *m.AssessmentScore
				scored++
			}
		}

		if totalUsers > 0 {
			row.CompletionRate = roundDiv(row.CompletedCount*100, int(totalUsers))
		}
		if scored > 0 {
			row.AverageScore = roundDiv(totalScore, scored)
		}

		perf = append(perf, row)
	}

	sort.SliceStable(perf, func(i, j int) bool {
		return perf[i].CompletionRate > perf[j].CompletionRate
	})

	if len(perf) > limit {
		perf = perf[:limit]
	}
	return perf, nil
}

// ProgressSummary is the compact per-user progress view in admin listings
type ProgressSummary struct {
	OverallProgress   int  `json:"overallProgress"`
	CompletedModules  int  `json:"completedModules"`
	CurrentModuleID   int  `json:"currentModuleId"`
	CertificateEarned bool `json:"certificateEarned"`
	AverageScore      int  `json:"averageScore"`
}

// UserWithProgress is one row in the admin user listing
type UserWithProgress struct {
	model.User
	HasStartedCourse bool             `json:"has_started_course"`
	ProgressSummary  *ProgressSummary `json:"progress_summary"`
}

// GetAllUsers lists all learner accounts with a progress summary attached
func (s *AdminService) GetAllUsers(callerID uint) ([]UserWithProgress, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}

	var users []model.User
	if err := s.db.Where("role = ?", model.RoleUser).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	progressByUser := make(map[uint]*model.Progress)
	if len(userIDs) > 0 {
		var records []model.Progress
		if err := s.db.Where("user_id IN ?", userIDs).Find(&records).Error; err != nil {
			return nil, err
		}
		for i := range records {
			progressByUser[records[i].UserID] = &records[i]
		}
	}

	result := make([]UserWithProgress, 0, len(users))
	for _, u := range users {
		row := UserWithProgress{User: u}
		if p, ok := progressByUser[u.ID]; ok {
			row.HasStartedCourse = p.CourseStartedAt != nil
			row.ProgressSummary = &ProgressSummary{
				OverallProgress:   p.OverallProgress,
				CompletedModules:  p.CompletedModules,
				CurrentModuleID:   p.CurrentModuleID,
				CertificateEarned: p.CertificateEarned,
				AverageScore:      p.AverageScore,
			}
		}
		result = append(result, row)
	}
	return result, nil
}

// CompletionDistribution buckets learners by overall progress
type CompletionDistribution struct {
	NotStarted   int `json:"notStarted"`
	Bucket0To25  int `json:"0-25"`
	Bucket26To50 int `json:"26-50"`
	Bucket51To75 int `json:"51-75"`
	Bucket76To99 int `json:"76-99"`
	Completed    int `json:"completed"`
}

// DailyUserCount is one day's new-account count
type DailyUserCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// UserAnalytics is the cohort-level analytics payload
type UserAnalytics struct {
	TotalUsers             int64                  `json:"totalUsers"`
	ActiveUsers            int64                  `json:"activeUsers"`
	InactiveUsers          int64                  `json:"inactiveUsers"`
	CompletedUsers         int64                  `json:"completedUsers"`
	CertifiedUsers         int64                  `json:"certifiedUsers"`
	CompletionDistribution CompletionDistribution `json:"completionDistribution"`
	NewUsersOverTime       []DailyUserCount       `json:"newUsersOverTime"`
}

// GetUserAnalytics returns cohort counts, the completion distribution and
// the 30-day signup series
func (s *AdminService) GetUserAnalytics(callerID uint) (*UserAnalytics, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}

	analytics := &UserAnalytics{}

	if err := s.db.Model(&model.User{}).
		Where("role = ?", model.RoleUser).
		Count(&analytics.TotalUsers).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&model.Progress{}).
		Where("course_started_at IS NOT NULL").
		Count(&analytics.ActiveUsers).Error; err != nil {
		return nil, err
	}
	analytics.InactiveUsers = analytics.TotalUsers - analytics.ActiveUsers

	if err := s.db.Model(&model.Progress{}).
		Where("completed_modules = ?", len(moduleDefinitions)).
		Count(&analytics.CompletedUsers).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&model.Progress{}).
		Where("certificate_earned = ?", true).
		Count(&analytics.CertifiedUsers).Error; err != nil {
		return nil, err
	}

	var overall []int
	if err := s.db.Model(&model.Progress{}).
		Pluck("overall_progress", &overall).Error; err != nil {
		return nil, err
	}

	dist := CompletionDistribution{
		NotStarted: int(analytics.TotalUsers - analytics.ActiveUsers),
		Completed:  int(analytics.CompletedUsers),
	}
	for _, p := range overall {
		switch {
		case p > 0 && p <= 25:
			dist.Bucket0To25++
		case p > 25 && p <= 50:
			dist.Bucket26To50++
		case p > 50 && p <= 75:
			dist.Bucket51To75++
		case p > 75 && p < 100:
			dist.Bucket76To99++
		}
	}
	analytics.CompletionDistribution = dist

	windowStart := time.Now().AddDate(0, 0, -30)
	var rows []struct {
		Day   string
		Count int64
	}
	if err := s.db.Model(&model.User{}).
		Select("DATE(created_at) as day, COUNT(*) as count").
		Where("role = ? AND created_at >= ?", model.RoleUser, windowStart).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		analytics.NewUsersOverTime = append(analytics.NewUsersOverTime, DailyUserCount{
			Date:  dayString(row.Day),
			Count: row.Count,
		})
	}

	return analytics, nil
}

// ModuleStatistics is the per-module breakdown against the curriculum table
type ModuleStatistics struct {
	ModuleID    int              `json:"moduleId"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Parts       int              `json:"parts"`
	Duration    int              `json:"duration"`
	Type        string           `json:"type"`
	Statistics  ModuleStatDetail `json:"statistics"`
}

// ModuleStatDetail holds the per-module counters
type ModuleStatDetail struct {
	Completed        int `json:"completed"`
	InProgress       int `json:"inProgress"`
	Locked           int `json:"locked"`
	NotStarted       int `json:"notStarted"`
	TotalAttempts    int `json:"totalAttempts"`
	PassedAssessment int `json:"passedAssessment"`
	FailedAssessment int `json:"failedAssessment"`
	AverageScore     int `json:"averageScore"`
	AverageProgress  int `json:"averageProgress"`
}

// GetModuleStatistics breaks every module down by status, attempts and
// scores across the whole cohort
func (s *AdminService) GetModuleStatistics(callerID uint) ([]ModuleStatistics, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}

	var totalUsers int64
	if err := s.db.Model(&model.Progress{}).Count(&totalUsers).Error; err != nil {
		return nil, err
	}

	var modules []model.ModuleProgress
	if err := s.db.Find(&modules).Error; err != nil {
		return nil, err
	}

	result := make([]ModuleStatistics, 0, len(moduleDefinitions))
	for _, def := range moduleDefinitions {
		row := ModuleStatistics{
			ModuleID:    def.ModuleID,
			Title:       def.Title,
			Description: def.Description,
			Parts:       def.Parts,
			Duration:    def.Parts * 5,
			Type:        def.Type,
		}

		stats := &row.Statistics
		progressSum := 0
		scoreSum, scored := 0, 0

		for i := range modules {
			m := &modules[i]
			if m.ModuleID != def.ModuleID {
				continue
			}

			switch m.Status {
			case model.ModuleStatusCompleted:
				stats.Completed++
			case model.ModuleStatusInProgress:
				stats.InProgress++
			case model.ModuleStatusLocked:
				stats.Locked++
			}

			progressSum += m.Progress

			if m.AssessmentAttempts > 0 {
				stats.TotalAttempts += m.AssessmentAttempts
				if m.AssessmentPassed {
					stats.PassedAssessment++
				} else {
					stats.FailedAssessment++
				}
				if m.AssessmentScore != nil {
					scoreSum += *m.AssessmentScore
					scored++
				}
			}
		}

		stats.NotStarted = int(totalUsers) - (stats.Completed + stats.InProgress + stats.Locked)
		if totalUsers > 0 {
			stats.AverageProgress = roundDiv(progressSum, int(totalUsers))
		}
		if scored > 0 {
			stats.AverageScore = roundDiv(scoreSum, scored)
		}

		result = append(result, row)
	}
	return result, nil
}

// GetAllReflections is the admin view over every reflection, filterable
func (s *AdminService) GetAllReflections(callerID uint, filters ReflectionFilters) ([]model.Reflection, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	return s.reflections.GetAllReflections(filters)
}

// GetReflectionsByModule lists one module's reflections for review
func (s *AdminService) GetReflectionsByModule(callerID uint, moduleID int) ([]model.Reflection, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	return s.reflections.GetModuleReflections(moduleID)
}

// GetReflectionsByUser lists one learner's reflections for review
func (s *AdminService) GetReflectionsByUser(callerID, userID uint) ([]model.Reflection, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	return s.reflections.GetUserReflections(userID)
}

// GetReflectionStats returns the reflection aggregates
func (s *AdminService) GetReflectionStats(callerID uint) (*ReflectionStats, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	return s.reflections.GetReflectionStats()
}

// ExportReflections returns the flattened export rows
func (s *AdminService) ExportReflections(callerID uint, moduleID int) ([]ExportedReflection, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	return s.reflections.ExportReflections(moduleID)
}
