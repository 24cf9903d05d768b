package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kujua-learning/kujua-api/model"
	"gorm.io/gorm"
)

func newTestAdminService(t *testing.T) (*AdminService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	reflections := NewReflectionService(db)
	return NewAdminService(db, nil, reflections), db
}

func TestAdminAccessRejectedUniformly(t *testing.T) {
	svc, db := newTestAdminService(t)
	learner := createTestUser(t, db, model.RoleUser)

	// Regular user
	if _, err := svc.GetDashboardStats(context.Background(), learner.ID); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired for learner, got %v", err)
	}

	// Nonexistent id gets the same rejection
	if _, err := svc.GetDashboardStats(context.Background(), 99999); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired for missing user, got %v", err)
	}

	if _, err := svc.GetAllUsers(learner.ID); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired on user listing, got %v", err)
	}
	if _, err := svc.GetReflectionStats(learner.ID); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired on reflection stats, got %v", err)
	}
}

func TestDashboardStats(t *testing.T) {
	svc, db := newTestAdminService(t)
	admin := createTestUser(t, db, model.RoleAdmin)
	progressSvc := NewProgressService(db)

	learnerA := createTestUser(t, db, model.RoleUser)
	learnerB := createTestUser(t, db, model.RoleUser)

	if _, err := progressSvc.StartCourse(learnerA.ID); err != nil {
		t.Fatalf("start course: %v", err)
	}
	passAllModules(t, progressSvc, learnerA.ID)
	if _, err := progressSvc.StartCourse(learnerB.ID); err != nil {
		t.Fatalf("start course: %v", err)
	}

	stats, err := svc.GetDashboardStats(context.Background(), admin.ID)
	if err != nil {
		t.Fatalf("get dashboard stats: %v", err)
	}

	if stats.TotalLearners != 2 {
		t.Fatalf("expected 2 learners, got %d", stats.TotalLearners)
	}
	if stats.ActiveModules != 4 {
		t.Fatalf("expected 4 active modules, got %d", stats.ActiveModules)
	}
	if stats.CertificatesIssued != 1 {
		t.Fatalf("expected 1 certificate, got %d", stats.CertificatesIssued)
	}
	// One learner at 100, one at 0
	if stats.CompletionRate != 50 {
		t.Fatalf("expected completion rate 50, got %d", stats.CompletionRate)
	}
}

func TestGetRecentLearnersExcludesAdmins(t *testing.T) {
	svc, db := newTestAdminService(t)
	admin := createTestUser(t, db, model.RoleAdmin)

	for i := 0; i < 7; i++ {
		createTestUser(t, db, model.RoleUser)
	}

	learners, err := svc.GetRecentLearners(admin.ID, 5)
	if err != nil {
		t.Fatalf("get recent learners: %v", err)
	}
	if len(learners) != 5 {
		t.Fatalf("expected limit of 5, got %d", len(learners))
	}
	for _, l := range learners {
		if l.Email == admin.Email {
			t.Fatal("admin account leaked into learner listing")
		}
	}
}

func TestGetAllUsersAttachesProgressSummary(t *testing.T) {
	svc, db := newTestAdminService(t)
	admin := createTestUser(t, db, model.RoleAdmin)
	progressSvc := NewProgressService(db)

	started := createTestUser(t, db, model.RoleUser)
	idle := createTestUser(t, db, model.RoleUser)

	if _, err := progressSvc.StartCourse(started.ID); err != nil {
		t.Fatalf("start course: %v", err)
	}

	users, err := svc.GetAllUsers(admin.ID)
	if err != nil {
		t.Fatalf("get all users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 learners, got %d", len(users))
	}

	for _, u := range users {
		switch u.ID {
		case started.ID:
			if !u.HasStartedCourse || u.ProgressSummary == nil {
				t.Fatal("expected progress summary for started learner")
			}
		case idle.ID:
			if u.HasStartedCourse || u.ProgressSummary != nil {
				t.Fatal("expected no progress summary for idle learner")
			}
		}
	}
}

func TestUserAnalyticsDistribution(t *testing.T) {
	svc, db := newTestAdminService(t)
	admin := createTestUser(t, db, model.RoleAdmin)
	progressSvc := NewProgressService(db)

	// One idle learner, one mid-course, one fully complete
	createTestUser(t, db, model.RoleUser)

	midway := createTestUser(t, db, model.RoleUser)
	if _, err := progressSvc.StartCourse(midway.ID); err != nil {
		t.Fatalf("start course: %v", err)
	}
	if _, err := progressSvc.UpdateModuleProgress(midway.ID, 1, 60); err != nil {
		t.Fatalf("update module: %v", err)
	}

	done := createTestUser(t, db, model.RoleUser)
	if _, err := progressSvc.StartCourse(done.ID); err != nil {
		t.Fatalf("start course: %v", err)
	}
	passAllModules(t, progressSvc, done.ID)

	analytics, err := svc.GetUserAnalytics(admin.ID)
	if err != nil {
		t.Fatalf("get user analytics: %v", err)
	}

	if analytics.TotalUsers != 3 {
		t.Fatalf("expected 3 users, got %d", analytics.TotalUsers)
	}
	if analytics.ActiveUsers != 2 {
		t.Fatalf("expected 2 active users, got %d", analytics.ActiveUsers)
	}
	if analytics.CompletedUsers != 1 {
		t.Fatalf("expected 1 completed user, got %d", analytics.CompletedUsers)
	}
	if analytics.CertifiedUsers != 1 {
		t.Fatalf("expected 1 certified user, got %d", analytics.CertifiedUsers)
	}
	if analytics.CompletionDistribution.NotStarted != 1 {
		t.Fatalf("expected 1 not-started, got %d", analytics.CompletionDistribution.NotStarted)
	}
	// 60/4 = 15 overall for the midway learner
	if analytics.CompletionDistribution.Bucket0To25 != 1 {
		t.Fatalf("expected 1 learner in 0-25 bucket, got %d", analytics.CompletionDistribution.Bucket0To25)
	}
	if analytics.CompletionDistribution.Completed != 1 {
		t.Fatalf("expected 1 completed, got %d", analytics.CompletionDistribution.Completed)
	}
	if len(analytics.NewUsersOverTime) == 0 {
		t.Fatal("expected signup series for today's registrations")
	}
}

func TestModuleStatistics(t *testing.T) {
	svc, db := newTestAdminService(t)
	admin := createTestUser(t, db, model.RoleAdmin)
	progressSvc := NewProgressService(db)

	learner := createTestUser(t, db, model.RoleUser)
	if _, err := progressSvc.StartCourse(learner.ID); err != nil {
		t.Fatalf("start course: %v", err)
	}
	completeAllParts(t, progressSvc, learner.ID, 1)
	if _, err := progressSvc.SubmitAssessment(learner.ID, 1, 90, 10, 9); err != nil {
		t.Fatalf("pass module 1: %v", err)
	}

	stats, err := svc.GetModuleStatistics(admin.ID)
	if err != nil {
		t.Fatalf("get module statistics: %v", err)
	}
	if len(stats) != 4 {
		t.Fatalf("expected 4 module rows, got %d", len(stats))
	}

	mod1 := stats[0]
	if mod1.ModuleID != 1 {
		t.Fatalf("expected module 1 first, got %d", mod1.ModuleID)
	}
	if mod1.Statistics.Completed != 1 {
		t.Fatalf("expected 1 completion for module 1, got %d", mod1.Statistics.Completed)
	}
	if mod1.Statistics.PassedAssessment != 1 {
		t.Fatalf("expected 1 passed assessment, got %d", mod1.Statistics.PassedAssessment)
	}
	if mod1.Statistics.AverageScore != 90 {
		t.Fatalf("expected average score 90, got %d", mod1.Statistics.AverageScore)
	}
	if mod1.Duration != 21*5 {
		t.Fatalf("expected duration %d, got %d", 21*5, mod1.Duration)
	}

	// Module 2 unlocked by the pass, modules 3-4 still locked
	if stats[1].Statistics.InProgress != 1 {
		t.Fatalf("expected module 2 in progress, got %+v", stats[1].Statistics)
	}
	if stats[2].Statistics.Locked != 1 || stats[3].Statistics.Locked != 1 {
		t.Fatal("expected modules 3 and 4 locked")
	}
}

func TestTopPerformingModulesOrdering(t *testing.T) {
	svc, db := newTestAdminService(t)
	admin := createTestUser(t, db, model.RoleAdmin)
	progressSvc := NewProgressService(db)

	learner := createTestUser(t, db, model.RoleUser)
	if _, err := progressSvc.StartCourse(learner.ID); err != nil {
		t.Fatalf("start course: %v", err)
	}
	completeAllParts(t, progressSvc, learner.ID, 1)
	if _, err := progressSvc.SubmitAssessment(learner.ID, 1, 75, 10, 8); err != nil {
		t.Fatalf("pass module 1: %v", err)
	}

	top, err := svc.GetTopPerformingModules(admin.ID, 3)
	if err != nil {
		t.Fatalf("get top modules: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(top))
	}
	if top[0].ModuleID != 1 {
		t.Fatalf("expected module 1 ranked first, got %d", top[0].ModuleID)
	}
	if top[0].CompletionRate != 100 {
		t.Fatalf("expected 100%% completion rate, got %d", top[0].CompletionRate)
	}
	if top[0].AverageScore != 75 {
		t.Fatalf("expected average score 75, got %d", top[0].AverageScore)
	}
}

func TestAdminReflectionViews(t *testing.T) {
	svc, db := newTestAdminService(t)
	admin := createTestUser(t, db, model.RoleAdmin)
	reflectionSvc := NewReflectionService(db)

	alice := createTestUser(t, db, model.RoleUser)
	bob := createTestUser(t, db, model.RoleUser)

	if _, err := reflectionSvc.Submit(alice.ID, sampleReflectionInput(1, 1)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := reflectionSvc.Submit(bob.ID, sampleReflectionInput(2, 3)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	all, err := svc.GetAllReflections(admin.ID, ReflectionFilters{})
	if err != nil {
		t.Fatalf("get all reflections: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 reflections, got %d", len(all))
	}

	byModule, err := svc.GetReflectionsByModule(admin.ID, 2)
	if err != nil {
		t.Fatalf("get module reflections: %v", err)
	}
	if len(byModule) != 1 || byModule[0].UserID != bob.ID {
		t.Fatalf("module filter wrong: %+v", byModule)
	}

	byUser, err := svc.GetReflectionsByUser(admin.ID, alice.ID)
	if err != nil {
		t.Fatalf("get user reflections: %v", err)
	}
	if len(byUser) != 1 || byUser[0].ModuleID != 1 {
		t.Fatalf("user filter wrong: %+v", byUser)
	}

	exported, err := svc.ExportReflections(admin.ID, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 2 {
		t.Fatalf("expected 2 export rows, got %d", len(exported))
	}
}
