package services

import (
	"errors"
	"regexp"
	"testing"

	"github.com/kujua-learning/kujua-api/model"
)

func TestGetOrCreateProgressInitializesCurriculum(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	progress, err := svc.GetOrCreateProgress(user.ID)
	if err != nil {
		t.Fatalf("get or create progress: %v", err)
	}

	if len(progress.Modules) != 4 {
		t.Fatalf("expected 4 modules, got %d", len(progress.Modules))
	}
	if progress.OverallProgress != 0 {
		t.Fatalf("expected overall progress 0, got %d", progress.OverallProgress)
	}
	if progress.CurrentModuleID != 1 {
		t.Fatalf("expected current module 1, got %d", progress.CurrentModuleID)
	}

	for i, def := range ModuleDefinitions() {
		mod := findModule(t, progress, def.ModuleID)
		wantStatus := model.ModuleStatusLocked
		if i == 0 {
			wantStatus = model.ModuleStatusInProgress
		}
		if mod.Status != wantStatus {
			t.Fatalf("module %d: expected status %q, got %q", def.ModuleID, wantStatus, mod.Status)
		}
		if len(mod.Parts) != def.Parts {
			t.Fatalf("module %d: expected %d parts, got %d", def.ModuleID, def.Parts, len(mod.Parts))
		}
	}

	// Second call returns the same record
	again, err := svc.GetOrCreateProgress(user.ID)
	if err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if again.ID != progress.ID {
		t.Fatalf("expected same record, got id %d then %d", progress.ID, again.ID)
	}
}

func TestStartCourseIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	first, err := svc.StartCourse(user.ID)
	if err != nil {
		t.Fatalf("start course: %v", err)
	}
	if first.CourseStartedAt == nil {
		t.Fatal("expected course start timestamp to be set")
	}
	startedAt := *first.CourseStartedAt

	second, err := svc.StartCourse(user.ID)
	if err != nil {
		t.Fatalf("second start course: %v", err)
	}
	if second.CourseStartedAt == nil || !second.CourseStartedAt.Equal(startedAt) {
		t.Fatal("expected start timestamp to be unchanged on second call")
	}
}

func TestPartCompletionDerivesModuleProgress(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}

	// Module 3 has 4 parts; completing 1 of 4 gives 25%
	progress, err := svc.UpdatePartCompletion(user.ID, 3, 1, true)
	if err != nil {
		t.Fatalf("update part: %v", err)
	}
	mod := findModule(t, progress, 3)
	if mod.Progress != 25 {
		t.Fatalf("expected module progress 25, got %d", mod.Progress)
	}

	// Un-completing brings it back down
	progress, err = svc.UpdatePartCompletion(user.ID, 3, 1, false)
	if err != nil {
		t.Fatalf("revert part: %v", err)
	}
	mod = findModule(t, progress, 3)
	if mod.Progress != 0 {
		t.Fatalf("expected module progress 0 after revert, got %d", mod.Progress)
	}
}

func TestPartCompletionUnknownTargets(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.UpdatePartCompletion(user.ID, 1, 1, true); !errors.Is(err, ErrProgressNotFound) {
		t.Fatalf("expected ErrProgressNotFound before init, got %v", err)
	}

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}

	if _, err := svc.UpdatePartCompletion(user.ID, 9, 1, true); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
	if _, err := svc.UpdatePartCompletion(user.ID, 1, 99, true); !errors.Is(err, ErrPartNotFound) {
		t.Fatalf("expected ErrPartNotFound, got %v", err)
	}
}

func TestOverallProgressIsMeanOfModules(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}

	progress, err := svc.UpdateModuleProgress(user.ID, 1, 50)
	if err != nil {
		t.Fatalf("update module progress: %v", err)
	}
	// (50 + 0 + 0 + 0) / 4 = 12.5, rounded to 13
	if progress.OverallProgress != 13 {
		t.Fatalf("expected overall progress 13, got %d", progress.OverallProgress)
	}

	progress, err = svc.UpdateModuleProgress(user.ID, 2, 50)
	if err != nil {
		t.Fatalf("update second module: %v", err)
	}
	if progress.OverallProgress != 25 {
		t.Fatalf("expected overall progress 25, got %d", progress.OverallProgress)
	}
}

func TestUpdateModuleProgressCompletionUnlocksNext(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}

	progress, err := svc.UpdateModuleProgress(user.ID, 1, 100)
	if err != nil {
		t.Fatalf("update module progress: %v", err)
	}

	if findModule(t, progress, 1).Status != model.ModuleStatusCompleted {
		t.Fatal("expected module 1 completed at 100%")
	}
	if findModule(t, progress, 2).Status != model.ModuleStatusInProgress {
		t.Fatal("expected module 2 unlocked")
	}
	if progress.CurrentModuleID != 2 {
		t.Fatalf("expected current module 2, got %d", progress.CurrentModuleID)
	}

	// Re-reporting 100 must not double-count the completion
	progress, err = svc.UpdateModuleProgress(user.ID, 1, 100)
	if err != nil {
		t.Fatalf("repeat update: %v", err)
	}
	if progress.CompletedModules != 1 {
		t.Fatalf("expected completedModules 1 after repeat, got %d", progress.CompletedModules)
	}
}

func TestAssessmentRejectedBeforeContentComplete(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}

	// Even a perfect score is rejected while content is incomplete
	if _, err := svc.SubmitAssessment(user.ID, 1, 100, 10, 10); !errors.Is(err, ErrAssessmentLocked) {
		t.Fatalf("expected ErrAssessmentLocked, got %v", err)
	}
}

func TestAssessmentPassCompletesModule(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}
	completeAllParts(t, svc, user.ID, 1)

	progress, err := svc.SubmitAssessment(user.ID, 1, 70, 10, 7)
	if err != nil {
		t.Fatalf("submit assessment: %v", err)
	}

	mod := findModule(t, progress, 1)
	if mod.Status != model.ModuleStatusCompleted {
		t.Fatal("expected module 1 completed after passing at threshold")
	}
	if !mod.AssessmentPassed {
		t.Fatal("expected assessment marked passed")
	}
	if progress.CompletedModules != 1 {
		t.Fatalf("expected completedModules 1, got %d", progress.CompletedModules)
	}
	if findModule(t, progress, 2).Status != model.ModuleStatusInProgress {
		t.Fatal("expected module 2 unlocked after pass")
	}
	if progress.AverageScore != 70 {
		t.Fatalf("expected average score 70, got %d", progress.AverageScore)
	}
}

func TestAssessmentFailDoesNotComplete(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}
	completeAllParts(t, svc, user.ID, 1)

	progress, err := svc.SubmitAssessment(user.ID, 1, 69, 10, 6)
	if err != nil {
		t.Fatalf("submit assessment: %v", err)
	}

	mod := findModule(t, progress, 1)
	if mod.Status == model.ModuleStatusCompleted {
		t.Fatal("module must not complete on a failing score")
	}
	if mod.AssessmentPassed {
		t.Fatal("assessment must not be marked passed")
	}
	if mod.AssessmentAttempts != 1 {
		t.Fatalf("expected 1 attempt recorded, got %d", mod.AssessmentAttempts)
	}
	if progress.CompletedModules != 0 {
		t.Fatalf("expected completedModules 0, got %d", progress.CompletedModules)
	}
	if findModule(t, progress, 2).Status != model.ModuleStatusLocked {
		t.Fatal("module 2 must stay locked after a fail")
	}

	// A retry that passes still works and counts the second attempt
	progress, err = svc.SubmitAssessment(user.ID, 1, 85, 10, 9)
	if err != nil {
		t.Fatalf("retry assessment: %v", err)
	}
	mod = findModule(t, progress, 1)
	if mod.AssessmentAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", mod.AssessmentAttempts)
	}
	if mod.Status != model.ModuleStatusCompleted {
		t.Fatal("expected module completed on retry pass")
	}
}

var certificateIDPattern = regexp.MustCompile(`^KUJUA-\d{4}-\d{6}$`)

func passAllModules(t *testing.T, svc *ProgressService, userID uint) *model.Progress {
	t.Helper()

	var progress *model.Progress
	var err error
	for _, def := range ModuleDefinitions() {
		completeAllParts(t, svc, userID, def.ModuleID)
		progress, err = svc.SubmitAssessment(userID, def.ModuleID, 80, 10, 8)
		if err != nil {
			t.Fatalf("pass module %d: %v", def.ModuleID, err)
		}
	}
	return progress
}

func TestCertificateIssuedAfterAllModulesPass(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}

	if _, err := svc.GetCertificate(user.ID); !errors.Is(err, ErrCertificateNotFound) {
		t.Fatalf("expected ErrCertificateNotFound before completion, got %v", err)
	}

	progress := passAllModules(t, svc, user.ID)

	if !progress.CertificateEarned {
		t.Fatal("expected certificate earned after all modules pass")
	}
	if !certificateIDPattern.MatchString(progress.CertificateID) {
		t.Fatalf("certificate id %q does not match expected format", progress.CertificateID)
	}

	cert, err := svc.GetCertificate(user.ID)
	if err != nil {
		t.Fatalf("get certificate: %v", err)
	}
	if cert.CertificateID != progress.CertificateID {
		t.Fatalf("certificate id mismatch: %q vs %q", cert.CertificateID, progress.CertificateID)
	}
	if cert.UserName != user.FullName() {
		t.Fatalf("expected holder %q, got %q", user.FullName(), cert.UserName)
	}
	if len(cert.ModuleScores) != 4 {
		t.Fatalf("expected 4 module scores, got %d", len(cert.ModuleScores))
	}
	if cert.FinalScore != 80 {
		t.Fatalf("expected final score 80, got %d", cert.FinalScore)
	}
}

func TestCertificateIssuanceIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}

	progress := passAllModules(t, svc, user.ID)
	firstID := progress.CertificateID
	firstIssuedAt := *progress.CertificateIssuedAt

	// Submitting the final assessment again must not reissue
	progress, err := svc.SubmitAssessment(user.ID, 4, 95, 10, 10)
	if err != nil {
		t.Fatalf("resubmit final assessment: %v", err)
	}
	if progress.CertificateID != firstID {
		t.Fatalf("certificate id changed on resubmission: %q vs %q", firstID, progress.CertificateID)
	}
	if !progress.CertificateIssuedAt.Equal(firstIssuedAt) {
		t.Fatal("certificate issuance timestamp changed on resubmission")
	}
}

func TestCompletedModulesNeverCountsFailedModules(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	user := createTestUser(t, db, model.RoleUser)

	if _, err := svc.GetOrCreateProgress(user.ID); err != nil {
		t.Fatalf("init progress: %v", err)
	}

	// Module 1 at 100% content but failed assessment
	completeAllParts(t, svc, user.ID, 1)
	progress, err := svc.SubmitAssessment(user.ID, 1, 50, 10, 5)
	if err != nil {
		t.Fatalf("submit failing assessment: %v", err)
	}
	if progress.CompletedModules != 0 {
		t.Fatalf("failed module counted as completed: %d", progress.CompletedModules)
	}
}
