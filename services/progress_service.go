package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kujua-learning/kujua-api/model"
	"gorm.io/gorm"
)

var (
	ErrProgressNotFound    = errors.New("progress record not found")
	ErrModuleNotFound      = errors.New("module not found")
	ErrPartNotFound        = errors.New("part not found")
	ErrAssessmentLocked    = errors.New("please complete all module content before taking the assessment")
	ErrCertificateNotFound = errors.New("certificate not available. Complete all 4 modules with 70% or above to earn your certificate")
)

// PassingScore is the assessment pass threshold
const PassingScore = 70

// ModuleDefinition describes one of the four fixed curriculum modules
type ModuleDefinition struct {
	ModuleID    int
	Title       string
	Description string
	Parts       int
	Type        string
}

// moduleDefinitions is the fixed curriculum. Part counts drive progress
// derivation; types and descriptions feed the admin statistics endpoints.
var moduleDefinitions = []ModuleDefinition{
	{
		ModuleID:    1,
		Title:       "Understanding the Foundations of PPR and CLM",
		Description: "Introducing global and African PPR systems and CLM as a mechanism for accountability, justice, and participation",
		Parts:       21,
		Type:        "text",
	},
	{
		ModuleID:    2,
		Title:       "The Principles and Practice of CLM",
		Description: "Deep dive into community engagement methods, data collection, and accountability mechanisms",
		Parts:       18,
		Type:        "video",
	},
	{
		ModuleID:    3,
		Title:       "Integrating CLM into PPR Frameworks",
		Description: "Practical frameworks and strategies for bringing communities and health systems together",
		Parts:       4,
		Type:        "mixed",
	},
	{
		ModuleID:    4,
		Title:       "Action, Advocacy and Sustainability",
		Description: "Building lasting change through strategic advocacy, policy influence, and institutional partnerships",
		Parts:       4,
		Type:        "quiz",
	},
}

// ModuleDefinitions returns the fixed curriculum table
func ModuleDefinitions() []ModuleDefinition {
	return moduleDefinitions
}

// ProgressService owns the module/part/assessment state machine
type ProgressService struct {
	db *gorm.DB
}

// NewProgressService creates a new progress service
func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db}
}

// loadProgress fetches a user's full progress tree with modules and parts
// in curriculum order
func (s *ProgressService) loadProgress(userID uint) (*model.Progress, error) {
	var progress model.Progress
	err := s.db.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("module_id ASC")
		}).
		Preload("Modules.Parts", func(db *gorm.DB) *gorm.DB {
			return db.Order("part_id ASC")
		}).
		Where("user_id = ?", userID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProgressNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// newProgressRecord builds an initialized progress tree. Module 1 starts
// in-progress, the rest locked.
func newProgressRecord(userID uint, startFirstModule bool) *model.Progress {
	now := time.Now()

	modules := make([]model.ModuleProgress, 0, len(moduleDefinitions))
	for i, def := range moduleDefinitions {
		status := model.ModuleStatusLocked
		var startedAt *time.Time
		if i == 0 {
			status = model.ModuleStatusInProgress
			if startFirstModule {
				t := now
				startedAt = &t
			}
		}

		parts := make([]model.PartProgress, 0, def.Parts)
		for p := 1; p <= def.Parts; p++ {
			parts = append(parts, model.PartProgress{
				PartID: p,
				Title:  fmt.Sprintf("Part %d", p),
			})
		}

		modules = append(modules, model.ModuleProgress{
			ModuleID:  def.ModuleID,
			Title:     def.Title,
			Status:    status,
			StartedAt: startedAt,
			Parts:     parts,
		})
	}

	return &model.Progress{
		UserID:          userID,
		TotalModules:    len(moduleDefinitions),
		CurrentModuleID: 1,
		CourseStartedAt: &now,
		LastAccessedAt:  &now,
		Modules:         modules,
	}
}

// GetOrCreateProgress returns the user's progress, initializing it on first
// access
func (s *ProgressService) GetOrCreateProgress(userID uint) (*model.Progress, error) {
	progress, err := s.loadProgress(userID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, ErrProgressNotFound) {
		return nil, err
	}

	created := newProgressRecord(userID, false)
	if err := s.db.Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

// StartCourse initializes progress if absent, or stamps the start timestamp
// on an existing record that was never activated. Idempotent.
func (s *ProgressService) StartCourse(userID uint) (*model.Progress, error) {
	progress, err := s.loadProgress(userID)
	if errors.Is(err, ErrProgressNotFound) {
		created := newProgressRecord(userID, true)
		if err := s.db.Create(created).Error; err != nil {
			return nil, err
		}
		return created, nil
	}
	if err != nil {
		return nil, err
	}

	if progress.CourseStartedAt == nil {
		now := time.Now()
		progress.CourseStartedAt = &now
		progress.LastAccessedAt = &now
		progress.Modules[0].Status = model.ModuleStatusInProgress
		progress.Modules[0].StartedAt = &now

		if err := s.save(progress); err != nil {
			return nil, err
		}
	}

	return progress, nil
}

// GetProgress returns the user's progress or ErrProgressNotFound
func (s *ProgressService) GetProgress(userID uint) (*model.Progress, error) {
	return s.loadProgress(userID)
}

// UpdateModuleProgress sets a module's progress percentage directly. Part
// completion is the authoritative derivation; this path exists for clients
// that report a raw percentage and is reconciled by the next part update.
func (s *ProgressService) UpdateModuleProgress(userID uint, moduleID, percent int) (*model.Progress, error) {
	progress, err := s.loadProgress(userID)
	if err != nil {
		return nil, err
	}

	idx := moduleIndex(progress, moduleID)
	if idx == -1 {
		return nil, ErrModuleNotFound
	}

	now := time.Now()
	mod := &progress.Modules[idx]
	mod.Progress = percent

	if mod.StartedAt == nil {
		mod.StartedAt = &now
	}
	if mod.Status == model.ModuleStatusLocked {
		mod.Status = model.ModuleStatusInProgress
	}

	if percent >= 100 && mod.Status != model.ModuleStatusCompleted {
		mod.Status = model.ModuleStatusCompleted
		mod.CompletedAt = &now
		progress.CompletedModules++

		unlockNext(progress, idx)
	}

	recomputeOverallProgress(progress)
	progress.LastAccessedAt = &now

	if err := s.save(progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// UpdatePartCompletion toggles one part's completion and rederives the
// module's progress from its parts
func (s *ProgressService) UpdatePartCompletion(userID uint, moduleID, partID int, completed bool) (*model.Progress, error) {
	progress, err := s.loadProgress(userID)
	if err != nil {
		return nil, err
	}

	idx := moduleIndex(progress, moduleID)
	if idx == -1 {
		return nil, ErrModuleNotFound
	}
	mod := &progress.Modules[idx]

	var part *model.PartProgress
	for i := range mod.Parts {
		if mod.Parts[i].PartID == partID {
			part = &mod.Parts[i]
			break
		}
	}
	if part == nil {
		return nil, ErrPartNotFound
	}

	now := time.Now()
	part.Completed = completed
	if completed {
		part.CompletedAt = &now
	} else {
		part.CompletedAt = nil
	}

	completedParts := 0
	for i := range mod.Parts {
		if mod.Parts[i].Completed {
			completedParts++
		}
	}
	mod.Progress = roundPercent(completedParts, len(mod.Parts))

	progress.LastAccessedAt = &now

	if err := s.save(progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// SubmitAssessment records an assessment attempt. The module must be at
// 100% progress. On pass it completes the module, unlocks the next one,
// recomputes the running average and issues the certificate once all four
// modules are completed and passed.
func (s *ProgressService) SubmitAssessment(userID uint, moduleID, score, totalQuestions, correctAnswers int) (*model.Progress, error) {
	progress, err := s.loadProgress(userID)
	if err != nil {
		return nil, err
	}

	idx := moduleIndex(progress, moduleID)
	if idx == -1 {
		return nil, ErrModuleNotFound
	}
	mod := &progress.Modules[idx]

	if mod.Progress < 100 {
		return nil, ErrAssessmentLocked
	}

	now := time.Now()
	passed := score >= PassingScore

	scoreCopy := score
	mod.AssessmentScore = &scoreCopy
	mod.AssessmentPassed = passed
	mod.AssessmentAttempts++
	mod.LastAssessmentAt = &now

	if passed {
		mod.Status = model.ModuleStatusCompleted
		mod.CompletedAt = &now

		completedCount := 0
		for i := range progress.Modules {
			m := &progress.Modules[i]
			if m.Status == model.ModuleStatusCompleted && m.AssessmentPassed {
				completedCount++
			}
		}
		progress.CompletedModules = completedCount

		unlockNext(progress, idx)

		totalScore, scored := 0, 0
		for i := range progress.Modules {
			m := &progress.Modules[i]
			if m.Status == model.ModuleStatusCompleted && m.AssessmentScore != nil {
				totalScore += *m.AssessmentScore
				scored++
			}
		}
		if scored > 0 {
			progress.AverageScore = roundDiv(totalScore, scored)
		}

		if completedCount == len(progress.Modules) {
			issueCertificate(progress, now)
		}
	}

	recomputeOverallProgress(progress)
	progress.LastAccessedAt = &now

	if err := s.save(progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// Certificate is the completion credential returned after all modules pass
type Certificate struct {
	CertificateID string        `json:"certificateId"`
	UserName      string        `json:"userName"`
	UserEmail     string        `json:"userEmail"`
	FinalScore    int           `json:"finalScore"`
	IssuedAt      *time.Time    `json:"issuedAt"`
	ModuleScores  []ModuleScore `json:"moduleScores"`
}

// ModuleScore is one completed module's result on a certificate
type ModuleScore struct {
	ModuleID    int        `json:"moduleId"`
	Title       string     `json:"title"`
	Score       *int       `json:"score"`
	CompletedAt *time.Time `json:"completedAt"`
}

// GetCertificate returns the earned certificate or ErrCertificateNotFound
func (s *ProgressService) GetCertificate(userID uint) (*Certificate, error) {
	progress, err := s.loadProgress(userID)
	if err != nil {
		return nil, err
	}

	if !progress.CertificateEarned {
		return nil, ErrCertificateNotFound
	}

	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	scores := make([]ModuleScore, 0, len(progress.Modules))
	for i := range progress.Modules {
		m := &progress.Modules[i]
		if m.Status != model.ModuleStatusCompleted {
			continue
		}
		scores = append(scores, ModuleScore{
			ModuleID:    m.ModuleID,
			Title:       m.Title,
			Score:       m.AssessmentScore,
			CompletedAt: m.CompletedAt,
		})
	}

	return &Certificate{
		CertificateID: progress.CertificateID,
		UserName:      user.FullName(),
		UserEmail:     user.Email,
		FinalScore:    progress.AverageScore,
		IssuedAt:      progress.CertificateIssuedAt,
		ModuleScores:  scores,
	}, nil
}

func (s *ProgressService) save(progress *model.Progress) error {
	return s.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(progress).Error
}

func moduleIndex(progress *model.Progress, moduleID int) int {
	for i := range progress.Modules {
		if progress.Modules[i].ModuleID == moduleID {
			return i
		}
	}
	return -1
}

func unlockNext(progress *model.Progress, idx int) {
	if idx+1 < len(progress.Modules) {
		next := &progress.Modules[idx+1]
		if next.Status == model.ModuleStatusLocked {
			next.Status = model.ModuleStatusInProgress
		}
		progress.CurrentModuleID = next.ModuleID
	}
}

// recomputeOverallProgress keeps overall progress equal to the mean of the
// module progress values
func recomputeOverallProgress(progress *model.Progress) {
	if len(progress.Modules) == 0 {
		progress.OverallProgress = 0
		return
	}
	total := 0
	for i := range progress.Modules {
		total += progress.Modules[i].Progress
	}
	progress.OverallProgress = roundDiv(total, len(progress.Modules))
}

// issueCertificate is a no-op when a certificate was already issued
func issueCertificate(progress *model.Progress, now time.Time) {
	if progress.CertificateEarned {
		return
	}
	progress.CertificateEarned = true
	progress.CertificateIssuedAt = &now
	progress.CertificateID = generateCertificateID()
}

// generateCertificateID builds a KUJUA-YYYY-NNNNNN id. Random, no collision
// check.
func generateCertificateID() string {
	year := time.Now().Year()
	return fmt.Sprintf("KUJUA-%d-%06d", year, rand.Intn(1000000))
}

func roundPercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return roundDiv(part*100, total)
}

// roundDiv divides with round-half-up semantics for non-negative inputs
func roundDiv(sum, count int) int {
	if count == 0 {
		return 0
	}
	return (sum + count/2) / count
}
