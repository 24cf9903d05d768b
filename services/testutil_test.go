package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/kujua-learning/kujua-api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Progress{},
		&model.ModuleProgress{},
		&model.PartProgress{},
		&model.Reflection{},
		&model.CronJobLog{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}

var testUserSeq int

// createTestUser inserts a user with a unique email
func createTestUser(t *testing.T, db *gorm.DB, role string) *model.User {
	t.Helper()

	testUserSeq++
	user := &model.User{
		FirstName: "Test",
		LastName:  fmt.Sprintf("User%d", testUserSeq),
		Email:     fmt.Sprintf("user%d@example.com", testUserSeq),
		Password:  "not-a-real-hash",
		Role:      role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

// completeAllParts drives every part of a module to completed
func completeAllParts(t *testing.T, svc *ProgressService, userID uint, moduleID int) *model.Progress {
	t.Helper()

	var def *ModuleDefinition
	for i := range ModuleDefinitions() {
		if ModuleDefinitions()[i].ModuleID == moduleID {
			def = &ModuleDefinitions()[i]
			break
		}
	}
	if def == nil {
		t.Fatalf("no module definition for id %d", moduleID)
	}

	var progress *model.Progress
	var err error
	for p := 1; p <= def.Parts; p++ {
		progress, err = svc.UpdatePartCompletion(userID, moduleID, p, true)
		if err != nil {
			t.Fatalf("complete part %d of module %d: %v", p, moduleID, err)
		}
	}
	return progress
}

func findModule(t *testing.T, progress *model.Progress, moduleID int) *model.ModuleProgress {
	t.Helper()
	for i := range progress.Modules {
		if progress.Modules[i].ModuleID == moduleID {
			return &progress.Modules[i]
		}
	}
	t.Fatalf("module %d not found in progress record", moduleID)
	return nil
}
