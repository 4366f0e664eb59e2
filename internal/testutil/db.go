// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func CreateWorkspace(t testing.TB, db *gorm.DB, owner *models.User, name string) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{Name: name, OwnerID: owner.ID}
	if err := db.Create(ws).Error; err != nil {
		t.Fatalf("create workspace %s: %v", name, err)
	}
	return ws
}

func AddMember(t testing.TB, db *gorm.DB, ws *models.Workspace, user *models.User, role rbac.Role) *models.WorkspaceMember {
	t.Helper()
	m := &models.WorkspaceMember{WorkspaceID: ws.ID, UserID: user.ID, Role: role}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("add member: %v", err)
	}
	return m
}

func StrPtr(s string) *string { return &s }
