package services

import (
	"testing"

	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"github.com/meshflow/meshflow/backend/internal/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	cfg       *config.Config
	access    *AccessService
	activity  *ActivityService
	account   *AccountService
	auth      *AuthService
	workspace *WorkspaceService
	member    *MemberService
	canvas    *CanvasService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.DefaultConfig()

	access := NewAccessService(db)
	activity := NewActivityService(db, &cfg.Activity)
	return &fixture{
		db:        db,
		cfg:       cfg,
		access:    access,
		activity:  activity,
		account:   NewAccountService(db),
		auth:      NewAuthService(db),
		workspace: NewWorkspaceService(db, access, activity),
		member:    NewMemberService(db, access, activity),
		canvas:    NewCanvasService(db, access, activity),
	}
}

// abc builds the canonical scenario: A owns W, B is an editor of W and C has
// no relation to it.
func (f *fixture) abc(t *testing.T) (a, b, c *models.User, w *models.Workspace) {
	t.Helper()
	a = testutil.CreateUser(t, f.db, "a@example.com")
	b = testutil.CreateUser(t, f.db, "b@example.com")
	c = testutil.CreateUser(t, f.db, "c@example.com")
	w = testutil.CreateWorkspace(t, f.db, a, "W")
	testutil.AddMember(t, f.db, w, b, rbac.RoleEditor)
	return a, b, c, w
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
