package services

import (
	"context"
	"errors"

	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"gorm.io/gorm"
)

// Access is the outcome of a successful role resolution.
type Access struct {
	Workspace *models.Workspace
	Role      rbac.Role
}

// AccessService resolves a user's effective role in a workspace. Nothing is
// cached: every call reads the current workspace and membership rows.
type AccessService struct {
	db *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{db: db}
}

// Evaluate returns the caller's role, ErrWorkspaceNotFound when the
// workspace does not exist, or ErrAccessDenied when the caller is neither
// the owner nor a member.
func (s *AccessService) Evaluate(ctx context.Context, userID, workspaceID string) (*Access, error) {
	var ws models.Workspace
	err := s.db.WithContext(ctx).
		Preload("Owner", func(tx *gorm.DB) *gorm.DB {
			return tx.Select(models.PublicUserColumns)
		}).
		First(&ws, "id = ?", workspaceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, err
	}

	// Ownership is structural and wins over any membership row.
	if ws.OwnerID == userID {
		return &Access{Workspace: &ws, Role: rbac.RoleOwner}, nil
	}

	var member models.WorkspaceMember
	err = s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}

	role, ok := rbac.EffectiveMemberRole(member.Role)
	if !ok {
		return nil, ErrAccessDenied
	}
	return &Access{Workspace: &ws, Role: role}, nil
}

// Require is Evaluate plus a minimum role check.
func (s *AccessService) Require(ctx context.Context, userID, workspaceID string, min rbac.Role) (*Access, error) {
	access, err := s.Evaluate(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !rbac.AtLeast(access.Role, min) {
		return nil, ErrInsufficientRole
	}
	return access, nil
}

// RequireAction checks the role needed for action.
func (s *AccessService) RequireAction(ctx context.Context, userID, workspaceID string, action rbac.Action) (*Access, error) {
	return s.Require(ctx, userID, workspaceID, rbac.Required(action))
}
