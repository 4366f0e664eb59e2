package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"gorm.io/gorm"
)

type MemberService struct {
	db       *gorm.DB
	access   *AccessService
	activity *ActivityService
}

func NewMemberService(db *gorm.DB, access *AccessService, activity *ActivityService) *MemberService {
	return &MemberService{db: db, access: access, activity: activity}
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// MemberView lists a collaborator. The owner is included with role owner.
type MemberView struct {
	UserID    string               `json:"userId"`
	Role      rbac.Role            `json:"role"`
	User      *models.ActorProfile `json:"user"`
	CreatedAt time.Time            `json:"createdAt"`
}

func (s *MemberService) List(ctx context.Context, userID, workspaceID string) ([]MemberView, error) {
	access, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionRead)
	if err != nil {
		return nil, err
	}

	var rows []models.WorkspaceMember
	if err := s.db.WithContext(ctx).
		Preload("User", func(tx *gorm.DB) *gorm.DB {
			return tx.Select(models.PublicUserColumns)
		}).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	ws := access.Workspace
	views := make([]MemberView, 0, len(rows)+1)
	views = append(views, MemberView{
		UserID:    ws.OwnerID,
		Role:      rbac.RoleOwner,
		User:      ws.Owner.Actor(),
		CreatedAt: ws.CreatedAt,
	})
	for _, m := range rows {
		if m.UserID == ws.OwnerID {
			continue
		}
		role, ok := rbac.EffectiveMemberRole(m.Role)
		if !ok {
			continue
		}
		views = append(views, MemberView{
			UserID:    m.UserID,
			Role:      role,
			User:      m.User.Actor(),
			CreatedAt: m.CreatedAt,
		})
	}
	return views, nil
}

func (s *MemberService) Add(ctx context.Context, userID, workspaceID string, req *AddMemberRequest) (*MemberView, error) {
	access, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionManageMember)
	if err != nil {
		return nil, err
	}

	role, ok := rbac.ParseMemberRole(req.Role)
	if !ok {
		return nil, ErrInvalidRole
	}

	var invitee models.User
	err = s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&invitee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if invitee.ID == access.Workspace.OwnerID {
		return nil, ErrOwnerMembership
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, invitee.ID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrMemberExists
	}

	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      invitee.ID,
		Role:        role,
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrMemberExists
		}
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      models.ActionMemberAdded,
		Metadata:    map[string]string{"memberId": invitee.ID, "email": invitee.Email, "role": string(role)},
	})

	return &MemberView{
		UserID:    invitee.ID,
		Role:      role,
		User:      invitee.Actor(),
		CreatedAt: member.CreatedAt,
	}, nil
}

func (s *MemberService) ChangeRole(ctx context.Context, userID, workspaceID, memberID string, req *ChangeRoleRequest) (*MemberView, error) {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionManageMember); err != nil {
		return nil, err
	}

	role, ok := rbac.ParseMemberRole(req.Role)
	if !ok {
		return nil, ErrInvalidRole
	}

	member, err := s.find(ctx, workspaceID, memberID)
	if err != nil {
		return nil, err
	}

	previous := member.Role
	if previous != role {
		if err := s.db.WithContext(ctx).
			Model(&models.WorkspaceMember{}).
			Where("id = ?", member.ID).
			Update("role", role).Error; err != nil {
			return nil, err
		}
		s.activity.Record(ctx, ActivityEntry{
			WorkspaceID: workspaceID,
			UserID:      userID,
			Action:      models.ActionMemberRoleChange,
			Metadata:    map[string]string{"memberId": memberID, "from": string(previous), "to": string(role)},
		})
	}

	return &MemberView{
		UserID:    member.UserID,
		Role:      role,
		User:      member.User.Actor(),
		CreatedAt: member.CreatedAt,
	}, nil
}

// Remove deletes a membership. The owner may remove anyone; any member may
// remove themself.
func (s *MemberService) Remove(ctx context.Context, userID, workspaceID, memberID string) error {
	min := rbac.Required(rbac.ActionManageMember)
	if memberID == userID {
		min = rbac.RoleViewer
	}
	if _, err := s.access.Require(ctx, userID, workspaceID, min); err != nil {
		return err
	}

	member, err := s.find(ctx, workspaceID, memberID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.WorkspaceMember{}, "id = ?", member.ID).Error; err != nil {
		return err
	}

	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      models.ActionMemberRemoved,
		Metadata:    map[string]string{"memberId": memberID},
	})
	return nil
}

func (s *MemberService) find(ctx context.Context, workspaceID, memberID string) (*models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	err := s.db.WithContext(ctx).
		Preload("User", func(tx *gorm.DB) *gorm.DB {
			return tx.Select(models.PublicUserColumns)
		}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, memberID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
