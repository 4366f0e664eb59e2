package services

import (
	"context"
	"strings"
	"time"

	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"gorm.io/gorm"
)

type WorkspaceService struct {
	db       *gorm.DB
	access   *AccessService
	activity *ActivityService
}

func NewWorkspaceService(db *gorm.DB, access *AccessService, activity *ActivityService) *WorkspaceService {
	return &WorkspaceService{db: db, access: access, activity: activity}
}

type CreateWorkspaceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateWorkspaceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// WorkspaceView is a workspace as seen by one caller.
type WorkspaceView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	OwnerID     string               `json:"ownerId"`
	Owner       *models.ActorProfile `json:"owner,omitempty"`
	Role        rbac.Role            `json:"role"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func newWorkspaceView(ws *models.Workspace, role rbac.Role) WorkspaceView {
	return WorkspaceView{
		ID:          ws.ID,
		Name:        ws.Name,
		Description: ws.Description,
		OwnerID:     ws.OwnerID,
		Owner:       ws.Owner.Actor(),
		Role:        role,
		CreatedAt:   ws.CreatedAt,
		UpdatedAt:   ws.UpdatedAt,
	}
}

func (s *WorkspaceService) Create(ctx context.Context, userID string, req *CreateWorkspaceRequest) (*WorkspaceView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	ws := &models.Workspace{
		Name:        name,
		Description: req.Description,
		OwnerID:     userID,
	}
	if err := s.db.WithContext(ctx).Create(ws).Error; err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: ws.ID,
		UserID:      userID,
		Action:      models.ActionWorkspaceCreated,
		Metadata:    map[string]string{"name": ws.Name},
	})

	view := newWorkspaceView(ws, rbac.RoleOwner)
	return &view, nil
}

// List returns every workspace the user owns or is a member of.
func (s *WorkspaceService) List(ctx context.Context, userID string) ([]WorkspaceView, error) {
	publicOwner := func(tx *gorm.DB) *gorm.DB { return tx.Select(models.PublicUserColumns) }

	var owned []models.Workspace
	if err := s.db.WithContext(ctx).
		Preload("Owner", publicOwner).
		Where("owner_id = ?", userID).
		Order("updated_at DESC").
		Find(&owned).Error; err != nil {
		return nil, err
	}

	var memberships []models.WorkspaceMember
	if err := s.db.WithContext(ctx).
		Preload("Workspace").
		Preload("Workspace.Owner", publicOwner).
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}

	views := make([]WorkspaceView, 0, len(owned)+len(memberships))
	for i := range owned {
		views = append(views, newWorkspaceView(&owned[i], rbac.RoleOwner))
	}
	for _, m := range memberships {
		if m.Workspace == nil || m.Workspace.OwnerID == userID {
			continue
		}
		role, ok := rbac.EffectiveMemberRole(m.Role)
		if !ok {
			continue
		}
		views = append(views, newWorkspaceView(m.Workspace, role))
	}
	return views, nil
}

func (s *WorkspaceService) Get(ctx context.Context, userID, workspaceID string) (*WorkspaceView, error) {
	access, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	view := newWorkspaceView(access.Workspace, access.Role)
	return &view, nil
}

func (s *WorkspaceService) Update(ctx context.Context, userID, workspaceID string, req *UpdateWorkspaceRequest) (*WorkspaceView, error) {
	access, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	changed := []string{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrInvalidInput
		}
		updates["name"] = name
		changed = append(changed, "name")
	}
	if req.Description != nil {
		updates["description"] = *req.Description
		changed = append(changed, "description")
	}

	ws := access.Workspace
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).
			Model(&models.Workspace{}).
			Where("id = ?", ws.ID).
			Updates(updates).Error; err != nil {
			return nil, err
		}
		if name, ok := updates["name"].(string); ok {
			ws.Name = name
		}
		if req.Description != nil {
			ws.Description = *req.Description
		}
		ws.UpdatedAt = time.Now()
		s.activity.Record(ctx, ActivityEntry{
			WorkspaceID: ws.ID,
			UserID:      userID,
			Action:      models.ActionWorkspaceUpdated,
			Metadata:    map[string]interface{}{"fields": changed},
		})
	}

	view := newWorkspaceView(ws, access.Role)
	return &view, nil
}

// Delete removes the workspace and all of its contents. Owner only.
func (s *WorkspaceService) Delete(ctx context.Context, userID, workspaceID string) error {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionDelete); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.ActivityLog{},
			&models.Edge{},
			&models.Node{},
			&models.WorkspaceMember{},
		} {
			if err := tx.Where("workspace_id = ?", workspaceID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Workspace{}, "id = ?", workspaceID).Error
	})
}
