package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"gorm.io/gorm"
)

// Workspace scopes nodes, edges, memberships and activity. Its owner is
// recorded here and nowhere else.
type Workspace struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	OwnerID     string    `gorm:"size:36;index;not null" json:"ownerId"`
	Owner       *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Workspace) TableName() string { return "workspaces" }

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// WorkspaceMember grants a non-owner access to a workspace.
type WorkspaceMember struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	WorkspaceID string     `gorm:"size:36;uniqueIndex:idx_workspace_user;not null" json:"workspaceId"`
	Workspace   *Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
	UserID      string     `gorm:"size:36;uniqueIndex:idx_workspace_user;not null" json:"userId"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Role        rbac.Role  `gorm:"size:20;not null;default:viewer" json:"role"` // editor, viewer
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (WorkspaceMember) TableName() string { return "workspace_members" }

func (m *WorkspaceMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
