package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Activity actions recorded against a workspace.
const (
	ActionWorkspaceCreated = "workspace.created"
	ActionWorkspaceUpdated = "workspace.updated"
	ActionMemberAdded      = "member.added"
	ActionMemberRoleChange = "member.role_changed"
	ActionMemberRemoved    = "member.removed"
	ActionNodeCreated      = "node.created"
	ActionNodeUpdated      = "node.updated"
	ActionNodeDeleted      = "node.deleted"
	ActionEdgeCreated      = "edge.created"
	ActionEdgeDeleted      = "edge.deleted"
	ActionEdgeAutolinked   = "edge.autolinked"
)

var ErrActivityImmutable = errors.New("activity log entries are immutable")

// ActivityLog is an append-only record of a mutation inside a workspace.
type ActivityLog struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	WorkspaceID string         `gorm:"size:36;index:idx_activity_workspace_created,priority:1;not null" json:"workspaceId"`
	Workspace   *Workspace     `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
	UserID      string         `gorm:"size:36;index;not null" json:"userId"`
	User        *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Action      string         `gorm:"size:100;not null" json:"action"`
	Metadata    datatypes.JSON `json:"metadata"`
	CreatedAt   time.Time      `gorm:"index:idx_activity_workspace_created,priority:2" json:"createdAt"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *ActivityLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrActivityImmutable
}
