package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Node is a content block placed on a workspace canvas.
type Node struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	WorkspaceID string         `gorm:"size:36;index;not null" json:"workspaceId"`
	Workspace   *Workspace     `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
	Type        string         `gorm:"size:50;not null;default:text" json:"type"`
	Title       string         `gorm:"size:500" json:"title"`
	Content     datatypes.JSON `json:"content"`
	Tags        []string       `gorm:"serializer:json;type:text" json:"tags,omitempty"` // deprecated, use Type
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Width       *float64       `json:"width,omitempty"`
	Height      *float64       `json:"height,omitempty"`
	Rotation    *float64       `json:"rotation,omitempty"`
	Embedding   []float32      `gorm:"serializer:json;type:text" json:"-"`
	CreatedByID *string        `gorm:"size:36;index" json:"createdById"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (Node) TableName() string { return "nodes" }

func (n *Node) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Edge links two nodes of the same workspace. Similarity is set only for
// edges produced by auto-linking.
type Edge struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	WorkspaceID   string     `gorm:"size:36;index;not null" json:"workspaceId"`
	Workspace     *Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
	SourceID      string     `gorm:"size:36;index;not null" json:"sourceId"`
	TargetID      string     `gorm:"size:36;index;not null" json:"targetId"`
	Label         *string    `gorm:"size:200" json:"label"`
	Similarity    *float64   `json:"similarity,omitempty"`
	AutoGenerated bool       `gorm:"default:false" json:"autoGenerated"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (Edge) TableName() string { return "edges" }

func (e *Edge) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
