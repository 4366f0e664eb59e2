package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CanvasService manages the nodes and edges of a workspace.
type CanvasService struct {
	db       *gorm.DB
	access   *AccessService
	activity *ActivityService
}

func NewCanvasService(db *gorm.DB, access *AccessService, activity *ActivityService) *CanvasService {
	return &CanvasService{db: db, access: access, activity: activity}
}

type CreateNodeRequest struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Content  datatypes.JSON `json:"content"`
	Tags     []string       `json:"tags"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Width    *float64       `json:"width"`
	Height   *float64       `json:"height"`
	Rotation *float64       `json:"rotation"`
}

type UpdateNodeRequest struct {
	Type     *string         `json:"type"`
	Title    *string         `json:"title"`
	Content  *datatypes.JSON `json:"content"`
	Tags     *[]string       `json:"tags"`
	X        *float64        `json:"x"`
	Y        *float64        `json:"y"`
	Width    *float64        `json:"width"`
	Height   *float64        `json:"height"`
	Rotation *float64        `json:"rotation"`
}

type CreateEdgeRequest struct {
	SourceID string  `json:"sourceId" binding:"required"`
	TargetID string  `json:"targetId" binding:"required"`
	Label    *string `json:"label"`
}

func (s *CanvasService) ListNodes(ctx context.Context, userID, workspaceID string) ([]models.Node, error) {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionRead); err != nil {
		return nil, err
	}

	nodes := []models.Node{}
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&nodes).Error
	return nodes, err
}

func (s *CanvasService) CreateNode(ctx context.Context, userID, workspaceID string, req *CreateNodeRequest) (*models.Node, error) {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionWrite); err != nil {
		return nil, err
	}

	nodeType := strings.TrimSpace(req.Type)
	if nodeType == "" {
		nodeType = "text"
	}

	node := &models.Node{
		WorkspaceID: workspaceID,
		Type:        nodeType,
		Title:       req.Title,
		Content:     req.Content,
		Tags:        req.Tags,
		X:           req.X,
		Y:           req.Y,
		Width:       req.Width,
		Height:      req.Height,
		Rotation:    req.Rotation,
		CreatedByID: &userID,
	}
	if err := s.db.WithContext(ctx).Create(node).Error; err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      models.ActionNodeCreated,
		Metadata:    map[string]string{"nodeId": node.ID, "type": node.Type, "title": node.Title},
	})
	return node, nil
}

func (s *CanvasService) UpdateNode(ctx context.Context, userID, workspaceID, nodeID string, req *UpdateNodeRequest) (*models.Node, error) {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionWrite); err != nil {
		return nil, err
	}

	node, err := s.findNode(ctx, workspaceID, nodeID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	textChanged := false
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Title != nil {
		updates["title"] = *req.Title
		textChanged = true
	}
	if req.Content != nil {
		updates["content"] = *req.Content
		textChanged = true
	}
	if req.Tags != nil {
		// Map updates bypass the field serializer.
		encoded, err := json.Marshal(*req.Tags)
		if err != nil {
			return nil, ErrInvalidInput
		}
		updates["tags"] = string(encoded)
	}
	if req.X != nil {
		updates["x"] = *req.X
	}
	if req.Y != nil {
		updates["y"] = *req.Y
	}
	if req.Width != nil {
		updates["width"] = *req.Width
	}
	if req.Height != nil {
		updates["height"] = *req.Height
	}
	if req.Rotation != nil {
		updates["rotation"] = *req.Rotation
	}
	if len(updates) == 0 {
		return node, nil
	}
	// A stale embedding would produce wrong auto-links.
	if textChanged {
		updates["embedding"] = nil
	}

	if err := s.db.WithContext(ctx).Model(node).Updates(updates).Error; err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(updates))
	for k := range updates {
		if k != "embedding" {
			fields = append(fields, k)
		}
	}
	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      models.ActionNodeUpdated,
		Metadata:    map[string]interface{}{"nodeId": node.ID, "fields": fields},
	})

	return s.findNode(ctx, workspaceID, nodeID)
}

// DeleteNode removes the node together with every edge touching it.
func (s *CanvasService) DeleteNode(ctx context.Context, userID, workspaceID, nodeID string) error {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionWrite); err != nil {
		return err
	}

	node, err := s.findNode(ctx, workspaceID, nodeID)
	if err != nil {
		return err
	}

	var removedEdges int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("workspace_id = ? AND (source_id = ? OR target_id = ?)", workspaceID, nodeID, nodeID).
			Delete(&models.Edge{})
		if res.Error != nil {
			return res.Error
		}
		removedEdges = res.RowsAffected
		return tx.Delete(&models.Node{}, "id = ?", nodeID).Error
	})
	if err != nil {
		return err
	}

	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      models.ActionNodeDeleted,
		Metadata:    map[string]interface{}{"nodeId": nodeID, "title": node.Title, "edgesRemoved": removedEdges},
	})
	return nil
}

func (s *CanvasService) ListEdges(ctx context.Context, userID, workspaceID string) ([]models.Edge, error) {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionRead); err != nil {
		return nil, err
	}

	edges := []models.Edge{}
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&edges).Error
	return edges, err
}

func (s *CanvasService) CreateEdge(ctx context.Context, userID, workspaceID string, req *CreateEdgeRequest) (*models.Edge, error) {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionWrite); err != nil {
		return nil, err
	}

	if req.SourceID == req.TargetID {
		return nil, ErrEdgeEndpoints
	}

	var endpoints int64
	if err := s.db.WithContext(ctx).
		Model(&models.Node{}).
		Where("workspace_id = ? AND id IN ?", workspaceID, []string{req.SourceID, req.TargetID}).
		Count(&endpoints).Error; err != nil {
		return nil, err
	}
	if endpoints != 2 {
		return nil, ErrEdgeEndpoints
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Model(&models.Edge{}).
		Where("workspace_id = ?", workspaceID).
		// A->B and B->A are the same link; auto-linking treats them alike.
		Where("(source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)",
			req.SourceID, req.TargetID, req.TargetID, req.SourceID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrEdgeExists
	}

	edge := &models.Edge{
		WorkspaceID: workspaceID,
		SourceID:    req.SourceID,
		TargetID:    req.TargetID,
		Label:       req.Label,
	}
	if err := s.db.WithContext(ctx).Create(edge).Error; err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      models.ActionEdgeCreated,
		Metadata:    map[string]string{"edgeId": edge.ID, "sourceId": edge.SourceID, "targetId": edge.TargetID},
	})
	return edge, nil
}

func (s *CanvasService) DeleteEdge(ctx context.Context, userID, workspaceID, edgeID string) error {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionWrite); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, edgeID).
		Delete(&models.Edge{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEdgeNotFound
	}

	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      models.ActionEdgeDeleted,
		Metadata:    map[string]string{"edgeId": edgeID},
	})
	return nil
}

func (s *CanvasService) findNode(ctx context.Context, workspaceID, nodeID string) (*models.Node, error) {
	var node models.Node
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, nodeID).
		First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}
