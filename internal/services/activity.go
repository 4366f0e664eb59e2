package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityEntry is what callers hand to Record.
type ActivityEntry struct {
	WorkspaceID string
	UserID      string
	Action      string
	Metadata    interface{}
}

// ActivityItem is a listed entry enriched with the actor's public profile.
type ActivityItem struct {
	ID          string               `json:"id"`
	WorkspaceID string               `json:"workspaceId"`
	UserID      string               `json:"userId"`
	Action      string               `json:"action"`
	Metadata    datatypes.JSON       `json:"metadata"`
	CreatedAt   time.Time            `json:"createdAt"`
	User        *models.ActorProfile `json:"user"`
}

type ActivityService struct {
	db           *gorm.DB
	defaultLimit int
	maxLimit     int
}

func NewActivityService(db *gorm.DB, cfg *config.ActivityConfig) *ActivityService {
	return &ActivityService{
		db:           db,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
}

// Record appends an entry. It is best effort: a failure is logged and
// swallowed so the mutation that triggered it still succeeds.
func (s *ActivityService) Record(ctx context.Context, entry ActivityEntry) {
	var metadata datatypes.JSON
	if entry.Metadata != nil {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			logger.Error().Err(err).Str("action", entry.Action).Msg("encode activity metadata")
		} else {
			metadata = datatypes.JSON(b)
		}
	}

	row := &models.ActivityLog{
		WorkspaceID: entry.WorkspaceID,
		UserID:      entry.UserID,
		Action:      entry.Action,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		logger.Error().
			Err(err).
			Str("workspace_id", entry.WorkspaceID).
			Str("user_id", entry.UserID).
			Str("action", entry.Action).
			Msg("failed to record activity")
	}
}

// ClampLimit applies the default for non-positive values and caps the rest.
func (s *ActivityService) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// List returns the newest entries of a workspace first. Access must already
// have been checked by the caller.
func (s *ActivityService) List(ctx context.Context, workspaceID string, limit int) ([]ActivityItem, error) {
	var rows []models.ActivityLog
	err := s.db.WithContext(ctx).
		Preload("User", func(tx *gorm.DB) *gorm.DB {
			return tx.Select(models.PublicUserColumns)
		}).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(s.ClampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		items = append(items, ActivityItem{
			ID:          r.ID,
			WorkspaceID: r.WorkspaceID,
			UserID:      r.UserID,
			Action:      r.Action,
			Metadata:    r.Metadata,
			CreatedAt:   r.CreatedAt,
			User:        r.User.Actor(),
		})
	}
	return items, nil
}
