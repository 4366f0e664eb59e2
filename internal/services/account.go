package services

import (
	"context"
	"errors"
	"strings"

	"github.com/meshflow/meshflow/backend/internal/models"
	"gorm.io/gorm"
)

type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// UpdateProfileRequest carries the only user-editable profile field. Email
// and plan are deliberately absent so a request body cannot change them.
type UpdateProfileRequest struct {
	Name *string `json:"name"`
}

// NormalizeName maps absent, null, empty and whitespace-only names to nil.
func NormalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.UserProfile, error) {
	name := NormalizeName(req.Name)

	// Map form so a nil name is written as NULL instead of being skipped.
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"name": name})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetProfile(ctx, userID)
}

// DeleteAccount removes the user and everything that would dangle without
// them, in one transaction:
//  1. activity, edges, nodes and memberships of workspaces the user owns
//  2. the owned workspaces
//  3. the user's memberships and activity in other workspaces
//  4. the user
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		owned := func() *gorm.DB {
			return tx.Model(&models.Workspace{}).Select("id").Where("owner_id = ?", userID)
		}

		if err := tx.Where("workspace_id IN (?)", owned()).Delete(&models.ActivityLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id IN (?)", owned()).Delete(&models.Edge{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id IN (?)", owned()).Delete(&models.Node{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id IN (?)", owned()).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", userID).Delete(&models.Workspace{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ActivityLog{}).Error; err != nil {
			return err
		}
		// Nodes the user authored in other workspaces stay with their workspace.
		if err := tx.Model(&models.Node{}).
			Where("created_by_id = ?", userID).
			Update("created_by_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
}
