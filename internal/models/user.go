package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan is the subscription tier of a user.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// User represents an account. Rows are hard-deleted; there is no soft delete
// so that account deletion is irreversible.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         *string   `gorm:"size:100" json:"name"`
	AvatarURL    *string   `gorm:"size:500" json:"avatarUrl"`
	Plan         Plan      `gorm:"size:20;not null;default:FREE" json:"plan"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Plan == "" {
		u.Plan = PlanFree
	}
	return nil
}

// UserProfile is the public projection of a user returned to its owner.
type UserProfile struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	Plan      Plan    `json:"plan"`
}

// ActorProfile is what other collaborators may see about a user.
type ActorProfile struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Plan:      u.Plan,
	}
}

func (u *User) Actor() *ActorProfile {
	if u == nil {
		return nil
	}
	return &ActorProfile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}

// PublicUserColumns are the columns safe to preload for collaborators.
var PublicUserColumns = []string{"id", "email", "name", "avatar_url"}
