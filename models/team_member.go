package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamMember joins one user to one team. The unique index on UserID is global:
// a user belongs to at most one team anywhere, and concurrent joins racing for
// the same user resolve at the database rather than in application code.
type TeamMember struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TeamID    string    `gorm:"not null;index;size:36" json:"team_id"`
	UserID    string    `gorm:"uniqueIndex;not null;size:64" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
