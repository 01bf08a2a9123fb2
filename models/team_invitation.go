package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
)

// TeamInvitation is an offer from a team's leader to a specific user. The
// composite unique index keeps at most one invitation row per (team, user)
// pair; a retracted invitation is deleted, not status-flagged.
type TeamInvitation struct {
	ID            string           `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	TeamID        string           `gorm:"not null;size:36;uniqueIndex:idx_invitation_team_user" json:"team_id"`
	Team          *Team            `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	InvitedUserID string           `gorm:"not null;size:64;uniqueIndex:idx_invitation_team_user" json:"invited_user_id"`
	InvitedUser   *User            `gorm:"foreignKey:InvitedUserID" json:"invited_user,omitempty"`
	InvitedByID   string           `gorm:"not null;size:64" json:"invited_by_id"`
	Status        InvitationStatus `gorm:"not null;size:20;default:'PENDING'" json:"status"`
}

func (i *TeamInvitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = InvitationPending
	}
	return nil
}

func (i *TeamInvitation) IsPending() bool {
	return i.Status == InvitationPending
}
