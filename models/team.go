package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// MaxTeamMembers caps a team's roster, leader included.
	MaxTeamMembers = 6
	// MaxInvitees caps the invitee list a leader may submit in one edit.
	MaxInvitees = 5

	MinTeamNameLen = 3
	MaxTeamNameLen = 50
)

type Team struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Name          string    `gorm:"uniqueIndex;not null;size:50" json:"name"`
	LeaderID      string    `gorm:"not null;index;size:64" json:"leader_id"`
	Leader        *User     `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	IsWhitelisted bool      `gorm:"not null;default:false" json:"is_whitelisted"`

	Members          []TeamMember         `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Invitations      []TeamInvitation     `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
	WhitelistEntries []TeamWhitelistEntry `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TeamWhitelistEntry is one username allowed to self-join a whitelisted team
// without an invitation. The legacy encoding was a serialized string array on
// the team row; entries are first-class rows here so a malformed blob can
// never silently deny joins.
type TeamWhitelistEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TeamID    string    `gorm:"not null;size:36;uniqueIndex:idx_whitelist_team_username" json:"team_id"`
	Username  string    `gorm:"not null;size:100;uniqueIndex:idx_whitelist_team_username" json:"username"`
}

func (e *TeamWhitelistEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
