package models

import (
	"time"
)

// User mirrors an account owned by the external identity provider. Rows are
// created and kept in sync by the identity webhook, never registered by this
// service directly; ID is the provider's opaque stable identifier.
type User struct {
	ID              string     `gorm:"primaryKey;size:64" json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Username        string     `gorm:"uniqueIndex;not null;size:100" json:"username"`
	DisplayName     string     `gorm:"size:200" json:"display_name"`
	Email           string     `gorm:"uniqueIndex;not null;size:200" json:"-"`
	Img             string     `gorm:"size:500" json:"img"`
	Points          int        `gorm:"not null;default:0" json:"points"`
	Reputation      int        `gorm:"not null;default:0" json:"reputation"`
	LastHourlyClaim *time.Time `json:"last_hourly_claim"`
	LastDailyClaim  *time.Time `json:"last_daily_claim"`
}

func (u *User) Display() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// UserSummary is the minimal user shape embedded in team and search responses.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Img         string `json:"img"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Img:         u.Img,
	}
}
