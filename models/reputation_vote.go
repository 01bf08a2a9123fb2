package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VoteType string

const (
	VoteUpvote   VoteType = "UPVOTE"
	VoteDownvote VoteType = "DOWNVOTE"
)

func (v VoteType) Valid() bool {
	return v == VoteUpvote || v == VoteDownvote
}

// Delta is the reputation change applied when this vote is cast.
func (v VoteType) Delta() int {
	if v == VoteUpvote {
		return 1
	}
	return -1
}

// ReputationVote records one user's standing vote on another. A voter holds
// at most one vote per target; re-casting the same vote removes it and
// casting the opposite vote flips it.
type ReputationVote struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	VoterID      string    `gorm:"not null;size:64;uniqueIndex:idx_vote_voter_target" json:"voter_id"`
	TargetUserID string    `gorm:"not null;size:64;uniqueIndex:idx_vote_voter_target" json:"target_user_id"`
	VoteType     VoteType  `gorm:"not null;size:20" json:"vote_type"`
}

func (v *ReputationVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
