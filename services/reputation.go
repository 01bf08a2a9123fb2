package services

import (
	"context"
	"errors"

	"crewboard/models"

	"gorm.io/gorm"
)

// VoteRemoved is the VoteResult status when re-casting an identical vote
// removed it.
const VoteRemoved = "removed"

// ReputationService applies toggle-style reputation votes: one standing vote
// per (voter, target); repeating a vote removes it, opposing it flips it.
type ReputationService struct {
	db *gorm.DB
}

func NewReputationService(db *gorm.DB) *ReputationService {
	return &ReputationService{db: db}
}

// VoteResult reports the target's new reputation and the final state of the
// caller's vote: UPVOTE, DOWNVOTE, or "removed".
type VoteResult struct {
	Reputation int    `json:"reputation"`
	VoteStatus string `json:"vote_status"`
}

func (s *ReputationService) Vote(ctx context.Context, voterID, targetUserID string, voteType models.VoteType) (*VoteResult, error) {
	if voterID == targetUserID {
		return nil, ErrSelfVote
	}
	if !voteType.Valid() {
		return nil, ErrInvalidVoteType
	}

	var result VoteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, "id = ?", targetUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var existing models.ReputationVote
		err := tx.Where("voter_id = ? AND target_user_id = ?", voterID, targetUserID).
			First(&existing).Error

		var delta int
		switch {
		case err == nil && existing.VoteType == voteType:
			// Same vote again: toggle off and revert its effect.
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			delta = -voteType.Delta()
			result.VoteStatus = VoteRemoved
		case err == nil:
			// Opposite vote: flip. Removes the old effect and adds the new.
			if err := tx.Model(&existing).Update("vote_type", voteType).Error; err != nil {
				return err
			}
			delta = 2 * voteType.Delta()
			result.VoteStatus = string(voteType)
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.ReputationVote{
				VoterID:      voterID,
				TargetUserID: targetUserID,
				VoteType:     voteType,
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			delta = voteType.Delta()
			result.VoteStatus = string(voteType)
		default:
			return err
		}

		err = tx.Model(&models.User{}).Where("id = ?", targetUserID).
			Update("reputation", gorm.Expr("reputation + ?", delta)).Error
		if err != nil {
			return err
		}

		result.Reputation = target.Reputation + delta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
