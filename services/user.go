package services

import (
	"context"
	"errors"

	"crewboard/models"

	"gorm.io/gorm"
)

const maxUserSearchResults = 10

// UserService reads the synced user directory and applies identity-provider
// webhook events to it. The provider owns the accounts; this side only
// mirrors them.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) ByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Search matches users by username or display name substring, capped.
func (s *UserService) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	var users []models.User
	pattern := "%" + query + "%"
	err := s.db.WithContext(ctx).
		Where("username LIKE ? OR display_name LIKE ?", pattern, pattern).
		Order("username ASC").
		Limit(maxUserSearchResults).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	summaries := make([]models.UserSummary, len(users))
	for i := range users {
		summaries[i] = users[i].Summary()
	}
	return summaries, nil
}

// ApplyCreated inserts a newly provisioned account. If the email already
// exists (a re-signup after a missed delete), the existing row is rebound to
// the new provider ID instead.
func (s *UserService) ApplyCreated(ctx context.Context, user models.User) error {
	err := s.db.WithContext(ctx).Create(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", user.Email).
		Updates(map[string]any{
			"id":           user.ID,
			"username":     user.Username,
			"display_name": user.DisplayName,
			"img":          user.Img,
		}).Error
}

// ApplyUpdated syncs profile fields for an existing account.
func (s *UserService) ApplyUpdated(ctx context.Context, user models.User) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"username":     user.Username,
			"display_name": user.DisplayName,
			"email":        user.Email,
			"img":          user.Img,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ApplyDeleted removes an account and everything that references it: the
// team they lead (with all its rows), their membership, their invitations,
// and their reputation votes in both directions.
func (s *UserService) ApplyDeleted(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var led models.Team
		err := tx.First(&led, "leader_id = ?", userID).Error
		if err == nil {
			if err := deleteTeamRows(tx, led.ID); err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Delete(&models.TeamMember{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.TeamInvitation{}, "invited_user_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ReputationVote{}, "voter_id = ? OR target_user_id = ?", userID, userID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
}
