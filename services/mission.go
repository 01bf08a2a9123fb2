package services

import (
	"context"
	"errors"
	"time"

	"crewboard/models"

	"gorm.io/gorm"
)

const (
	// HourlyReward is granted by the hourly mission claim.
	HourlyReward = 5
	// DailyReward is granted by the daily mission claim.
	DailyReward = 25

	hourlyCooldown = time.Hour
)

// MissionService handles the gamified point claims. The hourly claim uses a
// rolling one-hour cooldown; the daily claim resets at the start of each UTC
// day, so a claim late in the evening unlocks again shortly after midnight.
type MissionService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMissionService(db *gorm.DB) *MissionService {
	return &MissionService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// MissionStatus is the caller's current point balance and claim timestamps.
type MissionStatus struct {
	Points          int        `json:"points"`
	LastHourlyClaim *time.Time `json:"last_hourly_claim"`
	LastDailyClaim  *time.Time `json:"last_daily_claim"`
}

// ClaimResult reports the outcome of a successful claim.
type ClaimResult struct {
	Points    int       `json:"points"`
	ClaimedAt time.Time `json:"claimed_at"`
}

func (s *MissionService) Status(ctx context.Context, userID string) (*MissionStatus, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &MissionStatus{
		Points:          user.Points,
		LastHourlyClaim: user.LastHourlyClaim,
		LastDailyClaim:  user.LastDailyClaim,
	}, nil
}

func (s *MissionService) ClaimHourly(ctx context.Context, userID string) (*ClaimResult, error) {
	now := s.now()
	return s.claim(ctx, userID, "last_hourly_claim", HourlyReward, now, func(last time.Time) bool {
		return now.After(last.Add(hourlyCooldown))
	})
}

func (s *MissionService) ClaimDaily(ctx context.Context, userID string) (*ClaimResult, error) {
	now := s.now()
	today := startOfDay(now)
	return s.claim(ctx, userID, "last_daily_claim", DailyReward, now, func(last time.Time) bool {
		// Eligible again once a new day has started since the last claim.
		return !today.Before(startOfDay(last).AddDate(0, 0, 1))
	})
}

func (s *MissionService) claim(ctx context.Context, userID, claimColumn string, reward int, now time.Time, eligible func(last time.Time) bool) (*ClaimResult, error) {
	var result ClaimResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := lockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		last := user.LastHourlyClaim
		cooldownErr := ErrHourlyCooldown
		if claimColumn == "last_daily_claim" {
			last = user.LastDailyClaim
			cooldownErr = ErrDailyCooldown
		}
		if last != nil && !eligible(*last) {
			return cooldownErr
		}

		err := tx.Model(&user).Updates(map[string]any{
			claimColumn: now,
			"points":    gorm.Expr("points + ?", reward),
		}).Error
		if err != nil {
			return err
		}

		result = ClaimResult{Points: user.Points + reward, ClaimedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
