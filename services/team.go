package services

import (
	"context"
	"errors"
	"strings"

	"crewboard/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 10
	maxListLimit     = 50
	maxSearchResults = 20
)

// TeamService owns the team lifecycle: creation, roster edits with invitation
// reconciliation, invitation/whitelist joins, and deletion. Every multi-row
// mutation runs in a single transaction so a failure in any step leaves
// teams, members, and invitations exactly as they were.
type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db}
}

// MyTeamResult is the caller-centric team view: the team they lead or belong
// to (nil if neither) plus their own incoming pending invitations.
type MyTeamResult struct {
	Team               *models.Team
	IsLeader           bool
	PendingInvitations []models.TeamInvitation
}

func validTeamName(name string) bool {
	n := len([]rune(name))
	return n >= models.MinTeamNameLen && n <= models.MaxTeamNameLen
}

// lockForUpdate takes a row lock on Postgres so the capacity pre-check and
// the member insert cannot interleave with a concurrent join. SQLite has no
// row locks; its writes serialize on the database file.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Create makes a new team with the caller as leader and first member, then
// seeds invitations for the submitted usernames. Returns the created team and
// the usernames that could not be resolved to users.
func (s *TeamService) Create(ctx context.Context, leaderID, name string, invitedUsernames []string) (*models.Team, []string, error) {
	name = strings.TrimSpace(name)
	if !validTeamName(name) {
		return nil, nil, ErrInvalidTeamName
	}
	if len(invitedUsernames) > models.MaxInvitees {
		return nil, nil, ErrTooManyInvitees
	}

	var (
		team    models.Team
		skipped []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.TeamMember{}).Where("user_id = ?", leaderID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			if err := tx.Model(&models.Team{}).Where("leader_id = ?", leaderID).Count(&n).Error; err != nil {
				return err
			}
		}
		if n > 0 {
			return ErrAlreadyOnTeam
		}

		if err := tx.Model(&models.Team{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrTeamNameTaken
		}

		team = models.Team{Name: name, LeaderID: leaderID}
		if err := tx.Create(&team).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTeamNameTaken
			}
			return err
		}

		member := models.TeamMember{TeamID: team.ID, UserID: leaderID}
		if err := tx.Create(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyOnTeam
			}
			return err
		}

		var err error
		skipped, err = s.reconcileInvitations(tx, &team, invitedUsernames)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	created, err := s.TeamByID(ctx, team.ID)
	if err != nil {
		return nil, nil, err
	}
	return created, skipped, nil
}

// Edit updates a team's name and optionally its whitelist flag, then
// reconciles pending invitations against the submitted invitee list. A nil
// invitee list means the caller did not submit roster intent and pending
// invitations stay untouched; an empty list retracts them all. Leader-only.
func (s *TeamService) Edit(ctx context.Context, callerID, teamID, name string, invitedUsernames *[]string, isWhitelisted *bool) (*models.Team, []string, error) {
	name = strings.TrimSpace(name)
	if !validTeamName(name) {
		return nil, nil, ErrInvalidTeamName
	}
	if invitedUsernames != nil && len(*invitedUsernames) > models.MaxInvitees {
		return nil, nil, ErrTooManyInvitees
	}

	var skipped []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.LeaderID != callerID {
			return ErrNotLeader
		}

		var n int64
		if err := tx.Model(&models.Team{}).Where("name = ? AND id <> ?", name, teamID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrTeamNameTaken
		}

		updates := map[string]any{"name": name}
		if isWhitelisted != nil {
			updates["is_whitelisted"] = *isWhitelisted
		}
		if err := tx.Model(&team).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTeamNameTaken
			}
			return err
		}

		if invitedUsernames == nil {
			return nil
		}
		var err error
		skipped, err = s.reconcileInvitations(tx, &team, *invitedUsernames)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.TeamByID(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	return updated, skipped, nil
}

// reconcileInvitations diffs the leader's desired invitee set against the
// team's current pending invitations: invitations for usernames no longer
// listed are deleted, new usernames get fresh PENDING rows, untouched ones
// stay as they are. Unresolvable usernames are dropped and reported back;
// the leader and current members are never invited. Idempotent and
// order-independent. Must run inside the caller's transaction.
func (s *TeamService) reconcileInvitations(tx *gorm.DB, team *models.Team, invitedUsernames []string) ([]string, error) {
	var members []models.TeamMember
	if err := tx.Where("team_id = ?", team.ID).Find(&members).Error; err != nil {
		return nil, err
	}
	memberIDs := make(map[string]bool, len(members))
	for _, m := range members {
		memberIDs[m.UserID] = true
	}

	desired := make(map[string]bool)
	var skipped []string
	for _, raw := range invitedUsernames {
		username := strings.TrimSpace(raw)
		if username == "" {
			continue
		}
		var user models.User
		err := tx.Where("username = ?", username).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			skipped = append(skipped, username)
			continue
		}
		if err != nil {
			return nil, err
		}
		if user.ID == team.LeaderID || memberIDs[user.ID] {
			continue
		}
		desired[user.ID] = true
	}

	var pending []models.TeamInvitation
	if err := tx.Where("team_id = ? AND status = ?", team.ID, models.InvitationPending).Find(&pending).Error; err != nil {
		return nil, err
	}
	pendingByUser := make(map[string]bool, len(pending))
	var toDelete []string
	for _, inv := range pending {
		pendingByUser[inv.InvitedUserID] = true
		if !desired[inv.InvitedUserID] {
			toDelete = append(toDelete, inv.ID)
		}
	}
	if len(toDelete) > 0 {
		if err := tx.Delete(&models.TeamInvitation{}, "id IN ?", toDelete).Error; err != nil {
			return nil, err
		}
	}

	for userID := range desired {
		if pendingByUser[userID] {
			continue
		}
		inv := models.TeamInvitation{
			TeamID:        team.ID,
			InvitedUserID: userID,
			InvitedByID:   team.LeaderID,
			Status:        models.InvitationPending,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&inv).Error; err != nil {
			return nil, err
		}
	}

	return skipped, nil
}

// Join adds the caller to a team, either by consuming a pending invitation or
// through the whitelist. Preconditions run in a fixed order and the first
// failure wins: one-team rule, team existence, capacity, eligibility.
func (s *TeamService) Join(ctx context.Context, userID, username, teamID string) (*models.TeamMember, error) {
	var member models.TeamMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TeamMember
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		if err == nil {
			if existing.TeamID == teamID {
				return ErrAlreadyInTeam
			}
			return ErrAlreadyInAnother
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var team models.Team
		if err := lockForUpdate(tx).First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
			return err
		}
		if count >= models.MaxTeamMembers {
			return ErrTeamFull
		}

		var inv models.TeamInvitation
		err = tx.Where("team_id = ? AND invited_user_id = ? AND status = ?",
			teamID, userID, models.InvitationPending).First(&inv).Error
		switch {
		case err == nil:
			if err := tx.Model(&inv).Update("status", models.InvitationAccepted).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !team.IsWhitelisted {
				return ErrNotEligible
			}
			var listed int64
			if err := tx.Model(&models.TeamWhitelistEntry{}).
				Where("team_id = ? AND username = ?", teamID, username).
				Count(&listed).Error; err != nil {
				return err
			}
			if listed == 0 {
				return ErrNotEligible
			}
		default:
			return err
		}

		member = models.TeamMember{TeamID: teamID, UserID: userID}
		if err := tx.Create(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyInAnother
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Delete removes a team with everything it owns. Leader-only.
func (s *TeamService) Delete(ctx context.Context, callerID, teamID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.LeaderID != callerID {
			return ErrNotLeader
		}
		return deleteTeamRows(tx, teamID)
	})
}

// deleteTeamRows removes a team and every row it owns, children first.
func deleteTeamRows(tx *gorm.DB, teamID string) error {
	if err := tx.Delete(&models.TeamInvitation{}, "team_id = ?", teamID).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.TeamWhitelistEntry{}, "team_id = ?", teamID).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.TeamMember{}, "team_id = ?", teamID).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Team{}, "id = ?", teamID).Error
}

// List pages teams by creation time descending. The cursor is the ID of the
// last team from the previous page; keyset comparison on (created_at, id)
// keeps pages stable while new teams are created.
func (s *TeamService) List(ctx context.Context, cursor string, limit int) ([]models.Team, string, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := s.withTeamPreloads(s.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor != "" {
		var after models.Team
		err := s.db.WithContext(ctx).Select("id", "created_at").First(&after, "id = ?", cursor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCursor
		}
		if err != nil {
			return nil, "", err
		}
		q = q.Where("(created_at, id) < (?, ?)", after.CreatedAt, after.ID)
	}

	var teams []models.Team
	if err := q.Find(&teams).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(teams) > limit {
		teams = teams[:limit]
		nextCursor = teams[limit-1].ID
	}
	return teams, nextCursor, nil
}

// Search matches teams by name substring, alphabetically, capped.
func (s *TeamService) Search(ctx context.Context, query string) ([]models.Team, error) {
	var teams []models.Team
	err := s.withTeamPreloads(s.db.WithContext(ctx)).
		Where("name LIKE ?", "%"+query+"%").
		Order("name ASC").
		Limit(maxSearchResults).
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// MyTeam resolves the caller's team, led or joined, plus their incoming
// pending invitations. Membership is recomputed from the TeamMember table on
// every call rather than cached on the user.
func (s *TeamService) MyTeam(ctx context.Context, userID string) (*MyTeamResult, error) {
	result := &MyTeamResult{}

	var team models.Team
	err := s.db.WithContext(ctx).First(&team, "leader_id = ?", userID).Error
	switch {
	case err == nil:
		result.IsLeader = true
	case errors.Is(err, gorm.ErrRecordNotFound):
		var membership models.TeamMember
		err = s.db.WithContext(ctx).Where("user_id = ?", userID).First(&membership).Error
		if err == nil {
			team.ID = membership.TeamID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	default:
		return nil, err
	}

	if team.ID != "" {
		full, err := s.TeamByID(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		result.Team = full
	}

	err = s.db.WithContext(ctx).
		Preload("Team").
		Where("invited_user_id = ? AND status = ?", userID, models.InvitationPending).
		Order("created_at ASC").
		Find(&result.PendingInvitations).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateWhitelist replaces the team's whitelisted-username set. Leader-only.
func (s *TeamService) UpdateWhitelist(ctx context.Context, callerID, teamID string, usernames []string) (*models.Team, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.LeaderID != callerID {
			return ErrNotLeader
		}

		if err := tx.Delete(&models.TeamWhitelistEntry{}, "team_id = ?", teamID).Error; err != nil {
			return err
		}
		seen := make(map[string]bool, len(usernames))
		for _, raw := range usernames {
			username := strings.TrimSpace(raw)
			if username == "" || seen[username] {
				continue
			}
			seen[username] = true
			entry := models.TeamWhitelistEntry{TeamID: teamID, Username: username}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.TeamByID(ctx, teamID)
}

// WhitelistUsernames returns the team's whitelist entries in insertion order.
func (s *TeamService) WhitelistUsernames(ctx context.Context, teamID string) ([]string, error) {
	var entries []models.TeamWhitelistEntry
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	usernames := make([]string, len(entries))
	for i, e := range entries {
		usernames[i] = e.Username
	}
	return usernames, nil
}

// TeamByID loads a team with its leader and ordered members.
func (s *TeamService) TeamByID(ctx context.Context, teamID string) (*models.Team, error) {
	var team models.Team
	err := s.withTeamPreloads(s.db.WithContext(ctx)).First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// PendingInvitations returns a team's pending invitations, oldest first.
func (s *TeamService) PendingInvitations(ctx context.Context, teamID string) ([]models.TeamInvitation, error) {
	var invitations []models.TeamInvitation
	err := s.db.WithContext(ctx).
		Preload("InvitedUser").
		Where("team_id = ? AND status = ?", teamID, models.InvitationPending).
		Order("created_at ASC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (s *TeamService) withTeamPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Leader").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("team_members.created_at ASC")
		}).
		Preload("Members.User")
}
