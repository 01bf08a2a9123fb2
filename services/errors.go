package services

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrTeamNotFound = errors.New("team not found")

	ErrNotLeader   = errors.New("only the team leader may do this")
	ErrNotEligible = errors.New("no pending invitation and not whitelisted for this team")

	ErrInvalidTeamName  = errors.New("team name must be between 3 and 50 characters")
	ErrTooManyInvitees  = errors.New("at most 5 users can be invited")
	ErrInvalidVoteType  = errors.New("vote type must be UPVOTE or DOWNVOTE")
	ErrSelfVote         = errors.New("cannot vote on your own reputation")
	ErrInvalidCursor    = errors.New("invalid cursor")
	ErrTeamNameTaken    = errors.New("team name already taken")
	ErrAlreadyOnTeam    = errors.New("already part of a team")
	ErrAlreadyInTeam    = errors.New("already in this team")
	ErrAlreadyInAnother = errors.New("already in another team")
	ErrTeamFull         = errors.New("team is full")

	ErrHourlyCooldown = errors.New("hourly claim cooldown active")
	ErrDailyCooldown  = errors.New("daily claim cooldown active, try again tomorrow")
)
