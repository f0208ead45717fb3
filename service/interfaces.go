package service

import (
	"context"
	"time"

	"shazbuckbot/events"
	"shazbuckbot/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ledger id
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByDiscordID retrieves a user by their Discord ID
	GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error)

	// Create creates a new user with a zero balance; funds arrive via the
	// initial-grant transfer
	Create(ctx context.Context, discordID int64, nick string, muteDM bool) (*models.User, error)

	// SetNick updates the stored display nick
	SetNick(ctx context.Context, id int64, nick string) error

	// SetMuteDM updates the direct message mute preference
	SetMuteDM(ctx context.Context, id int64, mute bool) error

	// TopByBalance returns the richest users first
	TopByBalance(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)

	// SumBalances returns the sum over all balances, House included
	SumBalances(ctx context.Context) (int64, error)
}

// TransferRepository defines the interface for the append-only transfer log
type TransferRepository interface {
	// Create inserts the transfer row and applies both balance updates.
	// All three writes happen inside the unit of work's transaction, so a
	// partial transfer cannot be observed or persisted.
	Create(ctx context.Context, transfer *models.Transfer) error

	// GetByReason returns transfers tagged with the given reason and reason id
	GetByReason(ctx context.Context, reason models.TransferReason, reasonID int64) ([]*models.Transfer, error)

	// GiftLeaders returns users ranked by net amount gifted. With givers
	// true the biggest net senders come first, otherwise the biggest net
	// receivers. Transfers involving the House are excluded.
	GiftLeaders(ctx context.Context, houseID int64, givers bool, limit int) ([]*models.GiftLeaderEntry, error)
}

// MatchRepository defines the interface for match data access
type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int64) (*models.Match, error)

	// GetByIDForUpdate locks the match row for the rest of the transaction,
	// serializing concurrent settlements and roster changes per match
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Match, error)

	// Update persists status, teams and pick time
	Update(ctx context.Context, match *models.Match) error

	// GetByStatus returns matches in the given status, most recent first
	GetByStatus(ctx context.Context, status models.MatchStatus) ([]*models.Match, error)

	// GetByQueueAndStatus narrows GetByStatus to one queue
	GetByQueueAndStatus(ctx context.Context, queue string, status models.MatchStatus) ([]*models.Match, error)
}

// WagerRepository defines the interface for wager data access
type WagerRepository interface {
	Create(ctx context.Context, wager *models.Wager) error
	GetByID(ctx context.Context, id int64) (*models.Wager, error)

	// GetOpenByUserAndMatch returns the user's in-progress wager on the
	// match, or nil
	GetOpenByUserAndMatch(ctx context.Context, userID, matchID int64) (*models.Wager, error)

	// AddAmount amends an open wager's stake
	AddAmount(ctx context.Context, wagerID, delta int64) error

	// SetResult finalizes a wager
	SetResult(ctx context.Context, wagerID int64, result models.WagerResult) error

	// GetByMatchAndResult returns wagers on a match filtered by result
	GetByMatchAndResult(ctx context.Context, matchID int64, result models.WagerResult) ([]*models.Wager, error)

	// GetByMatch returns every wager on a match regardless of result
	GetByMatch(ctx context.Context, matchID int64) ([]*models.Wager, error)
}

// RatingRepository defines the interface for the append-only skill rating series
type RatingRepository interface {
	// Append records a new rating row for a player
	Append(ctx context.Context, rating *models.SkillRating) error

	// Latest returns the player's current rating and rated match count, or
	// nil when the player has never been rated
	Latest(ctx context.Context, playerID string) (*models.RatedPlayer, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork provides transactional access to all repositories
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	Users() UserRepository
	Transfers() TransferRepository
	Matches() MatchRepository
	Wagers() WagerRepository
	Ratings() RatingRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// AccountService defines user registration and the gift/balance surface
type AccountService interface {
	// EnsureHouse creates the House account if missing and returns it
	EnsureHouse(ctx context.Context) (*models.User, error)

	// Register creates an account and grants the starting balance.
	// Returns ErrAlreadyRegistered if the user exists.
	Register(ctx context.Context, discordID int64, nick string) (*models.User, error)

	// GetUser returns the account for a Discord ID, or nil
	GetUser(ctx context.Context, discordID int64) (*models.User, error)

	// Gift moves shazbucks between two user accounts
	Gift(ctx context.Context, fromDiscordID, toDiscordID, amount int64) (*models.GiftResult, error)

	// ToggleMute flips the DM mute preference, returning the new value
	ToggleMute(ctx context.Context, discordID int64) (bool, error)
}

// MatchService owns the match state machine and roster mutation
type MatchService interface {
	// StartPicking records a new match in the picking phase
	StartPicking(ctx context.Context, queue string) (*models.Match, error)

	// PickTeams finalizes rosters and opens the bet window
	PickTeams(ctx context.Context, queue string, team1, team2 models.Team) (*models.Match, error)

	// CancelMatch cancels the queue's current match. After teams are
	// picked the match is voided and every open wager refunded in full.
	CancelMatch(ctx context.Context, queue string) (*models.Match, error)

	// FinishMatch resolves the winner token ("tie" or a captain name)
	// against the in-progress match on the queue and settles it
	FinishMatch(ctx context.Context, queue string, winner string, elapsed time.Duration) (*models.SettlementReport, error)

	// SubstitutePlayer replaces leaving with joining on whichever team has
	// them; open wagers on an in-progress match are refunded
	SubstitutePlayer(ctx context.Context, leaving, joining string) (*models.Match, error)

	// SwapPlayers exchanges two players between the teams of one match;
	// open wagers on an in-progress match are refunded
	SwapPlayers(ctx context.Context, playerA, playerB string) (*models.Match, error)

	// ReplaceCaptain promotes a new captain in place of the old one
	ReplaceCaptain(ctx context.Context, oldCaptain, newCaptain string) (*models.Match, error)

	// StartCustomMatch opens betting on a match with free-form outcome labels
	StartCustomMatch(ctx context.Context, queue, label1, label2 string, betWindow time.Duration) (*models.Match, error)

	// EndCustomMatch settles a custom match against an outcome token
	EndCustomMatch(ctx context.Context, matchID int64, token string) (*models.SettlementReport, error)

	// OpenMatches lists matches bets can still be placed on, plus those
	// still picking
	OpenMatches(ctx context.Context) ([]*models.OpenMatch, error)
}

// WagerService is the wager engine: placement, settlement and correction
type WagerService interface {
	// PlaceBet places or amends a wager. matchID narrows the search to one
	// match; pass nil to resolve the token across all in-progress matches.
	PlaceBet(ctx context.Context, discordID int64, matchID *int64, token string, amount int64) (*models.BetReceipt, error)

	// SettleMatch moves the match to its terminal status and resolves every
	// open wager
	SettleMatch(ctx context.Context, matchID int64, outcome models.Outcome) (*models.SettlementReport, error)

	// ChangeResult claws back a prior settlement and re-settles with the
	// new outcome. Refuses no-op corrections and cancelled matches.
	ChangeResult(ctx context.Context, matchID int64, newOutcome models.Outcome) (*models.SettlementReport, error)

	// VoidMatch cancels the match and refunds every open wager in full
	VoidMatch(ctx context.Context, matchID int64) (*models.SettlementReport, error)
}

// RatingService maintains per-player skill estimates
type RatingService interface {
	// RecordMatch appends new ratings for every identified participant of a
	// resolved match
	RecordMatch(ctx context.Context, match *models.Match, outcome models.Outcome) error

	// SuggestTeams splits a player pool into the two most evenly matched teams
	SuggestTeams(ctx context.Context, playerIDs []string) (*models.TeamSuggestion, error)

	// EstimateWinChance returns team1's win probability. Every player needs
	// a minimum number of rated matches, otherwise ErrNotEnoughData.
	EstimateWinChance(ctx context.Context, team1, team2 []string) (float64, error)
}

// StatsService provides leaderboards and reporting queries
type StatsService interface {
	Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	Philanthropists(ctx context.Context, limit int) ([]*models.GiftLeaderEntry, error)
	Beggars(ctx context.Context, limit int) ([]*models.GiftLeaderEntry, error)
}
