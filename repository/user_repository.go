package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shazbuckbot/database"
	"shazbuckbot/models"
)

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, discord_id, nick, mute_dm, balance, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.DiscordID,
		&user.Nick,
		&user.MuteDM,
		&user.Balance,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by ledger id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByDiscordID retrieves a user by their Discord ID
func (r *UserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE discord_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by discord ID %d: %w", discordID, err)
	}
	return user, nil
}

// Create creates a new user with a zero balance. The starting balance is
// granted separately with an initial transfer from the House.
func (r *UserRepository) Create(ctx context.Context, discordID int64, nick string, muteDM bool) (*models.User, error) {
	query := `
		INSERT INTO users (discord_id, nick, mute_dm)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID, nick, muteDM))
	if err != nil {
		return nil, fmt.Errorf("failed to create user with discord ID %d: %w", discordID, err)
	}
	return user, nil
}

// SetNick updates the stored display nick
func (r *UserRepository) SetNick(ctx context.Context, id int64, nick string) error {
	result, err := r.q.Exec(ctx, `UPDATE users SET nick = $1 WHERE id = $2`, nick, id)
	if err != nil {
		return fmt.Errorf("failed to set nick for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}

// SetMuteDM updates the direct message mute preference
func (r *UserRepository) SetMuteDM(ctx context.Context, id int64, mute bool) error {
	result, err := r.q.Exec(ctx, `UPDATE users SET mute_dm = $1 WHERE id = $2`, mute, id)
	if err != nil {
		return fmt.Errorf("failed to set mute_dm for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}

// TopByBalance returns the richest users first
func (r *UserRepository) TopByBalance(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT discord_id, nick, balance
		FROM users
		ORDER BY balance DESC, id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.DiscordID, &entry.Nick, &entry.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}
	return entries, nil
}

// SumBalances returns the sum over all balances, House included. Every
// transfer moves value between two accounts, so this sum only changes when
// accounts are created.
func (r *UserRepository) SumBalances(ctx context.Context) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0) FROM users`).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum balances: %w", err)
	}
	return sum, nil
}
