package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shazbuckbot/database"
	"shazbuckbot/models"
)

// WagerRepository implements the service.WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

const wagerColumns = `id, user_id, match_id, prediction, amount, result, created_at`

func scanWager(row pgx.Row) (*models.Wager, error) {
	var w models.Wager
	err := row.Scan(&w.ID, &w.UserID, &w.MatchID, &w.Prediction, &w.Amount, &w.Result, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a new wager. The partial unique index on open wagers rejects
// a second in-progress wager for the same user and match.
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	query := `
		INSERT INTO wagers (user_id, match_id, prediction, amount, result)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		wager.UserID,
		wager.MatchID,
		wager.Prediction,
		wager.Amount,
		wager.Result,
	).Scan(&wager.ID, &wager.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wager: %w", err)
	}
	return nil
}

// GetByID retrieves a wager by id
func (r *WagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager %d: %w", id, err)
	}
	return wager, nil
}

// GetOpenByUserAndMatch returns the user's in-progress wager on the match, or nil
func (r *WagerRepository) GetOpenByUserAndMatch(ctx context.Context, userID, matchID int64) (*models.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE user_id = $1 AND match_id = $2 AND result = $3
	`

	wager, err := scanWager(r.q.QueryRow(ctx, query, userID, matchID, models.WagerResultInProgress))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open wager for user %d on match %d: %w", userID, matchID, err)
	}
	return wager, nil
}

// AddAmount amends an open wager's stake
func (r *WagerRepository) AddAmount(ctx context.Context, wagerID, delta int64) error {
	query := `UPDATE wagers SET amount = amount + $1 WHERE id = $2 AND result = $3`

	result, err := r.q.Exec(ctx, query, delta, wagerID, models.WagerResultInProgress)
	if err != nil {
		return fmt.Errorf("failed to amend wager %d: %w", wagerID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("open wager %d not found", wagerID)
	}
	return nil
}

// SetResult finalizes a wager
func (r *WagerRepository) SetResult(ctx context.Context, wagerID int64, result models.WagerResult) error {
	tag, err := r.q.Exec(ctx, `UPDATE wagers SET result = $1 WHERE id = $2`, result, wagerID)
	if err != nil {
		return fmt.Errorf("failed to set result for wager %d: %w", wagerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wager %d not found", wagerID)
	}
	return nil
}

// GetByMatchAndResult returns wagers on a match filtered by result, oldest first
func (r *WagerRepository) GetByMatchAndResult(ctx context.Context, matchID int64, result models.WagerResult) ([]*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE match_id = $1 AND result = $2 ORDER BY id ASC`
	return r.queryWagers(ctx, query, matchID, result)
}

// GetByMatch returns every wager on a match regardless of result, oldest first
func (r *WagerRepository) GetByMatch(ctx context.Context, matchID int64) ([]*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE match_id = $1 ORDER BY id ASC`
	return r.queryWagers(ctx, query, matchID)
}

func (r *WagerRepository) queryWagers(ctx context.Context, query string, args ...any) ([]*models.Wager, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wagers: %w", err)
	}
	defer rows.Close()

	var wagers []*models.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wagers: %w", err)
	}
	return wagers, nil
}
