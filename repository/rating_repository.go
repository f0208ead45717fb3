package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shazbuckbot/database"
	"shazbuckbot/models"
)

// RatingRepository implements the service.RatingRepository interface
type RatingRepository struct {
	q queryable
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(db *database.DB) *RatingRepository {
	return &RatingRepository{q: db.Pool}
}

// newRatingRepositoryWithTx creates a new rating repository with a transaction
func newRatingRepositoryWithTx(tx queryable) *RatingRepository {
	return &RatingRepository{q: tx}
}

// Append records a new rating row for a player. Rows are never updated or
// deleted; the newest row per player is their current rating.
func (r *RatingRepository) Append(ctx context.Context, rating *models.SkillRating) error {
	query := `
		INSERT INTO skill_ratings (player_id, match_id, mu, sigma, exposure)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		rating.PlayerID,
		rating.MatchID,
		rating.Mu,
		rating.Sigma,
		rating.Exposure,
	).Scan(&rating.ID, &rating.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append rating for player %s: %w", rating.PlayerID, err)
	}
	return nil
}

// Latest returns the player's current rating and rated match count, or nil
// when the player has never been rated
func (r *RatingRepository) Latest(ctx context.Context, playerID string) (*models.RatedPlayer, error) {
	query := `
		SELECT mu, sigma,
			(SELECT COUNT(*) FROM skill_ratings WHERE player_id = $1) AS rated
		FROM skill_ratings
		WHERE player_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	player := models.RatedPlayer{PlayerID: playerID}
	err := r.q.QueryRow(ctx, query, playerID).Scan(&player.Mu, &player.Sigma, &player.RatedMatches)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest rating for player %s: %w", playerID, err)
	}
	return &player, nil
}
