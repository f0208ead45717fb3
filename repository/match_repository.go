package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shazbuckbot/database"
	"shazbuckbot/models"
)

// MatchRepository implements the service.MatchRepository interface
type MatchRepository struct {
	q queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

// newMatchRepositoryWithTx creates a new match repository with a transaction
func newMatchRepositoryWithTx(tx queryable) *MatchRepository {
	return &MatchRepository{q: tx}
}

const matchColumns = `id, queue, start_time, pick_time,
	team1_captain, team1_players, team1_label,
	team2_captain, team2_players, team2_label,
	status, bet_window, created_at`

func scanMatch(row pgx.Row) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID,
		&m.Queue,
		&m.StartTime,
		&m.PickTime,
		&m.Team1.Captain,
		&m.Team1.Players,
		&m.Team1.Label,
		&m.Team2.Captain,
		&m.Team2.Players,
		&m.Team2.Label,
		&m.Status,
		&m.BetWindow,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new match and fills in the generated id and timestamps
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (queue, start_time, pick_time,
			team1_captain, team1_players, team1_label,
			team2_captain, team2_players, team2_label,
			status, bet_window)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, start_time, created_at
	`
	err := r.q.QueryRow(ctx, query,
		match.Queue,
		match.StartTime,
		match.PickTime,
		match.Team1.Captain,
		match.Team1.Players,
		match.Team1.Label,
		match.Team2.Captain,
		match.Team2.Players,
		match.Team2.Label,
		match.Status,
		match.BetWindow,
	).Scan(&match.ID, &match.StartTime, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// GetByID retrieves a match by id
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return match, nil
}

// GetByIDForUpdate retrieves a match by id with a row lock, serializing
// concurrent settlements of the same match on the database
func (r *MatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`

	match, err := scanMatch(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock match %d: %w", id, err)
	}
	return match, nil
}

// Update persists status, teams and pick time
func (r *MatchRepository) Update(ctx context.Context, match *models.Match) error {
	query := `
		UPDATE matches
		SET pick_time = $1,
			team1_captain = $2, team1_players = $3, team1_label = $4,
			team2_captain = $5, team2_players = $6, team2_label = $7,
			status = $8
		WHERE id = $9
	`
	result, err := r.q.Exec(ctx, query,
		match.PickTime,
		match.Team1.Captain,
		match.Team1.Players,
		match.Team1.Label,
		match.Team2.Captain,
		match.Team2.Players,
		match.Team2.Label,
		match.Status,
		match.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update match %d: %w", match.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("match %d not found", match.ID)
	}
	return nil
}

// GetByStatus returns matches in the given status, most recent first
func (r *MatchRepository) GetByStatus(ctx context.Context, status models.MatchStatus) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE status = $1 ORDER BY start_time DESC, id DESC`
	return r.queryMatches(ctx, query, status)
}

// GetByQueueAndStatus narrows GetByStatus to one queue
func (r *MatchRepository) GetByQueueAndStatus(ctx context.Context, queue string, status models.MatchStatus) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE queue = $1 AND status = $2 ORDER BY start_time DESC, id DESC`
	return r.queryMatches(ctx, query, queue, status)
}

func (r *MatchRepository) queryMatches(ctx context.Context, query string, args ...any) ([]*models.Match, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return matches, nil
}
