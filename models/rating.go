package models

import (
	"time"
)

// SkillRating is one row of the append-only per-player rating series. The
// newest row per player is their current rating. PlayerID is the external
// identity used in match rosters.
type SkillRating struct {
	ID        int64     `db:"id"`
	PlayerID  string    `db:"player_id"`
	MatchID   int64     `db:"match_id"`
	Mu        float64   `db:"mu"`
	Sigma     float64   `db:"sigma"`
	Exposure  float64   `db:"exposure"` // conservative estimate, mu - 3*sigma
	CreatedAt time.Time `db:"created_at"`
}

// RatedPlayer combines a player's current rating with how many rated
// matches produced it.
type RatedPlayer struct {
	PlayerID     string
	Mu           float64
	Sigma        float64
	RatedMatches int
}

// TeamSuggestion is the most even split found for a player pool.
type TeamSuggestion struct {
	Team1       []string
	Team2       []string
	Quality     float64 // draw probability of the suggested split
	Team1Chance float64 // team1 win probability for the suggested split
}
