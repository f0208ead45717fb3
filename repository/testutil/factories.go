package testutil

import (
	"time"

	"shazbuckbot/models"
)

// NewTeam builds a team with a captain and any number of picked players
func NewTeam(captain string, players ...string) models.Team {
	return models.Team{Captain: captain, Players: players}
}

// NewPickedMatch builds an in-progress match whose teams were just picked,
// with a generous betting window still open
func NewPickedMatch(queue string, team1, team2 models.Team) *models.Match {
	now := time.Now()
	pickTime := now
	return &models.Match{
		Queue:     queue,
		StartTime: now.Add(-5 * time.Minute),
		PickTime:  &pickTime,
		Team1:     team1,
		Team2:     team2,
		Status:    models.MatchStatusInProgress,
		BetWindow: 600,
	}
}

// NewPickingMatch builds a match still in the picking phase
func NewPickingMatch(queue string) *models.Match {
	return &models.Match{
		Queue:     queue,
		StartTime: time.Now(),
		Status:    models.MatchStatusPicking,
		BetWindow: 600,
	}
}

// NewOpenWager builds an unsettled wager
func NewOpenWager(userID, matchID int64, prediction models.Outcome, amount int64) *models.Wager {
	return &models.Wager{
		UserID:     userID,
		MatchID:    matchID,
		Prediction: prediction,
		Amount:     amount,
		Result:     models.WagerResultInProgress,
	}
}
