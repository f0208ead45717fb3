package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    MatchStatus
		to      MatchStatus
		allowed bool
	}{
		{"picking to in progress", MatchStatusPicking, MatchStatusInProgress, true},
		{"picking to cancelled", MatchStatusPicking, MatchStatusCancelled, true},
		{"picking straight to team1", MatchStatusPicking, MatchStatusTeam1, false},
		{"in progress to team1", MatchStatusInProgress, MatchStatusTeam1, true},
		{"in progress to team2", MatchStatusInProgress, MatchStatusTeam2, true},
		{"in progress to tied", MatchStatusInProgress, MatchStatusTied, true},
		{"in progress to cancelled", MatchStatusInProgress, MatchStatusCancelled, true},
		{"in progress back to picking", MatchStatusInProgress, MatchStatusPicking, false},
		{"team1 is terminal", MatchStatusTeam1, MatchStatusTeam2, false},
		{"cancelled is terminal", MatchStatusCancelled, MatchStatusInProgress, false},
		{"tied is terminal", MatchStatusTied, MatchStatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Match{Status: tt.from}
			assert.Equal(t, tt.allowed, m.CanTransitionTo(tt.to))
		})
	}
}

func TestMatchIsTerminal(t *testing.T) {
	assert.False(t, (&Match{Status: MatchStatusPicking}).IsTerminal())
	assert.False(t, (&Match{Status: MatchStatusInProgress}).IsTerminal())
	assert.True(t, (&Match{Status: MatchStatusCancelled}).IsTerminal())
	assert.True(t, (&Match{Status: MatchStatusTeam1}).IsTerminal())
	assert.True(t, (&Match{Status: MatchStatusTeam2}).IsTerminal())
	assert.True(t, (&Match{Status: MatchStatusTied}).IsTerminal())
}

func TestBetWindow(t *testing.T) {
	pickTime := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	m := &Match{
		Status:    MatchStatusInProgress,
		PickTime:  &pickTime,
		BetWindow: 600,
	}

	t.Run("open within the window", func(t *testing.T) {
		assert.True(t, m.BetWindowOpen(pickTime.Add(5*time.Minute)))
	})

	t.Run("the boundary is inclusive", func(t *testing.T) {
		assert.True(t, m.BetWindowOpen(pickTime.Add(10*time.Minute)))
		assert.False(t, m.BetWindowOpen(pickTime.Add(10*time.Minute+time.Second)))
	})

	t.Run("closed before teams are picked", func(t *testing.T) {
		picking := &Match{Status: MatchStatusPicking, BetWindow: 600}
		assert.False(t, picking.BetWindowOpen(pickTime))
	})

	t.Run("closed on settled matches", func(t *testing.T) {
		settled := &Match{Status: MatchStatusTeam1, PickTime: &pickTime, BetWindow: 600}
		assert.False(t, settled.BetWindowOpen(pickTime.Add(time.Minute)))
	})

	t.Run("remaining time clamps at zero", func(t *testing.T) {
		assert.Equal(t, 4*time.Minute, m.BetWindowRemaining(pickTime.Add(6*time.Minute)))
		assert.Equal(t, time.Duration(0), m.BetWindowRemaining(pickTime.Add(time.Hour)))
	})
}

func TestTeamHelpers(t *testing.T) {
	team := Team{Captain: "jet.Pixel", Players: []string{"joey", "yami"}}

	t.Run("name prefers the captain", func(t *testing.T) {
		assert.Equal(t, "jet.Pixel", team.Name())
		assert.Equal(t, "Red", Team{Label: "Red"}.Name())
	})

	t.Run("has player includes the captain, case insensitively", func(t *testing.T) {
		assert.True(t, team.HasPlayer("JET.pixel"))
		assert.True(t, team.HasPlayer("Joey"))
		assert.False(t, team.HasPlayer("stranger"))
	})

	t.Run("roster starts with the captain", func(t *testing.T) {
		assert.Equal(t, []string{"jet.Pixel", "joey", "yami"}, team.Roster())
		assert.Empty(t, Team{Label: "Red"}.Roster())
	})
}

func TestOutcomeStatusMapping(t *testing.T) {
	assert.Equal(t, MatchStatusTeam1, OutcomeTeam1.TerminalStatus())
	assert.Equal(t, MatchStatusTeam2, OutcomeTeam2.TerminalStatus())
	assert.Equal(t, MatchStatusTied, OutcomeTied.TerminalStatus())

	for _, status := range []MatchStatus{MatchStatusTeam1, MatchStatusTeam2, MatchStatusTied} {
		outcome, ok := OutcomeForStatus(status)
		assert.True(t, ok)
		assert.Equal(t, status, outcome.TerminalStatus())
	}

	_, ok := OutcomeForStatus(MatchStatusInProgress)
	assert.False(t, ok)
	_, ok = OutcomeForStatus(MatchStatusCancelled)
	assert.False(t, ok)
}
