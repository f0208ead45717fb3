package models

import (
	"strings"
	"time"
)

// MatchStatus represents the state of a match
type MatchStatus string

const (
	MatchStatusPicking    MatchStatus = "picking"
	MatchStatusCancelled  MatchStatus = "cancelled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusTeam1      MatchStatus = "team1"
	MatchStatusTeam2      MatchStatus = "team2"
	MatchStatusTied       MatchStatus = "tied"
)

// Outcome is a predicted or actual result of a match
type Outcome string

const (
	OutcomeTeam1 Outcome = "team1"
	OutcomeTeam2 Outcome = "team2"
	OutcomeTied  Outcome = "tied"
)

// TerminalStatus returns the match status a decisive outcome maps to.
func (o Outcome) TerminalStatus() MatchStatus {
	switch o {
	case OutcomeTeam1:
		return MatchStatusTeam1
	case OutcomeTeam2:
		return MatchStatusTeam2
	default:
		return MatchStatusTied
	}
}

// OutcomeForStatus returns the outcome a terminal status corresponds to,
// or false for non-decisive statuses.
func OutcomeForStatus(s MatchStatus) (Outcome, bool) {
	switch s {
	case MatchStatusTeam1:
		return OutcomeTeam1, true
	case MatchStatusTeam2:
		return OutcomeTeam2, true
	case MatchStatusTied:
		return OutcomeTied, true
	default:
		return "", false
	}
}

// Team describes one side of a match. For PUGs the captain and player list
// are filled in; custom matches only carry a free-form outcome label.
type Team struct {
	Captain string   `db:"captain"`
	Players []string `db:"players"`
	Label   string   `db:"label"`
}

// Name returns what this side is called in user-facing messages.
func (t Team) Name() string {
	if t.Captain != "" {
		return t.Captain
	}
	return t.Label
}

// HasPlayer reports whether the named player is on this team, captain included.
func (t Team) HasPlayer(player string) bool {
	if strings.EqualFold(t.Captain, player) {
		return true
	}
	for _, p := range t.Players {
		if strings.EqualFold(p, player) {
			return true
		}
	}
	return false
}

// Roster returns captain plus players as a single list of participant ids.
func (t Team) Roster() []string {
	if t.Captain == "" {
		return t.Players
	}
	roster := make([]string, 0, len(t.Players)+1)
	roster = append(roster, t.Captain)
	roster = append(roster, t.Players...)
	return roster
}

// Match represents a PUG (or custom match) from picking through resolution.
type Match struct {
	ID        int64       `db:"id"`
	Queue     string      `db:"queue"`
	StartTime time.Time   `db:"start_time"`
	PickTime  *time.Time  `db:"pick_time"`
	Team1     Team        `db:"team1"`
	Team2     Team        `db:"team2"`
	Status    MatchStatus `db:"status"`
	BetWindow int64       `db:"bet_window"` // seconds after pick during which bets are open
	CreatedAt time.Time   `db:"created_at"`
}

// IsTerminal reports whether the match has reached a final status.
func (m *Match) IsTerminal() bool {
	switch m.Status {
	case MatchStatusCancelled, MatchStatusTeam1, MatchStatusTeam2, MatchStatusTied:
		return true
	}
	return false
}

// CanTransitionTo validates a forward status transition. The administrative
// change-result path (terminal back to InProgress) is handled separately and
// deliberately not expressible here.
func (m *Match) CanTransitionTo(next MatchStatus) bool {
	switch m.Status {
	case MatchStatusPicking:
		return next == MatchStatusInProgress || next == MatchStatusCancelled
	case MatchStatusInProgress:
		switch next {
		case MatchStatusTeam1, MatchStatusTeam2, MatchStatusTied, MatchStatusCancelled:
			return true
		}
	}
	return false
}

// Elapsed returns the time since teams were picked, or zero if still picking.
func (m *Match) Elapsed(now time.Time) time.Duration {
	if m.PickTime == nil {
		return 0
	}
	return now.Sub(*m.PickTime)
}

// BetWindowOpen reports whether a wager placed at now is still within the
// betting window. A wager at exactly elapsed == bet_window is accepted.
func (m *Match) BetWindowOpen(now time.Time) bool {
	if m.Status != MatchStatusInProgress || m.PickTime == nil {
		return false
	}
	return m.Elapsed(now) <= time.Duration(m.BetWindow)*time.Second
}

// BetWindowRemaining returns how long betting stays open, clamped at zero.
func (m *Match) BetWindowRemaining(now time.Time) time.Duration {
	if m.PickTime == nil {
		return time.Duration(m.BetWindow) * time.Second
	}
	remaining := time.Duration(m.BetWindow)*time.Second - m.Elapsed(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasRosters reports whether both sides have enough identified players for
// a skill rating update.
func (m *Match) HasRosters(minPerSide int) bool {
	return len(m.Team1.Roster()) >= minPerSide && len(m.Team2.Roster()) >= minPerSide
}
