package models

import (
	"time"
)

// WagerResult represents the settlement state of a wager
type WagerResult string

const (
	WagerResultInProgress WagerResult = "in_progress"
	WagerResultWon        WagerResult = "won"
	WagerResultLost       WagerResult = "lost"
	// WagerResultCancelled: the match itself was cancelled or its teams
	// changed after the wager was placed.
	WagerResultCancelled WagerResult = "cancelled"
	// WagerResultCancelledNoWinners: nobody predicted the actual outcome,
	// every stake was returned.
	WagerResultCancelledNoWinners WagerResult = "cancelled_no_winners"
	// WagerResultCancelledOneSided: everyone predicted the same (winning)
	// outcome, so nobody took the bet and every stake was returned.
	WagerResultCancelledOneSided WagerResult = "cancelled_one_sided"
)

// Wager is a single user's stake on the outcome of a match. While the result
// is in_progress there is exactly one wager per (user, match); repeated bets
// with the same prediction amend the amount instead of creating a new row.
type Wager struct {
	ID         int64       `db:"id"`
	UserID     int64       `db:"user_id"`
	MatchID    int64       `db:"match_id"`
	Prediction Outcome     `db:"prediction"`
	Amount     int64       `db:"amount"`
	Result     WagerResult `db:"result"`
	CreatedAt  time.Time   `db:"created_at"`
}

// BetReceipt reports a placed or amended wager back to the bettor.
type BetReceipt struct {
	WagerID    int64
	MatchID    int64
	Prediction Outcome
	TeamName   string // display name of the predicted side, "Tie" for ties
	Amount     int64  // total stake after any amendment
	Amended    bool   // an existing open wager was topped up
	NewBalance int64
}

// WinnerPayout pairs a winning bettor with the amount paid out
type WinnerPayout struct {
	UserID    int64
	DiscordID int64
	Nick      string
	Staked    int64
	Payout    int64
}

// SettlementReport describes what a settlement did, for the caller to
// notify the channel and the bettors.
type SettlementReport struct {
	MatchID  int64
	Outcome  Outcome
	Voided   bool // match cancelled, all stakes returned
	OneSided bool // everyone bet the same winning outcome
	NoWinner bool // nobody predicted the outcome
	Totals   map[Outcome]int64
	Ratio    float64
	Winners  []WinnerPayout
	Refunded []WinnerPayout
	Losers   []WinnerPayout
}

// Pot returns the total staked across all outcomes.
func (r *SettlementReport) Pot() int64 {
	var pot int64
	for _, total := range r.Totals {
		pot += total
	}
	return pot
}

// TotalPaid returns the sum paid out to winners.
func (r *SettlementReport) TotalPaid() int64 {
	var paid int64
	for _, w := range r.Winners {
		paid += w.Payout
	}
	return paid
}
