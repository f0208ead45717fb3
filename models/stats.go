package models

// LeaderboardEntry is a row in the balance top list
type LeaderboardEntry struct {
	Nick      string
	DiscordID int64
	Balance   int64
}

// GiftLeaderEntry is a row in the philanthropists/beggars lists: net
// amount gifted out (positive) or received (negative), House excluded.
type GiftLeaderEntry struct {
	Nick      string
	DiscordID int64
	NetGifted int64
}

// OpenMatch is a row in the open-match listing shown to bettors
type OpenMatch struct {
	MatchID        int64
	Queue          string
	Team1          string
	Team2          string
	Status         MatchStatus
	SecondsToClose int64 // time left to bet, 0 when the window has closed
}
