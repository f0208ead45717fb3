package models

import (
	"time"
)

// User represents a Discord user with a shazbuck balance. The balance is
// never written directly; every change goes through a Transfer.
type User struct {
	ID        int64     `db:"id"`
	DiscordID int64     `db:"discord_id"`
	Nick      string    `db:"nick"`
	MuteDM    bool      `db:"mute_dm"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
}
