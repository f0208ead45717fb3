package models

import (
	"time"
)

// TransferReason tags why a transfer happened
type TransferReason string

const (
	TransferReasonInitial   TransferReason = "initial"
	TransferReasonGift      TransferReason = "gift"
	TransferReasonPlaceBet  TransferReason = "place_bet"
	TransferReasonCancelBet TransferReason = "cancel_bet"
	TransferReasonWinBet    TransferReason = "win_bet"
	TransferReasonRevertWin TransferReason = "revert_win"
)

// Transfer is an immutable, append-only movement of shazbucks between two
// users. Corrections are made with new offsetting transfers, never edits.
// ReasonID points at the wager or match that caused the transfer, when any.
type Transfer struct {
	ID         int64          `db:"id"`
	SenderID   int64          `db:"sender_id"`
	ReceiverID int64          `db:"receiver_id"`
	Amount     int64          `db:"amount"`
	Reason     TransferReason `db:"reason"`
	ReasonID   *int64         `db:"reason_id"`
	CreatedAt  time.Time      `db:"created_at"`
}

// GiftResult reports the balances after a completed gift.
type GiftResult struct {
	Amount          int64
	SenderNick      string
	ReceiverNick    string
	SenderBalance   int64
	ReceiverBalance int64
	ReceiverID      int64 // Discord ID, for notifying the recipient
	ReceiverMuted   bool
}
