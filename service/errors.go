package service

import "errors"

// Sentinel errors the bot layer maps to user-facing replies.
var (
	ErrAlreadyRegistered   = errors.New("user is already registered")
	ErrNotRegistered       = errors.New("user is not registered")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrNoOpenMatch     = errors.New("no match found to bet on")
	ErrBetWindowClosed = errors.New("betting window has closed")
	ErrUnknownOutcome  = errors.New("could not resolve the outcome token")
	ErrConflictingBet  = errors.New("a wager on the opposite outcome is already open")
	ErrBetAgainstSelf  = errors.New("cannot bet against your own team")
	ErrTieBetsDisabled = errors.New("betting on a tie is disabled")

	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchNotSettled   = errors.New("match has not been settled")
	ErrMatchCancelled    = errors.New("cancelled matches cannot be corrected")
	ErrSameResult        = errors.New("match already has that result")
	ErrInvalidTransition = errors.New("invalid match status transition")

	ErrNotEnoughData = errors.New("not enough rated matches")
)
