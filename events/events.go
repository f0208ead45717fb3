package events

import (
	"context"
	"sync"

	"shazbuckbot/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserCreated       EventType = "user_created"
	EventTypeTransferCreated   EventType = "transfer_created"
	EventTypeMatchCreated      EventType = "match_created"
	EventTypeTeamsPicked       EventType = "teams_picked"
	EventTypeMatchSettled      EventType = "match_settled"
	EventTypeWagersInvalidated EventType = "wagers_invalidated"
	EventTypeRatingsUpdated    EventType = "ratings_updated"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// UserCreatedEvent represents a new ledger account
type UserCreatedEvent struct {
	UserID         int64
	DiscordID      int64
	Nick           string
	InitialBalance int64
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// TransferCreatedEvent represents a committed transfer
type TransferCreatedEvent struct {
	TransferID int64
	SenderID   int64
	ReceiverID int64
	Amount     int64
	Reason     models.TransferReason
}

func (e TransferCreatedEvent) Type() EventType {
	return EventTypeTransferCreated
}

// MatchCreatedEvent represents a new match entering the picking phase
type MatchCreatedEvent struct {
	MatchID int64
	Queue   string
}

func (e MatchCreatedEvent) Type() EventType {
	return EventTypeMatchCreated
}

// TeamsPickedEvent represents a match transitioning to in progress; betting
// is open from now until the bet window closes.
type TeamsPickedEvent struct {
	MatchID int64
	Queue   string
	Team1   string
	Team2   string
}

func (e TeamsPickedEvent) Type() EventType {
	return EventTypeTeamsPicked
}

// MatchSettledEvent carries the settlement report for notification
type MatchSettledEvent struct {
	Report *models.SettlementReport
}

func (e MatchSettledEvent) Type() EventType {
	return EventTypeMatchSettled
}

// WagersInvalidatedEvent represents wagers refunded because the match
// changed under them (substitution, swap, cancellation).
type WagersInvalidatedEvent struct {
	MatchID  int64
	Reason   string
	Refunded []models.WinnerPayout
}

func (e WagersInvalidatedEvent) Type() EventType {
	return EventTypeWagersInvalidated
}

// RatingsUpdatedEvent represents new skill ratings appended after a match
type RatingsUpdatedEvent struct {
	MatchID int64
	Players []string
}

func (e RatingsUpdatedEvent) Type() EventType {
	return EventTypeRatingsUpdated
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously: a slow or failing notification must never block or roll
// back the ledger mutation that produced the event.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus holds events published during a unit of work and flushes
// them to the real bus only after the database commit succeeds.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after a successful commit; uses a
// background context so notifications survive the request context.
func (b *TransactionalBus) Flush(ctx context.Context) {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events. Called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
