package service

import (
	"context"
	"fmt"

	"shazbuckbot/config"
	"shazbuckbot/events"
	"shazbuckbot/models"
)

const houseNick = "ShazBuckBot"

// accountService implements the AccountService interface
type accountService struct {
	uowFactory UnitOfWorkFactory
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory) AccountService {
	return &accountService{uowFactory: uowFactory}
}

// EnsureHouse creates the House account if missing and returns it. The House
// is the escrow counterparty of every wager, so it has to exist before any
// bet can be placed.
func (s *accountService) EnsureHouse(ctx context.Context) (*models.User, error) {
	cfg := config.Get()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	house, err := uow.Users().GetByDiscordID(ctx, cfg.HouseDiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up house account: %w", err)
	}
	if house == nil {
		house, err = uow.Users().Create(ctx, cfg.HouseDiscordID, houseNick, true)
		if err != nil {
			return nil, fmt.Errorf("failed to create house account: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return house, nil
}

// Register creates an account and grants the starting balance with an
// initial transfer from the House.
func (s *accountService) Register(ctx context.Context, discordID int64, nick string) (*models.User, error) {
	cfg := config.Get()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.Users().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		// Discord nicks drift; a repeated registration refreshes the
		// stored one before being turned away
		if existing.Nick != nick {
			if err := uow.Users().SetNick(ctx, existing.ID, nick); err != nil {
				return nil, fmt.Errorf("failed to refresh nick: %w", err)
			}
			if err := uow.Commit(); err != nil {
				return nil, fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
		return nil, ErrAlreadyRegistered
	}

	house, err := uow.Users().GetByDiscordID(ctx, cfg.HouseDiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up house account: %w", err)
	}
	if house == nil {
		return nil, fmt.Errorf("house account does not exist")
	}

	user, err := uow.Users().Create(ctx, discordID, nick, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if cfg.StartingBalance > 0 {
		if _, err := createTransfer(ctx, uow, house.ID, user.ID, cfg.StartingBalance, models.TransferReasonInitial, nil); err != nil {
			return nil, err
		}
		user.Balance = cfg.StartingBalance
	}

	uow.EventBus().Publish(events.UserCreatedEvent{
		UserID:         user.ID,
		DiscordID:      discordID,
		Nick:           nick,
		InitialBalance: cfg.StartingBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// GetUser returns the account for a Discord ID, or nil when unregistered
func (s *accountService) GetUser(ctx context.Context, discordID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.Users().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// Gift moves shazbucks between two user accounts
func (s *accountService) Gift(ctx context.Context, fromDiscordID, toDiscordID, amount int64) (*models.GiftResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("gift amount must be positive")
	}
	if fromDiscordID == toDiscordID {
		return nil, fmt.Errorf("cannot gift to yourself")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	sender, err := uow.Users().GetByDiscordID(ctx, fromDiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}
	if sender == nil {
		return nil, ErrNotRegistered
	}
	if sender.Balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, amount)
	}

	receiver, err := uow.Users().GetByDiscordID(ctx, toDiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get receiver: %w", err)
	}
	if receiver == nil {
		return nil, fmt.Errorf("recipient %w", ErrNotRegistered)
	}

	if _, err := createTransfer(ctx, uow, sender.ID, receiver.ID, amount, models.TransferReasonGift, nil); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.GiftResult{
		Amount:          amount,
		SenderNick:      sender.Nick,
		ReceiverNick:    receiver.Nick,
		SenderBalance:   sender.Balance - amount,
		ReceiverBalance: receiver.Balance + amount,
		ReceiverID:      receiver.DiscordID,
		ReceiverMuted:   receiver.MuteDM,
	}, nil
}

// ToggleMute flips the DM mute preference, returning the new value
func (s *accountService) ToggleMute(ctx context.Context, discordID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.Users().GetByDiscordID(ctx, discordID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, ErrNotRegistered
	}

	muted := !user.MuteDM
	if err := uow.Users().SetMuteDM(ctx, user.ID, muted); err != nil {
		return false, fmt.Errorf("failed to update mute preference: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return muted, nil
}
