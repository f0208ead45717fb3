package service

import (
	"context"
	"fmt"

	"shazbuckbot/config"
	"shazbuckbot/models"
)

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new statistics service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{uowFactory: uowFactory}
}

// Leaderboard returns the richest users
func (s *statsService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.Users().TopByBalance(ctx, limit)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entries, nil
}

// Philanthropists returns users who net gifted the most away
func (s *statsService) Philanthropists(ctx context.Context, limit int) ([]*models.GiftLeaderEntry, error) {
	return s.giftLeaders(ctx, limit, true)
}

// Beggars returns users who net received the most gifts
func (s *statsService) Beggars(ctx context.Context, limit int) ([]*models.GiftLeaderEntry, error) {
	return s.giftLeaders(ctx, limit, false)
}

func (s *statsService) giftLeaders(ctx context.Context, limit int, givers bool) ([]*models.GiftLeaderEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	house, err := uow.Users().GetByDiscordID(ctx, config.Get().HouseDiscordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get house account: %w", err)
	}
	var houseID int64
	if house != nil {
		houseID = house.ID
	}

	entries, err := uow.Transfers().GiftLeaders(ctx, houseID, givers, limit)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entries, nil
}
