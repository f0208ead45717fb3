package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"shazbuckbot/events"
	"shazbuckbot/models"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, discordID int64, nick string, muteDM bool) (*models.User, error) {
	args := m.Called(ctx, discordID, nick, muteDM)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetNick(ctx context.Context, id int64, nick string) error {
	args := m.Called(ctx, id, nick)
	return args.Error(0)
}

func (m *MockUserRepository) SetMuteDM(ctx context.Context, id int64, mute bool) error {
	args := m.Called(ctx, id, mute)
	return args.Error(0)
}

func (m *MockUserRepository) TopByBalance(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

func (m *MockUserRepository) SumBalances(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransferRepository is a mock implementation of TransferRepository
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) GetByReason(ctx context.Context, reason models.TransferReason, reasonID int64) ([]*models.Transfer, error) {
	args := m.Called(ctx, reason, reasonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transfer), args.Error(1)
}

func (m *MockTransferRepository) GiftLeaders(ctx context.Context, houseID int64, givers bool, limit int) ([]*models.GiftLeaderEntry, error) {
	args := m.Called(ctx, houseID, givers, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GiftLeaderEntry), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) Create(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) Update(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) GetByStatus(ctx context.Context, status models.MatchStatus) ([]*models.Match, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

func (m *MockMatchRepository) GetByQueueAndStatus(ctx context.Context, queue string, status models.MatchStatus) ([]*models.Match, error) {
	args := m.Called(ctx, queue, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetOpenByUserAndMatch(ctx context.Context, userID, matchID int64) (*models.Wager, error) {
	args := m.Called(ctx, userID, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) AddAmount(ctx context.Context, wagerID, delta int64) error {
	args := m.Called(ctx, wagerID, delta)
	return args.Error(0)
}

func (m *MockWagerRepository) SetResult(ctx context.Context, wagerID int64, result models.WagerResult) error {
	args := m.Called(ctx, wagerID, result)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByMatchAndResult(ctx context.Context, matchID int64, result models.WagerResult) ([]*models.Wager, error) {
	args := m.Called(ctx, matchID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByMatch(ctx context.Context, matchID int64) ([]*models.Wager, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

// MockRatingRepository is a mock implementation of RatingRepository
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) Append(ctx context.Context, rating *models.SkillRating) error {
	args := m.Called(ctx, rating)
	return args.Error(0)
}

func (m *MockRatingRepository) Latest(ctx context.Context, playerID string) (*models.RatedPlayer, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RatedPlayer), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork whose repository
// accessors hand out the doubles registered with SetRepositories
type MockUnitOfWork struct {
	mock.Mock

	userRepo     UserRepository
	transferRepo TransferRepository
	matchRepo    MatchRepository
	wagerRepo    WagerRepository
	ratingRepo   RatingRepository
	eventBus     EventPublisher
}

// SetRepositories wires the repository doubles this unit of work hands out
func (m *MockUnitOfWork) SetRepositories(users UserRepository, transfers TransferRepository, matches MatchRepository, wagers WagerRepository, ratings RatingRepository, bus EventPublisher) {
	m.userRepo = users
	m.transferRepo = transfers
	m.matchRepo = matches
	m.wagerRepo = wagers
	m.ratingRepo = ratings
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Users() UserRepository         { return m.userRepo }
func (m *MockUnitOfWork) Transfers() TransferRepository { return m.transferRepo }
func (m *MockUnitOfWork) Matches() MatchRepository      { return m.matchRepo }
func (m *MockUnitOfWork) Wagers() WagerRepository       { return m.wagerRepo }
func (m *MockUnitOfWork) Ratings() RatingRepository     { return m.ratingRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher      { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
