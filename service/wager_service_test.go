package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shazbuckbot/events"
	"shazbuckbot/models"
	"shazbuckbot/repository/testutil"
)

// seedUser registers a user directly in the store with a fixed balance
func seedUser(t *testing.T, store *memStore, discordID int64, nick string, balance int64) *models.User {
	t.Helper()
	user, err := (&memUserRepo{store}).Create(context.Background(), discordID, nick, false)
	require.NoError(t, err)
	store.mu.Lock()
	store.users[user.ID].Balance = balance
	user.Balance = balance
	store.mu.Unlock()
	return user
}

// newBetFixture builds a store with a house, an in-progress match and a
// wager service whose clock is frozen at pick time
func newBetFixture(t *testing.T) (*memStore, *collectingBus, *wagerService, *models.Match) {
	t.Helper()
	store, bus, factory := newMemFactory()
	seedUser(t, store, 1, "ShazBuckBot", 1_000_000)

	match := testutil.NewPickedMatch("NA Elite",
		testutil.NewTeam("Çråzy", "alpha", "bravo"),
		testutil.NewTeam("Muppet", "charlie", "delta"),
	)
	require.NoError(t, (&memMatchRepo{store}).Create(context.Background(), match))

	svc := NewWagerService(factory).(*wagerService)
	svc.now = func() time.Time { return *match.PickTime }
	return store, bus, svc, match
}

func balanceOf(t *testing.T, store *memStore, discordID int64) int64 {
	t.Helper()
	user, err := (&memUserRepo{store}).GetByDiscordID(context.Background(), discordID)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user.Balance
}

func totalBalance(t *testing.T, store *memStore) int64 {
	t.Helper()
	sum, err := (&memUserRepo{store}).SumBalances(context.Background())
	require.NoError(t, err)
	return sum
}

func TestPlaceBet(t *testing.T) {
	ctx := context.Background()

	t.Run("captain name resolves caselessly and moves the stake to escrow", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "ember", 500)

		receipt, err := svc.PlaceBet(ctx, 100, nil, "crazy", 200)
		require.NoError(t, err)
		assert.Equal(t, match.ID, receipt.MatchID)
		assert.Equal(t, models.OutcomeTeam1, receipt.Prediction)
		assert.Equal(t, "Çråzy", receipt.TeamName)
		assert.Equal(t, int64(200), receipt.Amount)
		assert.False(t, receipt.Amended)
		assert.Equal(t, int64(300), receipt.NewBalance)

		assert.Equal(t, int64(300), balanceOf(t, store, 100))
		assert.Equal(t, int64(1_000_200), balanceOf(t, store, 1))
	})

	t.Run("side aliases pick red and blue", func(t *testing.T) {
		store, _, svc, _ := newBetFixture(t)
		seedUser(t, store, 100, "ember", 500)
		seedUser(t, store, 101, "coal", 500)

		receipt, err := svc.PlaceBet(ctx, 100, nil, "Red", 100)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeTeam1, receipt.Prediction)

		receipt, err = svc.PlaceBet(ctx, 101, nil, "Blue", 100)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeTeam2, receipt.Prediction)
	})

	t.Run("numeric token picks the side", func(t *testing.T) {
		store, _, svc, _ := newBetFixture(t)
		seedUser(t, store, 100, "ember", 500)

		receipt, err := svc.PlaceBet(ctx, 100, nil, "2", 50)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeTeam2, receipt.Prediction)
		assert.Equal(t, "Muppet", receipt.TeamName)
	})

	t.Run("tie token targets the most recent match", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "ember", 500)

		receipt, err := svc.PlaceBet(ctx, 100, nil, "tie", 50)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeTied, receipt.Prediction)
		assert.Equal(t, match.ID, receipt.MatchID)
	})

	t.Run("same prediction amends the open wager", func(t *testing.T) {
		store, _, svc, _ := newBetFixture(t)
		seedUser(t, store, 100, "ember", 500)

		first, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		require.NoError(t, err)
		second, err := svc.PlaceBet(ctx, 100, nil, "1", 150)
		require.NoError(t, err)

		assert.Equal(t, first.WagerID, second.WagerID)
		assert.True(t, second.Amended)
		assert.Equal(t, int64(250), second.Amount)
		assert.Equal(t, int64(250), balanceOf(t, store, 100))

		wager, err := (&memWagerRepo{store}).GetByID(ctx, first.WagerID)
		require.NoError(t, err)
		assert.Equal(t, int64(250), wager.Amount)
	})

	t.Run("opposite prediction is rejected", func(t *testing.T) {
		store, _, svc, _ := newBetFixture(t)
		seedUser(t, store, 100, "ember", 500)

		_, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 100, nil, "2", 100)
		assert.ErrorIs(t, err, ErrConflictingBet)
	})

	t.Run("players cannot bet against their own team", func(t *testing.T) {
		store, _, svc, _ := newBetFixture(t)
		seedUser(t, store, 100, "alpha", 500)

		_, err := svc.PlaceBet(ctx, 100, nil, "2", 100)
		assert.ErrorIs(t, err, ErrBetAgainstSelf)

		// Backing the own team stays allowed
		_, err = svc.PlaceBet(ctx, 100, nil, "1", 100)
		assert.NoError(t, err)
	})

	t.Run("stake may not exceed the balance", func(t *testing.T) {
		store, _, svc, _ := newBetFixture(t)
		seedUser(t, store, 100, "ember", 80)

		_, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("unknown token", func(t *testing.T) {
		store, _, svc, _ := newBetFixture(t)
		seedUser(t, store, 100, "ember", 500)

		_, err := svc.PlaceBet(ctx, 100, nil, "nobody", 100)
		assert.ErrorIs(t, err, ErrUnknownOutcome)
	})

	t.Run("unregistered bettor", func(t *testing.T) {
		_, _, svc, _ := newBetFixture(t)

		_, err := svc.PlaceBet(ctx, 999, nil, "1", 100)
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("window boundary is inclusive", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "ember", 500)

		window := time.Duration(match.BetWindow) * time.Second
		svc.now = func() time.Time { return match.PickTime.Add(window) }
		_, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		assert.NoError(t, err)

		svc.now = func() time.Time { return match.PickTime.Add(window + time.Second) }
		_, err = svc.PlaceBet(ctx, 100, nil, "1", 100)
		assert.ErrorIs(t, err, ErrBetWindowClosed)
	})
}

func TestSettleMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("pari-mutuel payout at the pot ratio", func(t *testing.T) {
		store, bus, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "winner", 300)
		seedUser(t, store, 101, "loser", 100)

		_, err := svc.PlaceBet(ctx, 100, nil, "1", 300)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 101, nil, "2", 100)
		require.NoError(t, err)

		before := totalBalance(t, store)
		report, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)

		assert.InDelta(t, 400.0/300.0, report.Ratio, 1e-9)
		require.Len(t, report.Winners, 1)
		assert.Equal(t, int64(400), report.Winners[0].Payout)
		require.Len(t, report.Losers, 1)

		// Winner staked 300, got 400; loser lost the 100
		assert.Equal(t, int64(400), balanceOf(t, store, 100))
		assert.Equal(t, int64(0), balanceOf(t, store, 101))
		assert.Equal(t, before, totalBalance(t, store))

		assert.Len(t, bus.ofType(events.EventTypeMatchSettled), 1)

		matches, err := (&memMatchRepo{store}).GetByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusTeam1, matches.Status)
	})

	t.Run("payout rounds per wager", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "small", 90)
		seedUser(t, store, 101, "large", 210)
		seedUser(t, store, 102, "other", 100)

		_, err := svc.PlaceBet(ctx, 100, nil, "1", 90)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 101, nil, "1", 210)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 102, nil, "2", 100)
		require.NoError(t, err)

		report, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)

		// Pot 400 over 300 staked on the winner: 90 pays 120, 210 pays 280
		assert.InDelta(t, 400.0/300.0, report.Ratio, 1e-9)
		assert.Equal(t, int64(120), balanceOf(t, store, 100))
		assert.Equal(t, int64(280), balanceOf(t, store, 101))
	})

	t.Run("one sided wagers are refunded", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "a", 100)
		seedUser(t, store, 101, "b", 100)

		_, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 101, nil, "1", 100)
		require.NoError(t, err)

		report, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)

		assert.True(t, report.OneSided)
		assert.Len(t, report.Refunded, 2)
		assert.Equal(t, int64(100), balanceOf(t, store, 100))
		assert.Equal(t, int64(100), balanceOf(t, store, 101))

		wagers, err := (&memWagerRepo{store}).GetByMatch(ctx, match.ID)
		require.NoError(t, err)
		for _, w := range wagers {
			assert.Equal(t, models.WagerResultCancelledOneSided, w.Result)
		}
	})

	t.Run("no winner refunds every stake", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "a", 100)

		_, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		require.NoError(t, err)

		report, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTeam2)
		require.NoError(t, err)

		assert.True(t, report.NoWinner)
		assert.Equal(t, int64(100), balanceOf(t, store, 100))

		wagers, err := (&memWagerRepo{store}).GetByMatch(ctx, match.ID)
		require.NoError(t, err)
		require.Len(t, wagers, 1)
		assert.Equal(t, models.WagerResultCancelledNoWinners, wagers[0].Result)
	})

	t.Run("tie payout is scaled before rounding", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "tiebettor", 100)
		seedUser(t, store, 101, "sidebettor", 300)

		_, err := svc.PlaceBet(ctx, 100, nil, "tie", 100)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 101, nil, "1", 300)
		require.NoError(t, err)

		report, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTied)
		require.NoError(t, err)

		// Ratio 4.0 scaled by the 0.5 tie factor: 100 pays 200
		assert.InDelta(t, 4.0, report.Ratio, 1e-9)
		assert.Equal(t, int64(200), balanceOf(t, store, 100))
		assert.Equal(t, int64(0), balanceOf(t, store, 101))
	})

	t.Run("settling twice is rejected", func(t *testing.T) {
		_, _, svc, match := newBetFixture(t)

		_, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)
		_, err = svc.SettleMatch(ctx, match.ID, models.OutcomeTeam2)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestChangeResult(t *testing.T) {
	ctx := context.Background()

	placeBets := func(t *testing.T, store *memStore, svc *wagerService) {
		seedUser(t, store, 100, "a", 300)
		seedUser(t, store, 101, "b", 100)
		seedUser(t, store, 102, "c", 150)
		_, err := svc.PlaceBet(ctx, 100, nil, "1", 300)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 101, nil, "2", 100)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 102, nil, "2", 150)
		require.NoError(t, err)
	}

	t.Run("correction matches settling the right way directly", func(t *testing.T) {
		corrected, _, correctedSvc, correctedMatch := newBetFixture(t)
		placeBets(t, corrected, correctedSvc)
		_, err := correctedSvc.SettleMatch(ctx, correctedMatch.ID, models.OutcomeTeam1)
		require.NoError(t, err)
		_, err = correctedSvc.ChangeResult(ctx, correctedMatch.ID, models.OutcomeTeam2)
		require.NoError(t, err)

		direct, _, directSvc, directMatch := newBetFixture(t)
		placeBets(t, direct, directSvc)
		_, err = directSvc.SettleMatch(ctx, directMatch.ID, models.OutcomeTeam2)
		require.NoError(t, err)

		for _, discordID := range []int64{1, 100, 101, 102} {
			assert.Equal(t, balanceOf(t, direct, discordID), balanceOf(t, corrected, discordID),
				"balance of %d diverged after correction", discordID)
		}

		match, err := (&memMatchRepo{corrected}).GetByID(ctx, correctedMatch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusTeam2, match.Status)
	})

	t.Run("correction conserves the total balance", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		placeBets(t, store, svc)
		_, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)

		before := totalBalance(t, store)
		_, err = svc.ChangeResult(ctx, match.ID, models.OutcomeTied)
		require.NoError(t, err)
		assert.Equal(t, before, totalBalance(t, store))
	})

	t.Run("correction out of a no-winner refund", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "a", 100)
		_, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		require.NoError(t, err)

		_, err = svc.SettleMatch(ctx, match.ID, models.OutcomeTeam2)
		require.NoError(t, err)
		assert.Equal(t, int64(100), balanceOf(t, store, 100))

		// Correcting to team1 turns the lone wager into a one-sided refund
		report, err := svc.ChangeResult(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)
		assert.True(t, report.OneSided)
		assert.Equal(t, int64(100), balanceOf(t, store, 100))
	})

	t.Run("same result is rejected", func(t *testing.T) {
		_, _, svc, match := newBetFixture(t)
		_, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)

		_, err = svc.ChangeResult(ctx, match.ID, models.OutcomeTeam1)
		assert.ErrorIs(t, err, ErrSameResult)
	})

	t.Run("unsettled and cancelled matches are rejected", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)

		_, err := svc.ChangeResult(ctx, match.ID, models.OutcomeTeam1)
		assert.ErrorIs(t, err, ErrMatchNotSettled)

		stored, err := (&memMatchRepo{store}).GetByID(ctx, match.ID)
		require.NoError(t, err)
		stored.Status = models.MatchStatusCancelled
		require.NoError(t, (&memMatchRepo{store}).Update(ctx, stored))

		_, err = svc.ChangeResult(ctx, match.ID, models.OutcomeTeam1)
		assert.ErrorIs(t, err, ErrMatchCancelled)
	})

	t.Run("wagers cancelled before settlement stay untouched", func(t *testing.T) {
		store, _, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "a", 100)
		seedUser(t, store, 101, "b", 100)
		_, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		require.NoError(t, err)
		receipt, err := svc.PlaceBet(ctx, 101, nil, "2", 100)
		require.NoError(t, err)

		// The second bettor's wager was refunded by a roster change before
		// the match settled
		house, err := (&memUserRepo{store}).GetByDiscordID(ctx, 1)
		require.NoError(t, err)
		b, err := (&memUserRepo{store}).GetByDiscordID(ctx, 101)
		require.NoError(t, err)
		require.NoError(t, (&memTransferRepo{store}).Create(ctx, &models.Transfer{
			SenderID: house.ID, ReceiverID: b.ID, Amount: 100,
			Reason: models.TransferReasonCancelBet, ReasonID: &receipt.WagerID,
		}))
		require.NoError(t, (&memWagerRepo{store}).SetResult(ctx, receipt.WagerID, models.WagerResultCancelled))

		_, err = svc.SettleMatch(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)
		_, err = svc.ChangeResult(ctx, match.ID, models.OutcomeTeam2)
		require.NoError(t, err)

		wager, err := (&memWagerRepo{store}).GetByID(ctx, receipt.WagerID)
		require.NoError(t, err)
		assert.Equal(t, models.WagerResultCancelled, wager.Result)
		assert.Equal(t, int64(100), balanceOf(t, store, 101))
	})
}

func TestVoidMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns every open stake and cancels the match", func(t *testing.T) {
		store, bus, svc, match := newBetFixture(t)
		seedUser(t, store, 100, "a", 100)
		seedUser(t, store, 101, "b", 250)

		_, err := svc.PlaceBet(ctx, 100, nil, "1", 100)
		require.NoError(t, err)
		_, err = svc.PlaceBet(ctx, 101, nil, "2", 250)
		require.NoError(t, err)

		before := totalBalance(t, store)
		report, err := svc.VoidMatch(ctx, match.ID)
		require.NoError(t, err)
		assert.True(t, report.Voided)
		require.Len(t, report.Refunded, 2)

		assert.Equal(t, int64(100), balanceOf(t, store, 100))
		assert.Equal(t, int64(250), balanceOf(t, store, 101))
		assert.Equal(t, before, totalBalance(t, store))
		assert.Len(t, bus.ofType(events.EventTypeMatchSettled), 1)

		stored, err := (&memMatchRepo{store}).GetByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusCancelled, stored.Status)

		wagers, err := (&memWagerRepo{store}).GetByMatch(ctx, match.ID)
		require.NoError(t, err)
		for _, w := range wagers {
			assert.Equal(t, models.WagerResultCancelled, w.Result)
		}
	})

	t.Run("settled matches cannot be voided", func(t *testing.T) {
		_, _, svc, match := newBetFixture(t)

		_, err := svc.SettleMatch(ctx, match.ID, models.OutcomeTeam1)
		require.NoError(t, err)
		_, err = svc.VoidMatch(ctx, match.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
