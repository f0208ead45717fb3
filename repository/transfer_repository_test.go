package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shazbuckbot/models"
	"shazbuckbot/repository/testutil"
)

func TestTransferRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	transfers := NewTransferRepository(testDB.DB)
	ctx := context.Background()

	house, err := users.Create(ctx, 1, "House", true)
	require.NoError(t, err)
	alice, err := users.Create(ctx, 100, "alice", false)
	require.NoError(t, err)

	// Fund the house so it has something to send
	_, err = testDB.DB.Pool.Exec(ctx, `UPDATE users SET balance = 1000 WHERE id = $1`, house.ID)
	require.NoError(t, err)

	t.Run("moves balance and logs the transfer", func(t *testing.T) {
		transfer := &models.Transfer{
			SenderID:   house.ID,
			ReceiverID: alice.ID,
			Amount:     100,
			Reason:     models.TransferReasonInitial,
		}
		err := transfers.Create(ctx, transfer)
		require.NoError(t, err)
		assert.NotZero(t, transfer.ID)
		assert.False(t, transfer.CreatedAt.IsZero())

		updatedHouse, err := users.GetByID(ctx, house.ID)
		require.NoError(t, err)
		updatedAlice, err := users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(900), updatedHouse.Balance)
		assert.Equal(t, int64(100), updatedAlice.Balance)
	})

	t.Run("conserves the total balance", func(t *testing.T) {
		before, err := users.SumBalances(ctx)
		require.NoError(t, err)

		err = transfers.Create(ctx, &models.Transfer{
			SenderID:   alice.ID,
			ReceiverID: house.ID,
			Amount:     37,
			Reason:     models.TransferReasonGift,
		})
		require.NoError(t, err)

		after, err := users.SumBalances(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		err := transfers.Create(ctx, &models.Transfer{
			SenderID:   house.ID,
			ReceiverID: alice.ID,
			Amount:     0,
			Reason:     models.TransferReasonGift,
		})
		assert.Error(t, err)
	})

	t.Run("rejects self transfers", func(t *testing.T) {
		err := transfers.Create(ctx, &models.Transfer{
			SenderID:   alice.ID,
			ReceiverID: alice.ID,
			Amount:     10,
			Reason:     models.TransferReasonGift,
		})
		assert.Error(t, err)
	})

	t.Run("rejects unknown accounts", func(t *testing.T) {
		err := transfers.Create(ctx, &models.Transfer{
			SenderID:   99999,
			ReceiverID: alice.ID,
			Amount:     10,
			Reason:     models.TransferReasonGift,
		})
		assert.Error(t, err)
	})
}

func TestTransferRepository_GetByReason(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	transfers := NewTransferRepository(testDB.DB)
	ctx := context.Background()

	a, err := users.Create(ctx, 200, "a", false)
	require.NoError(t, err)
	b, err := users.Create(ctx, 201, "b", false)
	require.NoError(t, err)
	_, err = testDB.DB.Pool.Exec(ctx, `UPDATE users SET balance = 500`)
	require.NoError(t, err)

	wagerID := int64(42)
	err = transfers.Create(ctx, &models.Transfer{
		SenderID: a.ID, ReceiverID: b.ID, Amount: 50,
		Reason: models.TransferReasonPlaceBet, ReasonID: &wagerID,
	})
	require.NoError(t, err)
	err = transfers.Create(ctx, &models.Transfer{
		SenderID: b.ID, ReceiverID: a.ID, Amount: 10,
		Reason: models.TransferReasonGift,
	})
	require.NoError(t, err)

	found, err := transfers.GetByReason(ctx, models.TransferReasonPlaceBet, wagerID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(50), found[0].Amount)
	assert.Equal(t, a.ID, found[0].SenderID)

	none, err := transfers.GetByReason(ctx, models.TransferReasonWinBet, wagerID)
	require.NoError(t, err)
	assert.Empty(t, none)
}
