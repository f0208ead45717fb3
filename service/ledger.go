package service

import (
	"context"
	"fmt"

	"shazbuckbot/events"
	"shazbuckbot/models"
)

// createTransfer moves shazbucks between two accounts inside the given unit
// of work and publishes the transfer event on its transactional bus. This is
// the only path that touches balances.
func createTransfer(ctx context.Context, uow UnitOfWork, senderID, receiverID, amount int64, reason models.TransferReason, reasonID *int64) (*models.Transfer, error) {
	transfer := &models.Transfer{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Reason:     reason,
		ReasonID:   reasonID,
	}
	if err := uow.Transfers().Create(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to create %s transfer: %w", reason, err)
	}

	uow.EventBus().Publish(events.TransferCreatedEvent{
		TransferID: transfer.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Reason:     reason,
	})

	return transfer, nil
}
