package repository

import (
	"context"
	"fmt"

	"shazbuckbot/database"
	"shazbuckbot/models"
)

// TransferRepository implements the service.TransferRepository interface
type TransferRepository struct {
	q queryable
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{q: db.Pool}
}

// newTransferRepositoryWithTx creates a new transfer repository with a transaction
func newTransferRepositoryWithTx(tx queryable) *TransferRepository {
	return &TransferRepository{q: tx}
}

// Create inserts the transfer row and applies both balance updates. Balances
// are never written outside this method, so the transfer log always accounts
// for every shazbuck: if any of the three writes fails the caller's rollback
// discards them all.
func (r *TransferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	if transfer.Amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", transfer.Amount)
	}
	if transfer.SenderID == transfer.ReceiverID {
		return fmt.Errorf("transfer sender and receiver must differ")
	}

	query := `
		INSERT INTO transfers (sender_id, receiver_id, amount, reason, reason_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		transfer.SenderID,
		transfer.ReceiverID,
		transfer.Amount,
		transfer.Reason,
		transfer.ReasonID,
	).Scan(&transfer.ID, &transfer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	result, err := r.q.Exec(ctx,
		`UPDATE users SET balance = balance - $1 WHERE id = $2`,
		transfer.Amount, transfer.SenderID,
	)
	if err != nil {
		return fmt.Errorf("failed to debit user %d: %w", transfer.SenderID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("transfer sender %d not found", transfer.SenderID)
	}

	result, err = r.q.Exec(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2`,
		transfer.Amount, transfer.ReceiverID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit user %d: %w", transfer.ReceiverID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("transfer receiver %d not found", transfer.ReceiverID)
	}

	return nil
}

// GetByReason returns transfers tagged with the given reason and reason id,
// oldest first
func (r *TransferRepository) GetByReason(ctx context.Context, reason models.TransferReason, reasonID int64) ([]*models.Transfer, error) {
	query := `
		SELECT id, sender_id, receiver_id, amount, reason, reason_id, created_at
		FROM transfers
		WHERE reason = $1 AND reason_id = $2
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, reason, reasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers by reason: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		var t models.Transfer
		err := rows.Scan(&t.ID, &t.SenderID, &t.ReceiverID, &t.Amount, &t.Reason, &t.ReasonID, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}

// GiftLeaders returns users ranked by net amount gifted. With givers true the
// biggest net senders come first, otherwise the biggest net receivers.
// Transfers involving the House are excluded so initial grants and payouts do
// not count as generosity.
func (r *TransferRepository) GiftLeaders(ctx context.Context, houseID int64, givers bool, limit int) ([]*models.GiftLeaderEntry, error) {
	direction := "DESC"
	if !givers {
		direction = "ASC"
	}

	query := `
		SELECT u.discord_id, u.nick, COALESCE(g.net, 0) AS net
		FROM users u
		JOIN (
			SELECT user_id, SUM(delta) AS net FROM (
				SELECT sender_id AS user_id, amount AS delta
				FROM transfers
				WHERE reason = $1 AND sender_id <> $2 AND receiver_id <> $2
				UNION ALL
				SELECT receiver_id AS user_id, -amount AS delta
				FROM transfers
				WHERE reason = $1 AND sender_id <> $2 AND receiver_id <> $2
			) flows
			GROUP BY user_id
		) g ON g.user_id = u.id
		ORDER BY net ` + direction + `, u.id ASC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, models.TransferReasonGift, houseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query gift leaders: %w", err)
	}
	defer rows.Close()

	var entries []*models.GiftLeaderEntry
	for rows.Next() {
		var entry models.GiftLeaderEntry
		if err := rows.Scan(&entry.DiscordID, &entry.Nick, &entry.NetGifted); err != nil {
			return nil, fmt.Errorf("failed to scan gift leader: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gift leaders: %w", err)
	}
	return entries, nil
}
