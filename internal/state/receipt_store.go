// ./internal/state/receipt_store.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zivoe/ztm/internal/types"
)

// SaveDistributionReceipts writes the per-leg outcomes of one distribution
// into the normalized receipts table. The same receipts also ride along in
// the epoch snapshot document; this table exists so totals can be aggregated
// by purpose without unpacking JSON.
func SaveDistributionReceipts(receipts []types.PayoutReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(receipts) == 0 {
		return nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	stmt := `
		INSERT INTO distribution_receipts (
			epoch_number, created_at, purpose, recipient_name, recipient, denom, amount, tx_hash, success, message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`

	for _, receipt := range receipts {
		_, err = tx.Exec(
			stmt,
			receipt.EpochNumber, receipt.Timestamp,
			string(receipt.Leg.Purpose), receipt.Leg.Name, receipt.Leg.Recipient, receipt.Leg.Denom,
			receipt.Leg.Amount.String(), receipt.TxHash, receipt.Success, receipt.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert receipt for %s leg to %s: %w", receipt.Leg.Purpose, receipt.Leg.Recipient, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit receipts: %w", err)
	}

	log.Info().Int("count", len(receipts)).Msg("Distribution receipts saved to database")
	return nil
}

// GetReceiptsByEpoch returns all leg receipts recorded for one epoch.
func GetReceiptsByEpoch(epochNumber int64) ([]types.PayoutReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT receipt_id, epoch_number, created_at, purpose, recipient_name, recipient, denom, amount, tx_hash, success, message
		FROM distribution_receipts
		WHERE epoch_number = $1
		ORDER BY receipt_id;
	`

	rows, err := DB.Query(query, epochNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts for epoch %d: %w", epochNumber, err)
	}
	defer rows.Close()

	var receipts []types.PayoutReceipt
	for rows.Next() {
		var receipt types.PayoutReceipt
		var purpose, amount string
		var name, txHash, message sql.NullString
		err := rows.Scan(
			&receipt.ReceiptID, &receipt.EpochNumber, &receipt.Timestamp,
			&purpose, &name, &receipt.Leg.Recipient, &receipt.Leg.Denom,
			&amount, &txHash, &receipt.Success, &message,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan receipt row")
			continue // Skip this row and continue with others
		}

		receipt.Leg.Purpose = types.PayoutPurpose(purpose)
		receipt.Leg.Name = name.String
		receipt.TxHash = txHash.String
		receipt.Message = message.String
		receipt.Leg.Amount, err = parseIntColumn(amount, "amount")
		if err != nil {
			log.Error().Err(err).Int64("receipt_id", receipt.ReceiptID).Msg("Receipt amount unparseable")
			continue
		}

		receipts = append(receipts, receipt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return receipts, nil
}
