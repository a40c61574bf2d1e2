/*

This file manages the persistent global epoch counter for the ZTM.
The counter is stored in the database to ensure continuity across restarts:
epoch numbers appear in snapshots, receipts, and payout memos, so they must
never repeat or rewind.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureEpochCounterTable creates the epoch_counter table if it doesn't exist
func ensureEpochCounterTable() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS epoch_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_epoch BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		INSERT INTO epoch_counter (id, current_epoch)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`

	_, err := DB.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create epoch_counter table: %w", err)
	}

	log.Debug().Msg("Ensured epoch_counter table exists")
	return nil
}

// GetCurrentEpochNumber retrieves the current epoch number from the database
func GetCurrentEpochNumber() (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	if err := ensureEpochCounterTable(); err != nil {
		return 0, err
	}

	query := `SELECT current_epoch FROM epoch_counter WHERE id = 1;`

	var currentEpoch int64
	row := DB.QueryRow(query)
	err := row.Scan(&currentEpoch)

	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn().Msg("No epoch counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current epoch number: %w", err)
	}

	log.Debug().Int64("currentEpoch", currentEpoch).Msg("Retrieved current epoch number")
	return currentEpoch, nil
}

// IncrementEpochNumber increments the epoch counter and returns the new value
func IncrementEpochNumber() (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	if err := ensureEpochCounterTable(); err != nil {
		return 0, err
	}

	updateQuery := `
		UPDATE epoch_counter
		SET current_epoch = current_epoch + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_epoch;`

	var newEpoch int64
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&newEpoch)

	if err != nil {
		return 0, fmt.Errorf("failed to increment epoch number: %w", err)
	}

	log.Info().Int64("newEpoch", newEpoch).Msg("Incremented epoch counter")
	return newEpoch, nil
}

// ResetEpochNumber resets the epoch counter to a specific value (for testing/maintenance)
func ResetEpochNumber(epochNumber int64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := ensureEpochCounterTable(); err != nil {
		return err
	}

	if epochNumber < 0 {
		return fmt.Errorf("epoch number cannot be negative: %d", epochNumber)
	}

	updateQuery := `
		UPDATE epoch_counter
		SET current_epoch = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(updateQuery, epochNumber)
	if err != nil {
		return fmt.Errorf("failed to reset epoch number to %d: %w", epochNumber, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting epoch number")
	}

	log.Warn().Int64("epochNumber", epochNumber).Msg("Reset epoch counter")
	return nil
}
