// ./internal/state/scan_cursor.go
package state

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetScanCursor returns the last chain height whose deposits have been
// ingested. Zero means the scanner has never run.
func GetScanCursor() (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var lastHeight int64
	err := DB.QueryRow(`SELECT last_height FROM scan_cursor WHERE id = 1;`).Scan(&lastHeight)
	if err != nil {
		return 0, fmt.Errorf("failed to read scan cursor: %w", err)
	}

	return lastHeight, nil
}

// SetScanCursor advances the cursor. The cursor only moves forward; a stale
// write from a lagging worker is ignored.
func SetScanCursor(height int64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if height < 0 {
		return fmt.Errorf("scan cursor height cannot be negative, got %d", height)
	}

	stmt := `
		UPDATE scan_cursor
		SET last_height = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1 AND last_height < $1;
	`

	result, err := DB.Exec(stmt, height)
	if err != nil {
		return fmt.Errorf("failed to update scan cursor: %w", err)
	}

	if updated, err := result.RowsAffected(); err == nil && updated == 0 {
		log.Debug().Int64("height", height).Msg("Scan cursor already at or beyond height")
		return nil
	}

	log.Debug().Int64("height", height).Msg("Scan cursor advanced")
	return nil
}
