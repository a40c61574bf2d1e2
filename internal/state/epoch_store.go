// ./internal/state/epoch_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/zivoe/ztm/internal/types"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const epochSnapshotColumns = `
	epoch_number, snapshot_timestamp, params_id, height,
	senior_supply, junior_supply,
	gross_yield, protocol_fee, yield_bag, cumulative_yield,
	branch, yield_target, senior_rate, junior_rate,
	senior_owed, junior_owed, residual,
	ema_yield, ema_senior_supply, ema_junior_supply,
	transaction_hashes, receipts, success, error_message`

// SaveEpochSnapshot saves the complete record of one distribution run.
func SaveEpochSnapshot(snapshot types.EpochSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	receiptsJSON, err := json.Marshal(snapshot.Receipts)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal receipts: %w", err)
	}

	// Failure snapshots taken before parameters loaded carry no params_id.
	paramsID := sql.NullInt64{Int64: snapshot.ParametersID, Valid: snapshot.ParametersID > 0}

	query := `
		INSERT INTO epoch_snapshots (` + epochSnapshotColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.EpochNumber, snapshot.Timestamp, paramsID, snapshot.Height,
		snapshot.SeniorSupply.String(), snapshot.JuniorSupply.String(),
		snapshot.GrossYield.String(), snapshot.ProtocolFee.String(), snapshot.YieldBag.String(), snapshot.CumulativeYield.String(),
		string(snapshot.Branch), snapshot.YieldTarget.String(), snapshot.SeniorRate.String(), snapshot.JuniorRate.String(),
		snapshot.SeniorOwed.String(), snapshot.JuniorOwed.String(), snapshot.Residual.String(),
		snapshot.EmaYield.String(), snapshot.EmaSeniorSupply.String(), snapshot.EmaJuniorSupply.String(),
		pq.Array(snapshot.TxHashes), receiptsJSON, snapshot.Success, snapshot.ErrorMessage,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save epoch snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int64("epoch_number", snapshot.EpochNumber).
		Str("branch", string(snapshot.Branch)).
		Bool("success", snapshot.Success).
		Msg("Epoch snapshot saved to database")

	return snapshotID, nil
}

// scanEpochSnapshot hydrates one epoch_snapshots row. Amount columns come
// back as NUMERIC text and are parsed into Ints.
func scanEpochSnapshot(row rowScanner) (types.EpochSnapshot, error) {
	var snapshot types.EpochSnapshot
	var paramsID sql.NullInt64
	var errorMessage sql.NullString
	var receiptsJSON []byte
	var raw [15]string

	err := row.Scan(
		&snapshot.EpochNumber, &snapshot.Timestamp, &paramsID, &snapshot.Height,
		&raw[0], &raw[1],
		&raw[2], &raw[3], &raw[4], &raw[5],
		&snapshot.Branch, &raw[6], &raw[7], &raw[8],
		&raw[9], &raw[10], &raw[11],
		&raw[12], &raw[13], &raw[14],
		pq.Array(&snapshot.TxHashes), &receiptsJSON, &snapshot.Success, &errorMessage,
	)
	if err != nil {
		return types.EpochSnapshot{}, err
	}

	if paramsID.Valid {
		snapshot.ParametersID = paramsID.Int64
	}
	if errorMessage.Valid {
		snapshot.ErrorMessage = errorMessage.String
	}

	targets := []struct {
		column string
		dest   *sdkmath.Int
	}{
		{"senior_supply", &snapshot.SeniorSupply},
		{"junior_supply", &snapshot.JuniorSupply},
		{"gross_yield", &snapshot.GrossYield},
		{"protocol_fee", &snapshot.ProtocolFee},
		{"yield_bag", &snapshot.YieldBag},
		{"cumulative_yield", &snapshot.CumulativeYield},
		{"yield_target", &snapshot.YieldTarget},
		{"senior_rate", &snapshot.SeniorRate},
		{"junior_rate", &snapshot.JuniorRate},
		{"senior_owed", &snapshot.SeniorOwed},
		{"junior_owed", &snapshot.JuniorOwed},
		{"residual", &snapshot.Residual},
		{"ema_yield", &snapshot.EmaYield},
		{"ema_senior_supply", &snapshot.EmaSeniorSupply},
		{"ema_junior_supply", &snapshot.EmaJuniorSupply},
	}
	for i, target := range targets {
		value, err := parseIntColumn(raw[i], target.column)
		if err != nil {
			return types.EpochSnapshot{}, err
		}
		*target.dest = value
	}

	if len(receiptsJSON) > 0 {
		if err := json.Unmarshal(receiptsJSON, &snapshot.Receipts); err != nil {
			return types.EpochSnapshot{}, fmt.Errorf("failed to unmarshal receipts: %w", err)
		}
	}

	return snapshot, nil
}

// GetRecentEpochs retrieves recent epoch snapshots, newest first.
func GetRecentEpochs(limit int) ([]types.EpochSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT ` + epochSnapshotColumns + `
		FROM epoch_snapshots
		ORDER BY epoch_number DESC, snapshot_timestamp DESC
		LIMIT $1
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent epochs")
		return nil, fmt.Errorf("failed to query recent epochs: %w", err)
	}
	defer rows.Close()

	var epochs []types.EpochSnapshot
	for rows.Next() {
		snapshot, err := scanEpochSnapshot(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan epoch row")
			continue // Skip this row and continue with others
		}
		epochs = append(epochs, snapshot)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error occurred during row iteration")
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Info().Int("count", len(epochs)).Int("limit", limit).Msg("Retrieved recent epochs")
	return epochs, nil
}

// GetEpochByNumber retrieves a specific epoch. Retried epochs can leave more
// than one row; the newest row wins.
func GetEpochByNumber(epochNumber int64) (*types.EpochSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT ` + epochSnapshotColumns + `
		FROM epoch_snapshots
		WHERE epoch_number = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT 1
	`

	snapshot, err := scanEpochSnapshot(DB.QueryRow(query, epochNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("epoch %d not found", epochNumber)
		}
		log.Error().Err(err).Int64("epoch_number", epochNumber).Msg("Failed to query epoch by number")
		return nil, fmt.Errorf("failed to query epoch %d: %w", epochNumber, err)
	}

	return &snapshot, nil
}

// GetLatestEpoch returns the most recent snapshot, or nil when no epoch has
// run yet.
func GetLatestEpoch() (*types.EpochSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT ` + epochSnapshotColumns + `
		FROM epoch_snapshots
		ORDER BY epoch_number DESC, snapshot_timestamp DESC
		LIMIT 1
	`

	snapshot, err := scanEpochSnapshot(DB.QueryRow(query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest epoch: %w", err)
	}

	return &snapshot, nil
}

// TrailingYieldSum sums the yield bag over the most recent `window` successful
// epochs. This is the cumulative-yield input the senior rate policy compares
// against its lookback target.
func TrailingYieldSum(window int64) (sdkmath.Int, error) {
	if DB == nil {
		return sdkmath.Int{}, fmt.Errorf("database not initialized")
	}
	if window < 1 {
		return sdkmath.Int{}, fmt.Errorf("trailing window must be at least 1, got %d", window)
	}

	query := `
		SELECT COALESCE(SUM(yield_bag), 0)
		FROM (
			SELECT yield_bag
			FROM epoch_snapshots
			WHERE success
			ORDER BY epoch_number DESC
			LIMIT $1
		) recent;
	`

	var raw string
	if err := DB.QueryRow(query, window).Scan(&raw); err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to sum trailing yield: %w", err)
	}

	return parseIntColumn(raw, "sum(yield_bag)")
}
