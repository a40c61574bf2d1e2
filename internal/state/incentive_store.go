// ./internal/state/incentive_store.go
package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/zivoe/ztm/internal/types"
)

const incentiveGrantColumns = `
	grant_id, tx_hash, msg_index, height, created_at,
	depositor, side, deposit_denom,
	deposit_amount, standardized_amount, senior_supply_at, junior_supply_at,
	reward, capped, status, skip_reason, payout_tx_hash, settled_at`

// InsertIncentiveGrant records one deposit's accrued incentive. Each
// (tx_hash, msg_index) pair is inserted at most once, so re-scanning a height
// range never double-grants; the bool reports whether this call inserted the
// row.
func InsertIncentiveGrant(grant types.IncentiveGrant) (int64, bool, error) {
	if DB == nil {
		return 0, false, fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO incentive_grants (
			tx_hash, msg_index, height,
			depositor, side, deposit_denom,
			deposit_amount, standardized_amount, senior_supply_at, junior_supply_at,
			reward, capped, status, skip_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tx_hash, msg_index) DO NOTHING
		RETURNING grant_id;
	`

	var grantID int64
	err := DB.QueryRow(
		stmt,
		grant.TxHash, grant.MsgIndex, grant.Height,
		grant.Depositor, string(grant.Side), grant.DepositDenom,
		grant.DepositAmount.String(), grant.StandardizedAmount.String(),
		grant.SeniorSupplyAt.String(), grant.JuniorSupplyAt.String(),
		grant.Reward.String(), grant.Capped, string(grant.Status), grant.SkipReason,
	).Scan(&grantID)

	if err != nil {
		if err == sql.ErrNoRows {
			// Conflict path: this deposit was already recorded.
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to insert incentive grant for %s#%d: %w", grant.TxHash, grant.MsgIndex, err)
	}

	log.Info().
		Int64("grant_id", grantID).
		Str("depositor", grant.Depositor).
		Str("side", string(grant.Side)).
		Str("reward", grant.Reward.String()).
		Str("status", string(grant.Status)).
		Msg("Incentive grant recorded")

	return grantID, true, nil
}

func scanIncentiveGrant(row rowScanner) (types.IncentiveGrant, error) {
	var grant types.IncentiveGrant
	var side, status string
	var skipReason, payoutTxHash sql.NullString
	var settledAt sql.NullTime
	var raw [5]string

	err := row.Scan(
		&grant.ID, &grant.TxHash, &grant.MsgIndex, &grant.Height, &grant.CreatedAt,
		&grant.Depositor, &side, &grant.DepositDenom,
		&raw[0], &raw[1], &raw[2], &raw[3],
		&raw[4], &grant.Capped, &status, &skipReason, &payoutTxHash, &settledAt,
	)
	if err != nil {
		return types.IncentiveGrant{}, err
	}

	grant.Side = types.TrancheSide(side)
	grant.Status = types.GrantStatus(status)
	grant.SkipReason = skipReason.String
	grant.PayoutTxHash = payoutTxHash.String
	if settledAt.Valid {
		settled := settledAt.Time
		grant.SettledAt = &settled
	}

	targets := []struct {
		column string
		dest   *sdkmath.Int
	}{
		{"deposit_amount", &grant.DepositAmount},
		{"standardized_amount", &grant.StandardizedAmount},
		{"senior_supply_at", &grant.SeniorSupplyAt},
		{"junior_supply_at", &grant.JuniorSupplyAt},
		{"reward", &grant.Reward},
	}
	for i, target := range targets {
		value, err := parseIntColumn(raw[i], target.column)
		if err != nil {
			return types.IncentiveGrant{}, err
		}
		*target.dest = value
	}

	return grant, nil
}

// ListPendingGrants returns unpaid grants oldest-first, capped at limit. The
// settlement loop uses the cap as its multi-send batch size.
func ListPendingGrants(limit int) ([]types.IncentiveGrant, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 500 {
		limit = 100 // Default batch size
	}

	query := `
		SELECT ` + incentiveGrantColumns + `
		FROM incentive_grants
		WHERE status = $1
		ORDER BY grant_id
		LIMIT $2;
	`

	rows, err := DB.Query(query, string(types.GrantPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending grants: %w", err)
	}
	defer rows.Close()

	var grants []types.IncentiveGrant
	for rows.Next() {
		grant, err := scanIncentiveGrant(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan incentive grant row")
			continue // Skip this row and continue with others
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return grants, nil
}

// MarkGrantsPaid flips a settled batch to PAID and stamps the payout
// transaction that carried it.
func MarkGrantsPaid(grantIDs []int64, payoutTxHash string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(grantIDs) == 0 {
		return nil
	}

	stmt := `
		UPDATE incentive_grants
		SET status = $1, payout_tx_hash = $2, settled_at = CURRENT_TIMESTAMP
		WHERE grant_id = ANY($3) AND status = $4;
	`

	result, err := DB.Exec(stmt, string(types.GrantPaid), payoutTxHash, pq.Array(grantIDs), string(types.GrantPending))
	if err != nil {
		return fmt.Errorf("failed to mark grants paid: %w", err)
	}

	updated, err := result.RowsAffected()
	if err == nil && updated != int64(len(grantIDs)) {
		log.Warn().
			Int64("updated", updated).
			Int("expected", len(grantIDs)).
			Msg("Some grants in the batch were not pending")
	}

	log.Info().Int64("count", updated).Str("tx_hash", payoutTxHash).Msg("Incentive grants marked paid")
	return nil
}

// GetRecentGrants returns the newest grants for the dashboard.
func GetRecentGrants(limit int) ([]types.IncentiveGrant, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT ` + incentiveGrantColumns + `
		FROM incentive_grants
		ORDER BY grant_id DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent grants: %w", err)
	}
	defer rows.Close()

	var grants []types.IncentiveGrant
	for rows.Next() {
		grant, err := scanIncentiveGrant(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan incentive grant row")
			continue
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return grants, nil
}

// PendingRewardTotal sums the outstanding PENDING rewards. Settlement and the
// quote endpoint subtract this from the live reserve before pricing a new
// deposit, since promised rewards are already spoken for.
func PendingRewardTotal() (sdkmath.Int, error) {
	if DB == nil {
		return sdkmath.Int{}, fmt.Errorf("database not initialized")
	}

	var raw string
	err := DB.QueryRow(
		`SELECT COALESCE(SUM(reward), 0) FROM incentive_grants WHERE status = $1;`,
		string(types.GrantPending),
	).Scan(&raw)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to sum pending rewards: %w", err)
	}

	return parseIntColumn(raw, "sum(reward)")
}
