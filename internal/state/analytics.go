package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zivoe/ztm/internal/types"
)

// ProtocolSummary represents high-level tranche statistics for the dashboard.
// Amounts are raw base-unit integers rendered as strings; the frontend scales
// them for display.
type ProtocolSummary struct {
	SeniorSupply     string `json:"senior_supply"`
	JuniorSupply     string `json:"junior_supply"`
	LastEpochNumber  int64  `json:"last_epoch_number"`
	LastBranch       string `json:"last_branch"`
	LastGrossYield   string `json:"last_gross_yield"`
	TotalEpochs      int    `json:"total_epochs"`
	SuccessfulEpochs int    `json:"successful_epochs"`
	LastUpdated      string `json:"last_updated"`
}

// DistributionTotals represents lifetime payout aggregates by purpose plus
// the incentive-grant ledger counts.
type DistributionTotals struct {
	TotalSeniorPaid  string `json:"total_senior_paid"`
	TotalJuniorPaid  string `json:"total_junior_paid"`
	TotalProtocolFee string `json:"total_protocol_fee"`
	TotalResidual    string `json:"total_residual"`
	TotalIncentives  string `json:"total_incentives"`
	PendingGrants    int    `json:"pending_grants"`
	PaidGrants       int    `json:"paid_grants"`
	SkippedGrants    int    `json:"skipped_grants"`
}

// GetProtocolSummary retrieves the latest tranche state and epoch counts.
func GetProtocolSummary() (*ProtocolSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	summary := &ProtocolSummary{
		SeniorSupply:   "0",
		JuniorSupply:   "0",
		LastGrossYield: "0",
	}

	// Latest tranche supplies and branch from the most recent snapshot
	query := `
		SELECT senior_supply, junior_supply, epoch_number, branch, gross_yield, snapshot_timestamp
		FROM epoch_snapshots
		ORDER BY epoch_number DESC, snapshot_timestamp DESC
		LIMIT 1
	`

	var lastUpdated sql.NullString
	err := DB.QueryRow(query).Scan(
		&summary.SeniorSupply, &summary.JuniorSupply,
		&summary.LastEpochNumber, &summary.LastBranch, &summary.LastGrossYield,
		&lastUpdated,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get latest epoch values: %w", err)
	}

	if lastUpdated.Valid {
		summary.LastUpdated = lastUpdated.String
	}

	err = DB.QueryRow(`
		SELECT COUNT(*), COUNT(CASE WHEN success THEN 1 END)
		FROM epoch_snapshots
	`).Scan(&summary.TotalEpochs, &summary.SuccessfulEpochs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get epoch counts")
	}

	log.Info().
		Int64("lastEpoch", summary.LastEpochNumber).
		Int("totalEpochs", summary.TotalEpochs).
		Msg("Retrieved protocol summary")
	return summary, nil
}

// GetDistributionTotals retrieves lifetime payout aggregates.
func GetDistributionTotals() (*DistributionTotals, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	totals := &DistributionTotals{}

	// Sums come back as NUMERIC text; they stay strings end to end.
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN purpose = $1 THEN amount ELSE 0 END), 0) AS senior_paid,
			COALESCE(SUM(CASE WHEN purpose = $2 THEN amount ELSE 0 END), 0) AS junior_paid,
			COALESCE(SUM(CASE WHEN purpose = $3 THEN amount ELSE 0 END), 0) AS protocol_fee,
			COALESCE(SUM(CASE WHEN purpose = $4 THEN amount ELSE 0 END), 0) AS residual
		FROM distribution_receipts
		WHERE success
	`

	err := DB.QueryRow(
		query,
		string(types.PayoutSeniorYield),
		string(types.PayoutJuniorYield),
		string(types.PayoutProtocolFee),
		string(types.PayoutResidual),
	).Scan(
		&totals.TotalSeniorPaid,
		&totals.TotalJuniorPaid,
		&totals.TotalProtocolFee,
		&totals.TotalResidual,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get distribution totals: %w", err)
	}

	grantQuery := `
		SELECT
			COALESCE(SUM(CASE WHEN status = $1 THEN reward ELSE 0 END), 0) AS paid_rewards,
			COUNT(CASE WHEN status = $2 THEN 1 END) AS pending,
			COUNT(CASE WHEN status = $1 THEN 1 END) AS paid,
			COUNT(CASE WHEN status = $3 THEN 1 END) AS skipped
		FROM incentive_grants
	`

	err = DB.QueryRow(
		grantQuery,
		string(types.GrantPaid),
		string(types.GrantPending),
		string(types.GrantSkipped),
	).Scan(
		&totals.TotalIncentives,
		&totals.PendingGrants,
		&totals.PaidGrants,
		&totals.SkippedGrants,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get incentive totals: %w", err)
	}

	log.Info().
		Str("totalSeniorPaid", totals.TotalSeniorPaid).
		Str("totalJuniorPaid", totals.TotalJuniorPaid).
		Int("pendingGrants", totals.PendingGrants).
		Msg("Retrieved distribution totals")

	return totals, nil
}
