/*

Prometheus collectors for the tranche manager. Everything is registered
through promauto at package load and served by the web server's /metrics
handler. Gauges mirror the latest snapshot; counters accumulate run outcomes
and distributed amounts across the process lifetime.

Amounts are exported in display units (whole tokens), not base units: Grafana
has no use for 18-decimal integers and float64 precision is ample for
dashboards.

*/

package metrics

import (
	sdkmath "cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/types"
	"github.com/zivoe/ztm/internal/utils"
)

var metricsLogger = logger.GetForComponent("metrics")

var (
	epochNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_epoch_number",
		Help: "Number of the most recent distribution epoch.",
	})

	seniorSupply = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_senior_supply_tokens",
		Help: "Senior tranche token supply in whole tokens.",
	})

	juniorSupply = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_junior_supply_tokens",
		Help: "Junior tranche token supply in whole tokens.",
	})

	trancheRatioBips = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_tranche_ratio_bips",
		Help: "Junior:senior supply ratio in basis points.",
	})

	seniorRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_senior_rate",
		Help: "Last resolved senior rate in display units (divisor on shortfall epochs).",
	})

	juniorRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_junior_rate",
		Help: "Last resolved junior rate in display units.",
	})

	grossYield = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_gross_yield_tokens",
		Help: "Gross yield of the most recent epoch in whole tokens.",
	})

	scanHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_deposit_scan_height",
		Help: "Highest block height the deposit scanner has fully processed.",
	})

	pendingGrants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ztm_pending_incentive_grants",
		Help: "Incentive grants awaiting payment.",
	})

	distributionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ztm_distribution_runs_total",
		Help: "Distribution runs by outcome.",
	}, []string{"result"})

	settlementRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ztm_settlement_runs_total",
		Help: "Incentive settlement runs by outcome.",
	}, []string{"result"})

	distributedTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ztm_distributed_tokens_total",
		Help: "Cumulative distributed amount in whole tokens, by leg purpose.",
	}, []string{"purpose"})

	grantsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ztm_incentive_grants_total",
		Help: "Incentive grants settled, by final status.",
	}, []string{"status"})
)

// RecordEpoch updates every snapshot-derived gauge after a distribution run.
func RecordEpoch(snapshot types.EpochSnapshot) {
	epochNumber.Set(float64(snapshot.EpochNumber))

	setTokenGauge(seniorSupply, snapshot.SeniorSupply, "senior supply")
	setTokenGauge(juniorSupply, snapshot.JuniorSupply, "junior supply")
	setTokenGauge(seniorRate, snapshot.SeniorRate, "senior rate")
	setTokenGauge(juniorRate, snapshot.JuniorRate, "junior rate")
	setTokenGauge(grossYield, snapshot.GrossYield, "gross yield")

	if !snapshot.SeniorSupply.IsNil() && snapshot.SeniorSupply.IsPositive() &&
		!snapshot.JuniorSupply.IsNil() {
		ratio := snapshot.JuniorSupply.MulRaw(10_000).Quo(snapshot.SeniorSupply)
		trancheRatioBips.Set(float64(ratio.Int64()))
	}
}

// RecordDistribution counts one distribution run and, on success, the amounts
// it moved.
func RecordDistribution(plan types.PayoutPlan, success bool) {
	distributionRuns.WithLabelValues(resultLabel(success)).Inc()
	if !success {
		return
	}
	for _, leg := range plan.Legs {
		display, err := utils.DisplayAmount(leg.Amount, legDecimals(leg))
		if err != nil {
			metricsLogger.Warn().Err(err).Str("purpose", string(leg.Purpose)).Msg("Skipping unconvertible leg amount")
			continue
		}
		distributedTokens.WithLabelValues(string(leg.Purpose)).Add(display)
	}
}

// RecordSettlement counts one settlement run and the grants it resolved.
func RecordSettlement(success bool, paid, skipped int) {
	settlementRuns.WithLabelValues(resultLabel(success)).Inc()
	if paid > 0 {
		grantsSettled.WithLabelValues(string(types.GrantPaid)).Add(float64(paid))
	}
	if skipped > 0 {
		grantsSettled.WithLabelValues(string(types.GrantSkipped)).Add(float64(skipped))
	}
}

// RecordScanHeight publishes the deposit scanner's cursor.
func RecordScanHeight(height int64) {
	scanHeight.Set(float64(height))
}

// RecordPendingGrants publishes the current pending-grant backlog.
func RecordPendingGrants(count int) {
	pendingGrants.Set(float64(count))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// setTokenGauge converts a standardized 18-decimal amount to display units.
func setTokenGauge(gauge prometheus.Gauge, amount sdkmath.Int, label string) {
	if amount.IsNil() {
		return
	}
	display, err := utils.DisplayAmount(amount, 18)
	if err != nil {
		metricsLogger.Warn().Err(err).Str("gauge", label).Msg("Skipping unconvertible gauge value")
		return
	}
	gauge.Set(display)
}

// legDecimals resolves a leg's native decimals for display conversion,
// falling back to 6 when the denom is unknown to the asset table.
func legDecimals(leg types.PayoutLeg) int64 {
	decimals, err := config.DecimalsForDenom(leg.Denom)
	if err != nil {
		return 6
	}
	return decimals
}
