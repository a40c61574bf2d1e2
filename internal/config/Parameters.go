/*

This file contains the default tranche parameters for the ZTM.

These values govern real yield distribution and incentive payouts. Each one
states its unit and where it lands in the rate or incentive formulas; anything
tuned away from these defaults goes through the versioned parameter store, not
this file.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/types"
)

// one mirrors the allocator's fixed-point unit without importing it; config
// stays a leaf package.
var one = sdkmath.NewIntWithDecimal(1, 18)

// DefaultTrancheParameters provides the baseline parameter document for the
// rate and incentive engine. These values are used if no active parameters
// are found in the database during initialization.
var DefaultTrancheParameters = types.TrancheParameters{
	// --- Yield Allocation ---

	TargetRatio: one.MulRaw(16_250).QuoRaw(10_000), // 1.625 * One, i.e. 16250 bips.
	// The junior tranche targets 1.625x the senior tranche's per-unit yield,
	// compensating subordination with a higher rate.

	YieldDelta: one.MulRaw(13), // 13 epochs per quarter.
	// Distributions run weekly; 4 * 13 = 52 epochs make up the target year.

	LookbackPeriod: 13,
	// The catch-up branch smooths senior underpayment across a trailing
	// quarter of epochs rather than snapping in one distribution.

	// --- Deposit Incentives ---

	MinIncentiveRate: one.MulRaw(25).QuoRaw(10_000), // 0.0025 * One.
	MaxIncentiveRate: one.MulRaw(100).QuoRaw(10_000), // 0.0100 * One.
	// ZVE granted per standardized deposit unit at the curve's extremes:
	// 0.25% floor, 1% ceiling.

	LowerRatioThreshold: 1_000, // 10% junior:senior, in bips.
	UpperRatioThreshold: 2_500, // 25% junior:senior, in bips.
	// The incentive curve interpolates between its extremes across this
	// band and clamps outside it.

	MaxTrancheRatioBips: 4_500,
	// Junior subscriptions close once junior supply would exceed 45% of
	// senior supply. Past this point junior leverage degrades senior
	// protection faster than the extra yield compensates.

	// --- Distribution ---

	ProtocolFeeBips: 2_000,
	// 20% of gross yield is skimmed to protocol recipients before the
	// waterfall splits the remainder.

	// --- Analytics ---

	EmaPeriods: 4,
	// Supply and yield series on the dashboard smooth over a trailing
	// month of weekly epochs. Spot values always feed the rate formulas.

	DepositsPaused: false,
}
