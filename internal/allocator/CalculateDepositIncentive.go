/*

This file prices the ZVE incentive granted for a single tranche deposit. The
per-unit reward rate follows a three-segment piecewise-linear curve over the
junior:senior supply ratio, with the direction of the curve depending on which
tranche receives the deposit:

- Junior deposits earn the most when the junior tranche is scarce (low ratio)
  and the least when it is oversized (high ratio).
- Senior deposits run the inverted curve, earning the most when the junior
  tranche is oversized.

The deposit is priced at the average of the pre-deposit and post-deposit
ratios, so a large deposit that sweeps across the curve is rewarded for the
span it covers rather than a single endpoint. The final reward is capped by
the ZVE balance actually available for payout.

*/

package allocator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/types"
)

var curveLogger = logger.GetForComponent("incentive_curve")

// Error definitions for incentive-curve configuration.
var (
	ErrRateBoundsInverted  = errors.New("max incentive rate is below min incentive rate")
	ErrThresholdsInverted  = errors.New("upper ratio threshold is not above lower ratio threshold")
	ErrNegativeThreshold   = errors.New("ratio threshold is negative")
	ErrInvalidTrancheRatio = errors.New("max tranche ratio must be positive")
)

// CalculateDepositIncentive computes the ZVE reward owed for one deposit.
//
// Supplies must be read from state as of the moment before the deposit
// mutates them; the function applies the deposit to the appropriate side
// itself when computing the post-deposit ratio.
//
// Inputs:
// - side: the tranche receiving the deposit
// - depositAmount: standardized deposit size (18-decimal base units)
// - seniorSupply, juniorSupply: pre-deposit tranche token supplies
// - availableBalance: ZVE currently available for incentive payout
// - params: the parameter snapshot in force at the deposit height
//
// Output: the ZVE reward in 18-decimal base units, capped at availableBalance.
func CalculateDepositIncentive(side types.TrancheSide, depositAmount, seniorSupply, juniorSupply, availableBalance sdkmath.Int, params types.TrancheParameters) (sdkmath.Int, error) {
	if err := validateInputs(
		namedInt{"depositAmount", depositAmount},
		namedInt{"seniorSupply", seniorSupply},
		namedInt{"juniorSupply", juniorSupply},
		namedInt{"availableBalance", availableBalance},
		namedInt{"minIncentiveRate", params.MinIncentiveRate},
		namedInt{"maxIncentiveRate", params.MaxIncentiveRate},
	); err != nil {
		return sdkmath.Int{}, err
	}
	if params.MaxIncentiveRate.LT(params.MinIncentiveRate) {
		return sdkmath.Int{}, errors.Join(ErrRateBoundsInverted,
			fmt.Errorf("min %s, max %s", params.MinIncentiveRate, params.MaxIncentiveRate))
	}
	if params.LowerRatioThreshold < 0 || params.UpperRatioThreshold < 0 {
		return sdkmath.Int{}, errors.Join(ErrNegativeThreshold,
			fmt.Errorf("lower %d, upper %d", params.LowerRatioThreshold, params.UpperRatioThreshold))
	}
	if params.UpperRatioThreshold <= params.LowerRatioThreshold {
		return sdkmath.Int{}, errors.Join(ErrThresholdsInverted,
			fmt.Errorf("lower %d, upper %d", params.LowerRatioThreshold, params.UpperRatioThreshold))
	}
	if seniorSupply.IsZero() {
		return sdkmath.Int{}, errors.Join(ErrZeroSeniorSupply, errors.New("cannot compute supply ratio"))
	}

	// Ratio before the deposit, then after. A junior deposit raises the
	// ratio, a senior deposit lowers it.
	startRatio := juniorSupply.Mul(Bips).Quo(seniorSupply)
	var finalRatio sdkmath.Int
	switch side {
	case types.TrancheJunior:
		finalRatio = juniorSupply.Add(depositAmount).Mul(Bips).Quo(seniorSupply)
	case types.TrancheSenior:
		finalRatio = juniorSupply.Mul(Bips).Quo(seniorSupply.Add(depositAmount))
	default:
		return sdkmath.Int{}, errors.Join(types.ErrUnknownTrancheSide, fmt.Errorf("got %q", side))
	}
	avgRatio := startRatio.Add(finalRatio).QuoRaw(2)

	rate, err := incentiveRateAt(side, avgRatio, params)
	if err != nil {
		return sdkmath.Int{}, err
	}

	reward := rate.Mul(depositAmount).Quo(One)
	capped := reward.GT(availableBalance)
	if capped {
		reward = availableBalance
	}

	curveLogger.Debug().
		Str("side", string(side)).
		Str("depositAmount", depositAmount.String()).
		Str("startRatio", startRatio.String()).
		Str("finalRatio", finalRatio.String()).
		Str("avgRatio", avgRatio.String()).
		Str("rate", rate.String()).
		Str("availableBalance", availableBalance.String()).
		Bool("capped", capped).
		Str("reward", reward.String()).
		Msg("Priced deposit incentive")

	return reward, nil
}

// incentiveRateAt selects the per-unit reward rate for the given average
// ratio. Outside the threshold band the rate clamps to the side-appropriate
// extreme; inside it interpolates linearly across the configured span.
func incentiveRateAt(side types.TrancheSide, avgRatio sdkmath.Int, params types.TrancheParameters) (sdkmath.Int, error) {
	lower := sdkmath.NewInt(params.LowerRatioThreshold)
	upper := sdkmath.NewInt(params.UpperRatioThreshold)
	span := upper.Sub(lower)
	diff := params.MaxIncentiveRate.Sub(params.MinIncentiveRate)

	switch side {
	case types.TrancheJunior:
		if avgRatio.LTE(lower) {
			return params.MaxIncentiveRate, nil
		}
		if avgRatio.GTE(upper) {
			return params.MinIncentiveRate, nil
		}
		return params.MaxIncentiveRate.Sub(diff.Mul(avgRatio.Sub(lower)).Quo(span)), nil
	case types.TrancheSenior:
		if avgRatio.LTE(lower) {
			return params.MinIncentiveRate, nil
		}
		if avgRatio.GTE(upper) {
			return params.MaxIncentiveRate, nil
		}
		return params.MinIncentiveRate.Add(diff.Mul(avgRatio.Sub(lower)).Quo(span)), nil
	default:
		return sdkmath.Int{}, errors.Join(types.ErrUnknownTrancheSide, fmt.Errorf("got %q", side))
	}
}

// JuniorDepositOpen reports whether a junior deposit of the given size keeps
// the junior:senior supply ratio at or under the configured cap. The check is
// division-free:
//
//	(juniorSupply + depositAmount) * Bips <= seniorSupply * maxRatioBips
//
// A zero senior supply closes the junior tranche for any positive deposit.
func JuniorDepositOpen(juniorSupply, seniorSupply, depositAmount sdkmath.Int, maxRatioBips int64) (bool, error) {
	if err := validateInputs(
		namedInt{"juniorSupply", juniorSupply},
		namedInt{"seniorSupply", seniorSupply},
		namedInt{"depositAmount", depositAmount},
	); err != nil {
		return false, err
	}
	if maxRatioBips <= 0 {
		return false, errors.Join(ErrInvalidTrancheRatio, fmt.Errorf("got %d", maxRatioBips))
	}

	open := juniorSupply.Add(depositAmount).Mul(Bips).LTE(seniorSupply.MulRaw(maxRatioBips))

	curveLogger.Debug().
		Str("juniorSupply", juniorSupply.String()).
		Str("seniorSupply", seniorSupply.String()).
		Str("depositAmount", depositAmount.String()).
		Int64("maxRatioBips", maxRatioBips).
		Bool("open", open).
		Msg("Checked junior tranche capacity")

	return open, nil
}
