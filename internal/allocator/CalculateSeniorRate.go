/*

This file computes the senior tranche's distribution rate for one epoch. The
rate follows a three-branch policy evaluated in order:

1. Shortfall: the epoch's yield cannot fund the target. The senior tranche is
   paid pro-rata instead, and the returned value is the pro-rata divisor
   (yieldBag * One / rate is the senior share).
2. Saturated: the lookback window has already accumulated the target in full,
   so the plain per-epoch target is owed and no correction applies.
3. Catch-up: the window is behind target. The owed amount is raised above the
   per-epoch target and corrected downward by how much of the window's yield
   has already been collected, so the senior tranche converges back to target
   across epochs instead of snapping in one.

*/

package allocator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/types"
)

var rateLogger = logger.GetForComponent("rate_allocator")

// Error definitions for the rate-allocation path.
var (
	ErrZeroYieldBag          = errors.New("yield bag is zero")
	ErrInvalidLookbackPeriod = errors.New("lookback period must be positive")
	ErrRateUnderflow         = errors.New("catch-up correction exceeds the lead term")
)

// shortfallRate computes the pro-rata divisor applied when an epoch cannot
// fund its yield target:
//
//	rate = One + targetRatio * juniorSupply / seniorSupply
//
// Multiplication runs before the division at arbitrary precision. Fails when
// seniorSupply is zero.
func shortfallRate(targetRatio, juniorSupply, seniorSupply sdkmath.Int) (sdkmath.Int, error) {
	if seniorSupply.IsZero() {
		return sdkmath.Int{}, errors.Join(ErrZeroSeniorSupply, errors.New("cannot compute shortfall rate"))
	}
	return One.Add(targetRatio.Mul(juniorSupply).Quo(seniorSupply)), nil
}

// CalculateSeniorRate resolves the senior tranche's rate for the current
// epoch using the three-branch policy described in the file header.
//
// Inputs:
// - yieldBag: total yield available for this distribution (18-decimal base units)
// - cumulativeYield: yield collected over the trailing lookback window
// - currentRate: the previous epoch's resolved rate (part of the call contract, informational)
// - seniorSupply, juniorSupply: current tranche token supplies
// - params: the parameter snapshot in force for this epoch
//
// Output: the resolved senior rate. On the shortfall branch this is a
// pro-rata divisor clamped to whole units of One; on the other two branches
// it is the yield amount owed in 18-decimal base units.
func CalculateSeniorRate(yieldBag, cumulativeYield, currentRate, seniorSupply, juniorSupply sdkmath.Int, params types.TrancheParameters) (sdkmath.Int, error) {
	if err := validateInputs(
		namedInt{"yieldBag", yieldBag},
		namedInt{"cumulativeYield", cumulativeYield},
		namedInt{"currentRate", currentRate},
		namedInt{"seniorSupply", seniorSupply},
		namedInt{"juniorSupply", juniorSupply},
	); err != nil {
		return sdkmath.Int{}, err
	}
	if params.LookbackPeriod < 1 {
		return sdkmath.Int{}, errors.Join(ErrInvalidLookbackPeriod, fmt.Errorf("got %d", params.LookbackPeriod))
	}
	if seniorSupply.IsZero() {
		return sdkmath.Int{}, errors.Join(ErrZeroSeniorSupply, errors.New("cannot resolve senior rate"))
	}

	target, err := CalculateYieldTarget(seniorSupply, juniorSupply, params.TargetRatio, params.YieldDelta)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to compute yield target: %w", err)
	}

	// Branch 1: shortfall. The clamp truncates the divisor to a whole
	// multiple of One so residual noise below the unit scale cannot leak
	// into the pro-rata split.
	if target.GT(yieldBag) {
		rate, err := shortfallRate(params.TargetRatio, juniorSupply, seniorSupply)
		if err != nil {
			return sdkmath.Int{}, err
		}
		clamped := rate.Quo(One).Mul(One)

		rateLogger.Debug().
			Str("branch", "shortfall").
			Str("yieldBag", yieldBag.String()).
			Str("yieldTarget", target.String()).
			Str("currentRate", currentRate.String()).
			Str("shortfallRate", rate.String()).
			Str("clampedRate", clamped.String()).
			Msg("Senior rate resolved on shortfall branch")

		return clamped, nil
	}

	// Branch 2: lookback window saturated, no catch-up owed.
	windowTarget := target.MulRaw(params.LookbackPeriod)
	if cumulativeYield.GTE(windowTarget) {
		rateLogger.Debug().
			Str("branch", "saturated").
			Str("cumulativeYield", cumulativeYield.String()).
			Str("windowTarget", windowTarget.String()).
			Str("currentRate", currentRate.String()).
			Str("rate", target.String()).
			Msg("Senior rate resolved on saturated branch")

		return target, nil
	}

	// Branch 3: catch-up. Unreachable with a zero yield bag while the
	// target is positive (branch 1 fires first), but the divisor is still
	// checked before use.
	if yieldBag.IsZero() {
		return sdkmath.Int{}, errors.Join(ErrZeroYieldBag, errors.New("cannot compute catch-up correction"))
	}
	divisor, err := shortfallRate(params.TargetRatio, juniorSupply, seniorSupply)
	if err != nil {
		return sdkmath.Int{}, err
	}
	lead := target.MulRaw(params.LookbackPeriod + 1)
	correction := cumulativeYield.Mul(divisor).Quo(yieldBag)
	if correction.GT(lead) {
		return sdkmath.Int{}, errors.Join(ErrRateUnderflow,
			fmt.Errorf("correction %s exceeds lead %s", correction, lead))
	}
	rate := lead.Sub(correction)

	rateLogger.Debug().
		Str("branch", "catch_up").
		Str("yieldBag", yieldBag.String()).
		Str("cumulativeYield", cumulativeYield.String()).
		Str("yieldTarget", target.String()).
		Str("lead", lead.String()).
		Str("correction", correction.String()).
		Str("currentRate", currentRate.String()).
		Str("rate", rate.String()).
		Msg("Senior rate resolved on catch-up branch")

	return rate, nil
}
