/*

This file computes the per-epoch yield target: the amount of yield the senior
tranche is owed for one distribution period at the configured target ratio.

*/

package allocator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/logger"
)

var targetLogger = logger.GetForComponent("yield_target")

// ErrZeroYieldDelta indicates a yield delta of zero, which would make the
// per-epoch annualization divisor zero.
var ErrZeroYieldDelta = errors.New("yield delta is zero")

// CalculateYieldTarget computes the senior yield owed for a single epoch.
//
// The target ratio is an annualized rate over the combined tranche supply.
// One quarter of a year is yieldDelta epochs, so a full year is 4*yieldDelta
// and the per-epoch amount is:
//
//	target = targetRatio * (seniorSupply + juniorSupply) / (4 * yieldDelta)
//
// Inputs:
// - seniorSupply: current senior tranche token supply (18-decimal base units)
// - juniorSupply: current junior tranche token supply (18-decimal base units)
// - targetRatio: annualized target rate, scaled by One
// - yieldDelta: epochs per quarter, scaled by One
//
// Output: the yield target for one epoch in 18-decimal base units.
func CalculateYieldTarget(seniorSupply, juniorSupply, targetRatio, yieldDelta sdkmath.Int) (sdkmath.Int, error) {
	if err := validateInputs(
		namedInt{"seniorSupply", seniorSupply},
		namedInt{"juniorSupply", juniorSupply},
		namedInt{"targetRatio", targetRatio},
		namedInt{"yieldDelta", yieldDelta},
	); err != nil {
		return sdkmath.Int{}, err
	}
	if yieldDelta.IsZero() {
		return sdkmath.Int{}, errors.Join(ErrZeroYieldDelta, fmt.Errorf("cannot annualize over %s epochs", yieldDelta))
	}

	combinedSupply := seniorSupply.Add(juniorSupply)
	target := targetRatio.Mul(combinedSupply).Quo(yieldDelta.MulRaw(4))

	targetLogger.Debug().
		Str("seniorSupply", seniorSupply.String()).
		Str("juniorSupply", juniorSupply.String()).
		Str("targetRatio", targetRatio.String()).
		Str("yieldDelta", yieldDelta.String()).
		Str("yieldTarget", target.String()).
		Msg("Calculated epoch yield target")

	return target, nil
}
