/*

This file derives the junior tranche's rate from the resolved senior rate.

*/

package allocator

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/logger"
)

var juniorLogger = logger.GetForComponent("junior_rate")

// CalculateJuniorRate derives the junior rate as a supply-weighted fraction
// of the senior rate:
//
//	juniorRate = targetRatio * juniorSupply * seniorRate / seniorSupply / One
//
// All multiplications run before either division. Fails when seniorSupply is
// zero.
func CalculateJuniorRate(targetRatio, seniorRate, juniorSupply, seniorSupply sdkmath.Int) (sdkmath.Int, error) {
	if err := validateInputs(
		namedInt{"targetRatio", targetRatio},
		namedInt{"seniorRate", seniorRate},
		namedInt{"juniorSupply", juniorSupply},
		namedInt{"seniorSupply", seniorSupply},
	); err != nil {
		return sdkmath.Int{}, err
	}
	if seniorSupply.IsZero() {
		return sdkmath.Int{}, errors.Join(ErrZeroSeniorSupply, errors.New("cannot derive junior rate"))
	}

	rate := targetRatio.Mul(juniorSupply).Mul(seniorRate).Quo(seniorSupply).Quo(One)

	juniorLogger.Debug().
		Str("targetRatio", targetRatio.String()).
		Str("seniorRate", seniorRate.String()).
		Str("juniorSupply", juniorSupply.String()).
		Str("seniorSupply", seniorSupply.String()).
		Str("juniorRate", rate.String()).
		Msg("Derived junior rate from senior rate")

	return rate, nil
}
