/*

This file computes the exponential moving average used by epoch analytics.

*/

package allocator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// ErrInvalidEmaPeriods indicates an EMA period count below one.
var ErrInvalidEmaPeriods = errors.New("ema periods must be positive")

// CalculateEMA folds the current observation into a running exponential
// moving average:
//
//	ema = (baseValue * (periods - 1) + currentValue) / periods
//
// With periods = 1 the result is currentValue. The average smooths supply and
// yield series for reporting; it never feeds rate computation.
func CalculateEMA(baseValue, currentValue sdkmath.Int, periods int64) (sdkmath.Int, error) {
	if err := validateInputs(
		namedInt{"baseValue", baseValue},
		namedInt{"currentValue", currentValue},
	); err != nil {
		return sdkmath.Int{}, err
	}
	if periods < 1 {
		return sdkmath.Int{}, errors.Join(ErrInvalidEmaPeriods, fmt.Errorf("got %d", periods))
	}
	return baseValue.MulRaw(periods - 1).Add(currentValue).QuoRaw(periods), nil
}
