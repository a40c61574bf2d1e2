/*

Package allocator is the yield-allocation and incentive-rate engine. Every
function here is a pure computation over unsigned fixed-point integers: inputs
arrive as cosmossdk.io/math Ints, a single Int comes back, nothing is retained
between calls. Multiplication always runs at arbitrary precision before any
division so intermediate truncation can never corrupt a result, and every
divisor is validated before it is used.

*/

package allocator

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// One is the fixed-point unit scale: 10^18 base units represent one token, or
// a ratio of 100%.
var One = sdkmath.NewIntWithDecimal(1, 18)

// Bips is the basis-point scale used for ratio thresholds: 10_000 = 100%.
var Bips = sdkmath.NewInt(10_000)

// Shared error definitions for zero-tolerance input handling.
var (
	ErrNilInput         = errors.New("input value is nil")
	ErrNegativeInput    = errors.New("input value is negative")
	ErrZeroSeniorSupply = errors.New("senior supply is zero")
)

type namedInt struct {
	name  string
	value sdkmath.Int
}

// validateInputs rejects nil and negative values before any arithmetic runs.
// Fixed-point quantities in this package are unsigned by contract; a negative
// Int can only mean a caller bug.
func validateInputs(inputs ...namedInt) error {
	for _, in := range inputs {
		if in.value.IsNil() {
			return errors.Join(ErrNilInput, fmt.Errorf("%s is nil", in.name))
		}
		if in.value.IsNegative() {
			return errors.Join(ErrNegativeInput, fmt.Errorf("%s is negative: %s", in.name, in.value))
		}
	}
	return nil
}
