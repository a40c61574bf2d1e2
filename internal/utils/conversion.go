/*
This file contains conversion helpers for moving amounts between a denom's
native decimal scale and the 18-decimal standardized scale all tranche math
runs on, plus display conversions for the web layer.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// standardDecimals is the scale every amount is normalized to before any
// rate or incentive computation touches it.
const standardDecimals = 18

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidDecimals  = errors.New("decimals is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

func validateAmount(amount sdkmath.Int, decimals int64) error {
	if decimals < 0 || decimals > standardDecimals {
		return fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDecimals, decimals, standardDecimals)
	}
	if amount.IsNil() {
		return ErrAmountNil
	}
	if amount.IsNegative() {
		return ErrAmountNegative
	}
	return nil
}

// StandardizeAmount scales an amount from its denom's native decimals up to
// the 18-decimal standardized scale. The multiplication is exact; no
// precision is lost in this direction.
func StandardizeAmount(amount sdkmath.Int, decimals int64) (sdkmath.Int, error) {
	if err := validateAmount(amount, decimals); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return amount.Mul(sdkmath.NewIntWithDecimal(1, standardDecimals-int(decimals))), nil
}

// NativeAmount scales a standardized amount back down to a denom's native
// decimals, truncating anything below the denom's smallest unit. Sub-unit
// dust stays behind in the paying account and is swept into the next epoch's
// balance read.
func NativeAmount(amount sdkmath.Int, decimals int64) (sdkmath.Int, error) {
	if err := validateAmount(amount, decimals); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return amount.Quo(sdkmath.NewIntWithDecimal(1, standardDecimals-int(decimals))), nil
}

// DisplayAmount converts a base-unit amount to float64 for human-facing
// output. Never feed the result back into tranche math.
func DisplayAmount(amount sdkmath.Int, decimals int64) (float64, error) {
	if err := validateAmount(amount, decimals); err != nil {
		return 0, err
	}

	decAmount := sdkmath.LegacyNewDecFromInt(amount)
	factor := sdkmath.LegacyNewDecFromInt(sdkmath.NewIntWithDecimal(1, int(decimals)))

	result, err := decAmount.Quo(factor).Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}
	return result, nil
}

// ParseAmount converts a decimal string (e.g. "1250.5") to base units of a
// denom with the given decimals, truncating digits beyond the denom's
// precision. String parsing keeps user-supplied amounts exact; float64 never
// enters the path.
func ParseAmount(s string, decimals int64) (sdkmath.Int, error) {
	if decimals < 0 || decimals > standardDecimals {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDecimals, decimals, standardDecimals)
	}

	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if dec.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}

	factor := sdkmath.LegacyNewDecFromInt(sdkmath.NewIntWithDecimal(1, int(decimals)))
	return dec.Mul(factor).TruncateInt(), nil
}
