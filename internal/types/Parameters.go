/*

TrancheParameters is the versioned protocol-parameter document driving the rate
and incentive engine. Rows live in Postgres (one active version per strategy);
whoever computes loads a snapshot and passes it by value; there is no global
parameter singleton anywhere in the codebase.

*/

package types

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// ErrInvalidParameters wraps every parameter-document validation failure.
var ErrInvalidParameters = errors.New("invalid tranche parameters")

// TrancheParameters carries every tunable the allocator and distributor
// consume. One-scaled fields use the 10^18 unit; threshold and fee fields are
// plain basis points.
type TrancheParameters struct {
	// TargetRatio governs the junior:senior proportion in the yield split and
	// scales the per-epoch yield target. One-scaled (1.625 * One = 16250 bips).
	TargetRatio sdkmath.Int `json:"target_ratio"`

	// YieldDelta is the denominator scaling factor in the yield-target formula.
	// One-scaled; 4 * YieldDelta/One epochs make up a year of target yield.
	YieldDelta sdkmath.Int `json:"yield_delta"`

	// LookbackPeriod is the trailing epoch window the catch-up branch smooths
	// over.
	LookbackPeriod int64 `json:"lookback_period"`

	// MinIncentiveRate / MaxIncentiveRate bound the ZVE reward per standardized
	// deposit unit. One-scaled.
	MinIncentiveRate sdkmath.Int `json:"min_incentive_rate"`
	MaxIncentiveRate sdkmath.Int `json:"max_incentive_rate"`

	// LowerRatioThreshold / UpperRatioThreshold bound the incentive curve's
	// interpolation domain, in basis points of junior:senior ratio.
	LowerRatioThreshold int64 `json:"lower_ratio_threshold"`
	UpperRatioThreshold int64 `json:"upper_ratio_threshold"`

	// MaxTrancheRatioBips closes junior subscriptions once the junior tranche
	// would exceed this share of the senior tranche, in basis points.
	MaxTrancheRatioBips int64 `json:"max_tranche_ratio_bips"`

	// ProtocolFeeBips is skimmed off gross yield before the waterfall runs.
	ProtocolFeeBips int64 `json:"protocol_fee_bips"`

	// EmaPeriods smooths the analytics columns (supplies, yield). Never feeds
	// the rate formulas, which always use spot supplies.
	EmaPeriods int64 `json:"ema_periods"`

	// DepositsPaused gates incentive settlement and quotes without touching the
	// chain: observed deposits are recorded but settle to zero while paused.
	DepositsPaused bool `json:"deposits_paused"`
}

// Validate rejects parameter documents that would trip a divisor or bound
// check deeper in the engine. Persisting an invalid document is refused; so
// is running an epoch with one.
func (p TrancheParameters) Validate() error {
	for _, check := range []struct {
		name  string
		value sdkmath.Int
	}{
		{"target_ratio", p.TargetRatio},
		{"yield_delta", p.YieldDelta},
		{"min_incentive_rate", p.MinIncentiveRate},
		{"max_incentive_rate", p.MaxIncentiveRate},
	} {
		if check.value.IsNil() {
			return fmt.Errorf("%w: %s is nil", ErrInvalidParameters, check.name)
		}
		if check.value.IsNegative() {
			return fmt.Errorf("%w: %s is negative: %s", ErrInvalidParameters, check.name, check.value)
		}
	}
	if p.YieldDelta.IsZero() {
		return fmt.Errorf("%w: yield_delta is zero", ErrInvalidParameters)
	}
	if p.LookbackPeriod < 1 {
		return fmt.Errorf("%w: lookback_period %d is below 1", ErrInvalidParameters, p.LookbackPeriod)
	}
	if !p.MinIncentiveRate.LT(p.MaxIncentiveRate) {
		return fmt.Errorf("%w: min_incentive_rate %s is not below max_incentive_rate %s",
			ErrInvalidParameters, p.MinIncentiveRate, p.MaxIncentiveRate)
	}
	if p.LowerRatioThreshold < 0 {
		return fmt.Errorf("%w: lower_ratio_threshold %d is negative", ErrInvalidParameters, p.LowerRatioThreshold)
	}
	if p.UpperRatioThreshold <= p.LowerRatioThreshold {
		return fmt.Errorf("%w: upper_ratio_threshold %d is not above lower_ratio_threshold %d",
			ErrInvalidParameters, p.UpperRatioThreshold, p.LowerRatioThreshold)
	}
	if p.MaxTrancheRatioBips < 1 {
		return fmt.Errorf("%w: max_tranche_ratio_bips %d is below 1", ErrInvalidParameters, p.MaxTrancheRatioBips)
	}
	if p.ProtocolFeeBips < 0 || p.ProtocolFeeBips > 10_000 {
		return fmt.Errorf("%w: protocol_fee_bips %d is outside [0, 10000]", ErrInvalidParameters, p.ProtocolFeeBips)
	}
	if p.EmaPeriods < 1 {
		return fmt.Errorf("%w: ema_periods %d is below 1", ErrInvalidParameters, p.EmaPeriods)
	}
	return nil
}
