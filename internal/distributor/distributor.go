/*

The distributor turns one epoch's resolved rates into a concrete payout plan:
the protocol fee is skimmed off gross yield, the senior tranche is paid first,
the junior tranche second, and whatever remains is routed to the residual
recipients. All engine math runs at the 18-decimal standardized scale; leg
amounts are converted to the yield denom's native units at the very end, with
the residual absorbing conversion rounding so the legs always sum to the
native gross exactly.

*/

package distributor

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/allocator"
	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/types"
	"github.com/zivoe/ztm/internal/utils"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPlanInput    = errors.New("plan input is invalid")
	ErrNothingToDistribute = errors.New("no yield to distribute")
	ErrPlanImbalance       = errors.New("payout legs do not sum to the gross yield")
)

var planLogger = logger.GetForComponent("distributor")

// PlanInput carries everything one epoch's waterfall needs. Supplies and
// CumulativeYield arrive standardized (18-decimal); GrossYield arrives in the
// yield denom's native base units, exactly as the balance query returned it.
type PlanInput struct {
	EpochNumber int64
	Params      types.TrancheParameters
	Recipients  types.RecipientSet

	SeniorSupply sdkmath.Int
	JuniorSupply sdkmath.Int

	GrossYield      sdkmath.Int // native base units of Denom
	CumulativeYield sdkmath.Int // standardized trailing lookback sum
	PreviousRate    sdkmath.Int // previous epoch's senior rate, zero on the first epoch

	Denom    string
	Decimals int64

	SeniorAddress string // receives the senior yield leg
	JuniorAddress string // receives the junior yield leg
}

func (in PlanInput) validate() error {
	if in.EpochNumber < 1 {
		return fmt.Errorf("%w: epoch number %d is below 1", ErrInvalidPlanInput, in.EpochNumber)
	}
	if err := in.Params.Validate(); err != nil {
		return errors.Join(ErrInvalidPlanInput, err)
	}
	if err := config.ValidateRecipients(in.Recipients); err != nil {
		return errors.Join(ErrInvalidPlanInput, err)
	}

	for _, check := range []struct {
		name  string
		value sdkmath.Int
	}{
		{"senior supply", in.SeniorSupply},
		{"junior supply", in.JuniorSupply},
		{"gross yield", in.GrossYield},
		{"cumulative yield", in.CumulativeYield},
		{"previous rate", in.PreviousRate},
	} {
		if check.value.IsNil() {
			return fmt.Errorf("%w: %s is nil", ErrInvalidPlanInput, check.name)
		}
		if check.value.IsNegative() {
			return fmt.Errorf("%w: %s is negative: %s", ErrInvalidPlanInput, check.name, check.value)
		}
	}

	if in.SeniorSupply.IsZero() {
		return fmt.Errorf("%w: senior supply is zero, no tranche to distribute to", ErrInvalidPlanInput)
	}
	if in.Denom == "" {
		return fmt.Errorf("%w: yield denom is empty", ErrInvalidPlanInput)
	}
	if in.Decimals < 0 || in.Decimals > 18 {
		return fmt.Errorf("%w: decimals %d outside [0, 18]", ErrInvalidPlanInput, in.Decimals)
	}
	if in.SeniorAddress == "" {
		return fmt.Errorf("%w: senior rewards address is empty", ErrInvalidPlanInput)
	}
	if in.JuniorAddress == "" {
		return fmt.Errorf("%w: junior rewards address is empty", ErrInvalidPlanInput)
	}
	return nil
}

// BuildPayoutPlan runs the full distribution waterfall for one epoch.
//
// Order of operations: skim the protocol fee off gross yield, resolve the
// senior rate through the three-branch policy, pay the senior tranche, pay
// the junior tranche out of what remains, route the rest to the residual
// recipients. The plan's summary fields are standardized; its legs are native
// and sum to the native gross exactly.
func BuildPayoutPlan(in PlanInput) (types.PayoutPlan, error) {
	if err := in.validate(); err != nil {
		planLogger.Error().Err(err).Msg("BuildPayoutPlan: Input validation failed")
		return types.PayoutPlan{}, err
	}

	if in.GrossYield.IsZero() {
		return types.PayoutPlan{}, ErrNothingToDistribute
	}

	// ===== FEE SKIM =====
	// The fee is taken in native units so the bag handed to the tranches is
	// exactly what the chain can pay.
	feeNative := in.GrossYield.MulRaw(in.Params.ProtocolFeeBips).QuoRaw(10_000)
	bagNative := in.GrossYield.Sub(feeNative)

	bagStd, err := utils.StandardizeAmount(bagNative, in.Decimals)
	if err != nil {
		return types.PayoutPlan{}, fmt.Errorf("failed to standardize yield bag: %w", err)
	}

	// ===== RATE RESOLUTION =====
	target, err := allocator.CalculateYieldTarget(in.SeniorSupply, in.JuniorSupply, in.Params.TargetRatio, in.Params.YieldDelta)
	if err != nil {
		return types.PayoutPlan{}, fmt.Errorf("failed to compute yield target: %w", err)
	}

	seniorRate, err := allocator.CalculateSeniorRate(bagStd, in.CumulativeYield, in.PreviousRate, in.SeniorSupply, in.JuniorSupply, in.Params)
	if err != nil {
		return types.PayoutPlan{}, fmt.Errorf("failed to resolve senior rate: %w", err)
	}

	branch := resolveBranch(target, bagStd, in.CumulativeYield, in.Params.LookbackPeriod)

	// ===== TRANCHE SPLIT =====
	var seniorOwedStd, juniorOwedStd, juniorRate sdkmath.Int
	switch branch {
	case types.BranchShortfall:
		// The rate is a pro-rata divisor here; the junior tranche takes the
		// complement and nothing is left over.
		seniorOwedStd = bagStd.Mul(allocator.One).Quo(seniorRate)
		juniorOwedStd = bagStd.Sub(seniorOwedStd)
		juniorRate = juniorOwedStd
	default:
		seniorOwedStd = sdkmath.MinInt(seniorRate, bagStd)
		juniorRate, err = allocator.CalculateJuniorRate(in.Params.TargetRatio, seniorRate, in.JuniorSupply, in.SeniorSupply)
		if err != nil {
			return types.PayoutPlan{}, fmt.Errorf("failed to compute junior rate: %w", err)
		}
		juniorOwedStd = sdkmath.MinInt(juniorRate, bagStd.Sub(seniorOwedStd))
	}

	// ===== NATIVE CONVERSION =====
	// Standardized owed amounts floor down to native units; the residual picks
	// up whatever the floors dropped, keeping the native waterfall exact.
	seniorNative, err := utils.NativeAmount(seniorOwedStd, in.Decimals)
	if err != nil {
		return types.PayoutPlan{}, fmt.Errorf("failed to convert senior share: %w", err)
	}
	var juniorNative sdkmath.Int
	if branch == types.BranchShortfall {
		// The junior leg takes the exact native complement so a shortfall
		// epoch never leaves conversion dust in the residual.
		juniorNative = bagNative.Sub(seniorNative)
	} else {
		juniorNative, err = utils.NativeAmount(juniorOwedStd, in.Decimals)
		if err != nil {
			return types.PayoutPlan{}, fmt.Errorf("failed to convert junior share: %w", err)
		}
	}
	residualNative := bagNative.Sub(seniorNative).Sub(juniorNative)
	if residualNative.IsNegative() {
		return types.PayoutPlan{}, fmt.Errorf("%w: residual %s went negative", ErrPlanImbalance, residualNative)
	}

	// ===== LEG CONSTRUCTION =====
	legs := make([]types.PayoutLeg, 0, 4+len(in.Recipients.Protocol)+len(in.Recipients.Residual))
	legs = append(legs, splitByShares(feeNative, in.Recipients.Protocol, types.PayoutProtocolFee, in.Denom)...)
	if seniorNative.IsPositive() {
		legs = append(legs, types.PayoutLeg{
			Purpose:   types.PayoutSeniorYield,
			Recipient: in.SeniorAddress,
			Denom:     in.Denom,
			Amount:    seniorNative,
		})
	}
	if juniorNative.IsPositive() {
		legs = append(legs, types.PayoutLeg{
			Purpose:   types.PayoutJuniorYield,
			Recipient: in.JuniorAddress,
			Denom:     in.Denom,
			Amount:    juniorNative,
		})
	}
	legs = append(legs, splitByShares(residualNative, in.Recipients.Residual, types.PayoutResidual, in.Denom)...)

	if err := verifyLegBalance(legs, in.GrossYield); err != nil {
		return types.PayoutPlan{}, err
	}

	plan := types.PayoutPlan{
		EpochNumber: in.EpochNumber,
		Branch:      branch,
		YieldTarget: target,
		SeniorRate:  seniorRate,
		JuniorRate:  juniorRate,
		GrossYield:  mustStandardize(in.GrossYield, in.Decimals),
		ProtocolFee: mustStandardize(feeNative, in.Decimals),
		YieldBag:    mustStandardize(bagNative, in.Decimals),
		SeniorOwed:  mustStandardize(seniorNative, in.Decimals),
		JuniorOwed:  mustStandardize(juniorNative, in.Decimals),
		Residual:    mustStandardize(residualNative, in.Decimals),
		Legs:        legs,
	}

	planLogger.Info().
		Int64("epoch", in.EpochNumber).
		Str("branch", string(branch)).
		Str("grossYield", in.GrossYield.String()).
		Str("protocolFee", feeNative.String()).
		Str("seniorOwed", seniorNative.String()).
		Str("juniorOwed", juniorNative.String()).
		Str("residual", residualNative.String()).
		Int("legCount", len(legs)).
		Msg("BuildPayoutPlan: Distribution waterfall resolved")

	return plan, nil
}

// resolveBranch labels the policy branch the senior rate resolved through,
// re-evaluating the same conditions in the same order the allocator does.
func resolveBranch(target, yieldBag, cumulativeYield sdkmath.Int, lookbackPeriod int64) types.DistributionBranch {
	if target.GT(yieldBag) {
		return types.BranchShortfall
	}
	if cumulativeYield.GTE(target.MulRaw(lookbackPeriod)) {
		return types.BranchSaturated
	}
	return types.BranchCatchUp
}

// splitByShares divides a native amount across a recipient list by basis
// points. Floor division leaves a remainder of at most len(recipients)-1 base
// units; the first recipient absorbs it so the split is exact. Zero legs are
// dropped.
func splitByShares(total sdkmath.Int, recipients []types.Recipient, purpose types.PayoutPurpose, denom string) []types.PayoutLeg {
	if !total.IsPositive() {
		return nil
	}

	legs := make([]types.PayoutLeg, 0, len(recipients))
	assigned := sdkmath.ZeroInt()
	for _, r := range recipients {
		amount := total.MulRaw(r.ShareBips).QuoRaw(10_000)
		assigned = assigned.Add(amount)
		legs = append(legs, types.PayoutLeg{
			Purpose:   purpose,
			Name:      r.Name,
			Recipient: r.Address,
			Denom:     denom,
			Amount:    amount,
		})
	}

	if dust := total.Sub(assigned); dust.IsPositive() {
		legs[0].Amount = legs[0].Amount.Add(dust)
	}

	kept := legs[:0]
	for _, leg := range legs {
		if leg.Amount.IsPositive() {
			kept = append(kept, leg)
		}
	}
	return kept
}

// verifyLegBalance is the final internal consistency check: every native base
// unit of gross yield must appear in exactly one leg.
func verifyLegBalance(legs []types.PayoutLeg, grossNative sdkmath.Int) error {
	sum := sdkmath.ZeroInt()
	for _, leg := range legs {
		sum = sum.Add(leg.Amount)
	}
	if !sum.Equal(grossNative) {
		return fmt.Errorf("%w: legs sum to %s, gross is %s", ErrPlanImbalance, sum, grossNative)
	}
	return nil
}

// mustStandardize converts a native amount the waterfall already validated.
// Standardizing multiplies by a power of ten and cannot fail on a
// non-negative amount with checked decimals.
func mustStandardize(amount sdkmath.Int, decimals int64) sdkmath.Int {
	std, err := utils.StandardizeAmount(amount, decimals)
	if err != nil {
		planLogger.Error().Err(err).Str("amount", amount.String()).Msg("Standardization failed after validation")
		return sdkmath.ZeroInt()
	}
	return std
}
