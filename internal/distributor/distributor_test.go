package distributor

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zivoe/ztm/internal/types"
)

func mustInt(t *testing.T, s string) sdkmath.Int {
	t.Helper()
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		t.Fatalf("bad int literal %q", s)
	}
	return v
}

// tokens returns n whole tranche tokens at the 18-decimal scale.
func tokens(n int64) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(n, 18)
}

// usdc returns n whole USDC in 6-decimal native base units.
func usdc(n int64) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(n, 6)
}

func testAddr(t *testing.T, seed byte) string {
	t.Helper()
	bz := make([]byte, 20)
	for i := range bz {
		bz[i] = seed
	}
	addr, err := sdk.Bech32ifyAddressBytes("zivoe", bz)
	if err != nil {
		t.Fatalf("bech32ify: %v", err)
	}
	return addr
}

func testParams(t *testing.T) types.TrancheParameters {
	t.Helper()
	return types.TrancheParameters{
		TargetRatio:         mustInt(t, "1625000000000000000"),
		YieldDelta:          mustInt(t, "13000000000000000000"),
		LookbackPeriod:      13,
		MinIncentiveRate:    mustInt(t, "2500000000000000"),
		MaxIncentiveRate:    mustInt(t, "10000000000000000"),
		LowerRatioThreshold: 1000,
		UpperRatioThreshold: 2500,
		MaxTrancheRatioBips: 4500,
		ProtocolFeeBips:     2000,
		EmaPeriods:          4,
	}
}

func testInput(t *testing.T) PlanInput {
	t.Helper()
	return PlanInput{
		EpochNumber:     1,
		Params:          testParams(t),
		SeniorSupply:    tokens(8_000_000),
		JuniorSupply:    tokens(2_000_000),
		GrossYield:      usdc(500_000),
		CumulativeYield: sdkmath.ZeroInt(),
		PreviousRate:    sdkmath.ZeroInt(),
		Denom:           "uusdc",
		Decimals:        6,
		SeniorAddress:   testAddr(t, 0x0A),
		JuniorAddress:   testAddr(t, 0x0B),
		Recipients: types.RecipientSet{
			Protocol: []types.Recipient{
				{Name: "insurance-fund", Address: testAddr(t, 0x01), ShareBips: 6000},
				{Name: "dao-treasury", Address: testAddr(t, 0x02), ShareBips: 4000},
			},
			Residual: []types.Recipient{
				{Name: "zve-stakers", Address: testAddr(t, 0x03), ShareBips: 7000},
				{Name: "treasury", Address: testAddr(t, 0x04), ShareBips: 3000},
			},
		},
	}
}

func legTotal(legs []types.PayoutLeg) sdkmath.Int {
	sum := sdkmath.ZeroInt()
	for _, leg := range legs {
		sum = sum.Add(leg.Amount)
	}
	return sum
}

func legByPurpose(t *testing.T, legs []types.PayoutLeg, purpose types.PayoutPurpose) types.PayoutLeg {
	t.Helper()
	var found *types.PayoutLeg
	for i := range legs {
		if legs[i].Purpose == purpose {
			if found != nil {
				t.Fatalf("multiple %s legs", purpose)
			}
			found = &legs[i]
		}
	}
	if found == nil {
		t.Fatalf("no %s leg", purpose)
	}
	return *found
}

// Shortfall epoch with equal supplies: the pro-rata divisor clamps to 2*One,
// so senior and junior split the bag evenly and nothing is left over.
func TestBuildPayoutPlanShortfall(t *testing.T) {
	in := testInput(t)
	in.JuniorSupply = tokens(8_000_000) // target 5e23 dwarfs the 8e22 bag
	in.GrossYield = usdc(100_000)

	plan, err := BuildPayoutPlan(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Branch != types.BranchShortfall {
		t.Fatalf("branch = %s, want %s", plan.Branch, types.BranchShortfall)
	}
	if want := tokens(2); !plan.SeniorRate.Equal(want) {
		t.Fatalf("senior rate = %s, want clamped %s", plan.SeniorRate, want)
	}

	senior := legByPurpose(t, plan.Legs, types.PayoutSeniorYield)
	junior := legByPurpose(t, plan.Legs, types.PayoutJuniorYield)
	if want := usdc(40_000); !senior.Amount.Equal(want) {
		t.Fatalf("senior leg = %s, want %s", senior.Amount, want)
	}
	if want := usdc(40_000); !junior.Amount.Equal(want) {
		t.Fatalf("junior leg = %s, want %s", junior.Amount, want)
	}
	if !plan.Residual.IsZero() {
		t.Fatalf("residual = %s, want 0", plan.Residual)
	}
	if !legTotal(plan.Legs).Equal(in.GrossYield) {
		t.Fatalf("legs sum to %s, want %s", legTotal(plan.Legs), in.GrossYield)
	}

	// Standardized summary mirrors the native payments exactly.
	if want := tokens(80_000); !plan.YieldBag.Equal(want) {
		t.Fatalf("yield bag = %s, want %s", plan.YieldBag, want)
	}
	if want := tokens(40_000); !plan.SeniorOwed.Equal(want) {
		t.Fatalf("senior owed = %s, want %s", plan.SeniorOwed, want)
	}
}

// Saturated epoch: the window already met target, the senior tranche takes the
// plain per-epoch target, the junior tranche its proportional rate, and the
// leftover routes to the residual recipients by share.
func TestBuildPayoutPlanSaturated(t *testing.T) {
	in := testInput(t)
	in.GrossYield = usdc(750_000)
	in.CumulativeYield = tokens(5_000_000) // above the 4.0625e24 window target

	plan, err := BuildPayoutPlan(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Branch != types.BranchSaturated {
		t.Fatalf("branch = %s, want %s", plan.Branch, types.BranchSaturated)
	}
	if want := tokens(312_500); !plan.SeniorRate.Equal(want) {
		t.Fatalf("senior rate = %s, want target %s", plan.SeniorRate, want)
	}

	senior := legByPurpose(t, plan.Legs, types.PayoutSeniorYield)
	if want := usdc(312_500); !senior.Amount.Equal(want) {
		t.Fatalf("senior leg = %s, want %s", senior.Amount, want)
	}

	// juniorRate = 1.625 * 2e24 * 3.125e23 / 8e24 / One = 1.26953125e23
	junior := legByPurpose(t, plan.Legs, types.PayoutJuniorYield)
	if want := mustInt(t, "126953125000"); !junior.Amount.Equal(want) {
		t.Fatalf("junior leg = %s, want %s", junior.Amount, want)
	}

	// residual = 600000e6 - 312500e6 - 126953.125e6, split 70/30
	var residualLegs []types.PayoutLeg
	for _, leg := range plan.Legs {
		if leg.Purpose == types.PayoutResidual {
			residualLegs = append(residualLegs, leg)
		}
	}
	if len(residualLegs) != 2 {
		t.Fatalf("residual legs = %d, want 2", len(residualLegs))
	}
	if want := mustInt(t, "112382812500"); !residualLegs[0].Amount.Equal(want) {
		t.Fatalf("residual[0] = %s, want %s", residualLegs[0].Amount, want)
	}
	if want := mustInt(t, "48164062500"); !residualLegs[1].Amount.Equal(want) {
		t.Fatalf("residual[1] = %s, want %s", residualLegs[1].Amount, want)
	}

	if !legTotal(plan.Legs).Equal(in.GrossYield) {
		t.Fatalf("legs sum to %s, want %s", legTotal(plan.Legs), in.GrossYield)
	}
}

// Catch-up epoch where the raised rate exceeds the bag: the senior tranche
// absorbs the whole bag and the junior tranche waits for a richer epoch.
func TestBuildPayoutPlanCatchUpClamped(t *testing.T) {
	in := testInput(t)
	in.GrossYield = usdc(500_000)
	in.CumulativeYield = tokens(2_000_000) // behind the window target

	plan, err := BuildPayoutPlan(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Branch != types.BranchCatchUp {
		t.Fatalf("branch = %s, want %s", plan.Branch, types.BranchCatchUp)
	}

	// lead = 14 * 3.125e23; correction = 2e24 * 1.40625e18 / 4e23
	if want := mustInt(t, "4374992968750000000000000"); !plan.SeniorRate.Equal(want) {
		t.Fatalf("senior rate = %s, want %s", plan.SeniorRate, want)
	}

	senior := legByPurpose(t, plan.Legs, types.PayoutSeniorYield)
	if want := usdc(400_000); !senior.Amount.Equal(want) {
		t.Fatalf("senior leg = %s, want whole bag %s", senior.Amount, want)
	}
	for _, leg := range plan.Legs {
		if leg.Purpose == types.PayoutJuniorYield || leg.Purpose == types.PayoutResidual {
			t.Fatalf("unexpected %s leg for %s", leg.Purpose, leg.Amount)
		}
	}
	if !legTotal(plan.Legs).Equal(in.GrossYield) {
		t.Fatalf("legs sum to %s, want %s", legTotal(plan.Legs), in.GrossYield)
	}
}

// An indivisible gross still balances to the base unit: floor-division dust
// from the fee split lands on the first protocol recipient.
func TestBuildPayoutPlanOddGrossBalancesExactly(t *testing.T) {
	in := testInput(t)
	in.GrossYield = mustInt(t, "999999999999")
	in.CumulativeYield = tokens(5_000_000) // saturated

	plan, err := BuildPayoutPlan(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var feeLegs []types.PayoutLeg
	for _, leg := range plan.Legs {
		if leg.Purpose == types.PayoutProtocolFee {
			feeLegs = append(feeLegs, leg)
		}
	}
	if len(feeLegs) != 2 {
		t.Fatalf("fee legs = %d, want 2", len(feeLegs))
	}
	// fee = 199999999999; 60% floors to 119999999999, 40% to 79999999999,
	// and the single dropped unit tops up the first leg.
	if want := mustInt(t, "120000000000"); !feeLegs[0].Amount.Equal(want) {
		t.Fatalf("fee[0] = %s, want %s", feeLegs[0].Amount, want)
	}
	if want := mustInt(t, "79999999999"); !feeLegs[1].Amount.Equal(want) {
		t.Fatalf("fee[1] = %s, want %s", feeLegs[1].Amount, want)
	}

	if !legTotal(plan.Legs).Equal(in.GrossYield) {
		t.Fatalf("legs sum to %s, want %s", legTotal(plan.Legs), in.GrossYield)
	}
}

func TestBuildPayoutPlanZeroGross(t *testing.T) {
	in := testInput(t)
	in.GrossYield = sdkmath.ZeroInt()

	_, err := BuildPayoutPlan(in)
	if !errors.Is(err, ErrNothingToDistribute) {
		t.Fatalf("expected ErrNothingToDistribute, got %v", err)
	}
}

func TestBuildPayoutPlanRejectsZeroSeniorSupply(t *testing.T) {
	in := testInput(t)
	in.SeniorSupply = sdkmath.ZeroInt()

	_, err := BuildPayoutPlan(in)
	if !errors.Is(err, ErrInvalidPlanInput) {
		t.Fatalf("expected ErrInvalidPlanInput, got %v", err)
	}
}

func TestBuildPayoutPlanRejectsBadRecipients(t *testing.T) {
	in := testInput(t)
	in.Recipients.Protocol[0].ShareBips = 5999 // shares no longer sum to 10000

	_, err := BuildPayoutPlan(in)
	if !errors.Is(err, ErrInvalidPlanInput) {
		t.Fatalf("expected ErrInvalidPlanInput, got %v", err)
	}
}

func TestResolveBranchOrder(t *testing.T) {
	target := tokens(100)

	if b := resolveBranch(target, tokens(99), tokens(10_000), 13); b != types.BranchShortfall {
		t.Fatalf("got %s, want shortfall", b)
	}
	// Shortfall wins even when the window is saturated.
	if b := resolveBranch(target, tokens(99), tokens(1_300), 13); b != types.BranchShortfall {
		t.Fatalf("got %s, want shortfall", b)
	}
	if b := resolveBranch(target, tokens(100), tokens(1_300), 13); b != types.BranchSaturated {
		t.Fatalf("got %s, want saturated", b)
	}
	if b := resolveBranch(target, tokens(100), tokens(1_299), 13); b != types.BranchCatchUp {
		t.Fatalf("got %s, want catch-up", b)
	}
}

func TestSplitBySharesDust(t *testing.T) {
	recipients := []types.Recipient{
		{Name: "a", Address: "zivoe1a", ShareBips: 6000},
		{Name: "b", Address: "zivoe1b", ShareBips: 4000},
	}

	legs := splitByShares(sdkmath.NewInt(21), recipients, types.PayoutProtocolFee, "uusdc")
	if len(legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(legs))
	}
	if !legs[0].Amount.Equal(sdkmath.NewInt(13)) || !legs[1].Amount.Equal(sdkmath.NewInt(8)) {
		t.Fatalf("split = %s/%s, want 13/8", legs[0].Amount, legs[1].Amount)
	}

	// A total too small to split lands entirely on the first recipient; the
	// zeroed second leg is dropped.
	legs = splitByShares(sdkmath.NewInt(1), recipients, types.PayoutProtocolFee, "uusdc")
	if len(legs) != 1 {
		t.Fatalf("legs = %d, want 1", len(legs))
	}
	if !legs[0].Amount.Equal(sdkmath.NewInt(1)) || legs[0].Name != "a" {
		t.Fatalf("dust leg = %s to %s, want 1 to a", legs[0].Amount, legs[0].Name)
	}

	if legs := splitByShares(sdkmath.ZeroInt(), recipients, types.PayoutResidual, "uusdc"); legs != nil {
		t.Fatalf("zero total produced %d legs", len(legs))
	}
}
