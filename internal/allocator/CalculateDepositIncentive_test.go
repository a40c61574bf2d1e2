package allocator

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/types"
)

func TestCalculateDepositIncentiveJuniorClampsAtMaxRate(t *testing.T) {
	// Junior badly undersized: avg ratio ~105 bips, below the lower
	// threshold, so the deposit earns exactly the max rate.
	reward, err := CalculateDepositIncentive(types.TrancheJunior, tokens(100), tokens(100_000), tokens(1_000), tokens(1_000), testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reward.Equal(One) {
		t.Fatalf("reward = %s, want %s", reward, One)
	}
}

func TestCalculateDepositIncentiveJuniorClampsAtMinRate(t *testing.T) {
	// Junior oversized: avg ratio ~3050 bips, above the upper threshold.
	reward, err := CalculateDepositIncentive(types.TrancheJunior, tokens(1_000), tokens(100_000), tokens(30_000), tokens(1_000), testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := tokens(25).QuoRaw(10); !reward.Equal(want) {
		t.Fatalf("reward = %s, want %s", reward, want)
	}
}

func TestCalculateDepositIncentiveSeniorCurveIsInverted(t *testing.T) {
	params := testParams()

	// Low ratio pays a senior deposit the min rate.
	low, err := CalculateDepositIncentive(types.TrancheSenior, tokens(1_000), tokens(100_000), tokens(1_000), tokens(1_000), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := tokens(25).QuoRaw(10); !low.Equal(want) {
		t.Fatalf("low-ratio senior reward = %s, want %s", low, want)
	}

	// High ratio pays a senior deposit the max rate.
	high, err := CalculateDepositIncentive(types.TrancheSenior, tokens(1_000), tokens(100_000), tokens(30_000), tokens(1_000), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := tokens(10); !high.Equal(want) {
		t.Fatalf("high-ratio senior reward = %s, want %s", high, want)
	}
}

func TestCalculateDepositIncentiveInterpolatesAtMidpoint(t *testing.T) {
	// Start ratio 1700, final ratio 1800, avg 1750: the exact midpoint of
	// the 1000..2500 band, so the rate is (min + max) / 2.
	reward, err := CalculateDepositIncentive(types.TrancheJunior, tokens(1_000), tokens(100_000), tokens(17_000), tokens(1_000), testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := tokens(625).QuoRaw(100); !reward.Equal(want) {
		t.Fatalf("reward = %s, want %s", reward, want)
	}
}

func TestIncentiveRateAtCurve(t *testing.T) {
	params := testParams()
	bp := func(n int64) sdkmath.Int { return One.MulRaw(n).QuoRaw(100_000) }

	cases := []struct {
		avgRatio int64
		junior   sdkmath.Int
		senior   sdkmath.Int
	}{
		{500, bp(1_000), bp(250)},
		{1_000, bp(1_000), bp(250)},
		{1_300, bp(850), bp(400)},
		{1_750, bp(625), bp(625)},
		{2_500, bp(250), bp(1_000)},
		{3_000, bp(250), bp(1_000)},
	}
	for _, tc := range cases {
		junior, err := incentiveRateAt(types.TrancheJunior, sdkmath.NewInt(tc.avgRatio), params)
		if err != nil {
			t.Fatalf("unexpected error at ratio %d: %v", tc.avgRatio, err)
		}
		if !junior.Equal(tc.junior) {
			t.Fatalf("junior rate at ratio %d = %s, want %s", tc.avgRatio, junior, tc.junior)
		}
		senior, err := incentiveRateAt(types.TrancheSenior, sdkmath.NewInt(tc.avgRatio), params)
		if err != nil {
			t.Fatalf("unexpected error at ratio %d: %v", tc.avgRatio, err)
		}
		if !senior.Equal(tc.senior) {
			t.Fatalf("senior rate at ratio %d = %s, want %s", tc.avgRatio, senior, tc.senior)
		}
	}
}

func TestCalculateDepositIncentiveZeroBalanceAlwaysZero(t *testing.T) {
	for _, side := range []types.TrancheSide{types.TrancheJunior, types.TrancheSenior} {
		reward, err := CalculateDepositIncentive(side, tokens(1_000), tokens(100_000), tokens(1_000), sdkmath.ZeroInt(), testParams())
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", side, err)
		}
		if !reward.IsZero() {
			t.Fatalf("reward for %s = %s, want 0", side, reward)
		}
	}
}

func TestCalculateDepositIncentiveCapsAtAvailableBalance(t *testing.T) {
	// The uncapped reward is 2.5 tokens; only one is available.
	reward, err := CalculateDepositIncentive(types.TrancheJunior, tokens(1_000), tokens(100_000), tokens(30_000), One, testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reward.Equal(One) {
		t.Fatalf("reward = %s, want %s", reward, One)
	}
}

func TestCalculateDepositIncentiveValidatesBeforeBalanceShortcut(t *testing.T) {
	// A zero senior supply is an error even when the available balance
	// would already force a zero reward.
	_, err := CalculateDepositIncentive(types.TrancheJunior, tokens(100), sdkmath.ZeroInt(), tokens(1_000), sdkmath.ZeroInt(), testParams())
	if !errors.Is(err, ErrZeroSeniorSupply) {
		t.Fatalf("expected ErrZeroSeniorSupply, got %v", err)
	}
}

func TestCalculateDepositIncentiveRejectsInvertedRateBounds(t *testing.T) {
	params := testParams()
	params.MinIncentiveRate, params.MaxIncentiveRate = params.MaxIncentiveRate, params.MinIncentiveRate

	_, err := CalculateDepositIncentive(types.TrancheJunior, tokens(100), tokens(100_000), tokens(1_000), tokens(1_000), params)
	if !errors.Is(err, ErrRateBoundsInverted) {
		t.Fatalf("expected ErrRateBoundsInverted, got %v", err)
	}
}

func TestCalculateDepositIncentiveRejectsInvertedThresholds(t *testing.T) {
	params := testParams()
	params.LowerRatioThreshold, params.UpperRatioThreshold = 2_500, 1_000

	_, err := CalculateDepositIncentive(types.TrancheJunior, tokens(100), tokens(100_000), tokens(1_000), tokens(1_000), params)
	if !errors.Is(err, ErrThresholdsInverted) {
		t.Fatalf("expected ErrThresholdsInverted, got %v", err)
	}
}

func TestCalculateDepositIncentiveRejectsNegativeThreshold(t *testing.T) {
	params := testParams()
	params.LowerRatioThreshold = -1

	_, err := CalculateDepositIncentive(types.TrancheJunior, tokens(100), tokens(100_000), tokens(1_000), tokens(1_000), params)
	if !errors.Is(err, ErrNegativeThreshold) {
		t.Fatalf("expected ErrNegativeThreshold, got %v", err)
	}
}

func TestCalculateDepositIncentiveRejectsUnknownSide(t *testing.T) {
	_, err := CalculateDepositIncentive(types.TrancheSide("MEZZANINE"), tokens(100), tokens(100_000), tokens(1_000), tokens(1_000), testParams())
	if !errors.Is(err, types.ErrUnknownTrancheSide) {
		t.Fatalf("expected ErrUnknownTrancheSide, got %v", err)
	}
}

func TestJuniorDepositOpen(t *testing.T) {
	// 30_000 senior at 4500 bips caps junior at 13_500.
	open, err := JuniorDepositOpen(tokens(10_000), tokens(30_000), tokens(3_500), 4_500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !open {
		t.Fatal("deposit landing exactly on the cap should be open")
	}

	open, err = JuniorDepositOpen(tokens(10_000), tokens(30_000), tokens(3_500).AddRaw(1), 4_500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open {
		t.Fatal("deposit one base unit over the cap should be closed")
	}
}

func TestJuniorDepositOpenZeroSeniorSupply(t *testing.T) {
	open, err := JuniorDepositOpen(sdkmath.ZeroInt(), sdkmath.ZeroInt(), One, 4_500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open {
		t.Fatal("junior tranche should be closed while senior supply is zero")
	}
}

func TestJuniorDepositOpenRejectsInvalidCap(t *testing.T) {
	_, err := JuniorDepositOpen(tokens(10_000), tokens(30_000), One, 0)
	if !errors.Is(err, ErrInvalidTrancheRatio) {
		t.Fatalf("expected ErrInvalidTrancheRatio, got %v", err)
	}
}
