package allocator

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestShortfallRate(t *testing.T) {
	// targetRatio 1/3 with a 1:3 junior:senior split lands at One + One/9.
	rate, err := shortfallRate(One.QuoRaw(3), tokens(10_000), tokens(30_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := One.Add(One.QuoRaw(9)); !rate.Equal(want) {
		t.Fatalf("shortfall rate = %s, want %s", rate, want)
	}
	if !rate.GT(One) || !rate.LT(tokens(3)) {
		t.Fatalf("shortfall rate %s outside (One, 3*One)", rate)
	}
}

func TestShortfallRateWholeQuotient(t *testing.T) {
	rate, err := shortfallRate(tokens(3), tokens(10_000), tokens(30_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := tokens(2); !rate.Equal(want) {
		t.Fatalf("shortfall rate = %s, want %s", rate, want)
	}
}

func TestShortfallRateExceedsOne(t *testing.T) {
	rate, err := shortfallRate(One.QuoRaw(100), tokens(500), tokens(90_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rate.GT(One) {
		t.Fatalf("shortfall rate %s not above One", rate)
	}
}

func TestShortfallRateMonotonicInJuniorSupply(t *testing.T) {
	prev := sdkmath.ZeroInt()
	for _, junior := range []int64{1_000, 2_000, 4_000, 8_000} {
		rate, err := shortfallRate(One, tokens(junior), tokens(30_000))
		if err != nil {
			t.Fatalf("unexpected error at junior=%d: %v", junior, err)
		}
		if !rate.GT(prev) {
			t.Fatalf("rate %s at junior=%d not above previous %s", rate, junior, prev)
		}
		prev = rate
	}
}

func TestShortfallRateMonotonicInSeniorSupply(t *testing.T) {
	prev := tokens(1_000_000)
	for _, senior := range []int64{10_000, 20_000, 40_000} {
		rate, err := shortfallRate(One, tokens(10_000), tokens(senior))
		if err != nil {
			t.Fatalf("unexpected error at senior=%d: %v", senior, err)
		}
		if !rate.LT(prev) {
			t.Fatalf("rate %s at senior=%d not below previous %s", rate, senior, prev)
		}
		prev = rate
	}
}

func TestShortfallRateZeroSeniorSupply(t *testing.T) {
	_, err := shortfallRate(One, tokens(10_000), sdkmath.ZeroInt())
	if !errors.Is(err, ErrZeroSeniorSupply) {
		t.Fatalf("expected ErrZeroSeniorSupply, got %v", err)
	}
}

func TestCalculateSeniorRateShortfallBranch(t *testing.T) {
	params := testParams()
	params.TargetRatio = tokens(3)

	// Target is 3 * 40_000 / 52 of One-scaled supply, far above the bag.
	rate, err := CalculateSeniorRate(tokens(1_000), sdkmath.ZeroInt(), sdkmath.ZeroInt(), tokens(30_000), tokens(10_000), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := tokens(2); !rate.Equal(want) {
		t.Fatalf("senior rate = %s, want %s", rate, want)
	}

	// The shortfall rate is a divisor: half the bag per unit of One.
	perUnit := One.Mul(One).Quo(rate)
	if want := One.QuoRaw(2); !perUnit.Equal(want) {
		t.Fatalf("pro-rata share = %s, want %s", perUnit, want)
	}
}

func TestCalculateSeniorRateShortfallClampsToWholeUnits(t *testing.T) {
	params := testParams()
	params.TargetRatio = One.QuoRaw(3)

	// The raw shortfall rate is ~1.111 * One; the clamp floors it to One.
	rate, err := CalculateSeniorRate(tokens(100), sdkmath.ZeroInt(), sdkmath.ZeroInt(), tokens(30_000), tokens(10_000), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rate.Equal(One) {
		t.Fatalf("senior rate = %s, want %s", rate, One)
	}
}

func TestCalculateSeniorRateSaturatedBranch(t *testing.T) {
	params := testParams()

	// Default parameters put the epoch target at exactly 1250 tokens; a
	// window that has accrued 13 * 1250 owes no catch-up.
	rate, err := CalculateSeniorRate(tokens(2_000), tokens(16_250), tokens(1_250), tokens(30_000), tokens(10_000), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := tokens(1_250); !rate.Equal(want) {
		t.Fatalf("senior rate = %s, want %s", rate, want)
	}
}

func TestCalculateSeniorRateCatchUpBranch(t *testing.T) {
	params := testParams()

	rate, err := CalculateSeniorRate(tokens(2_000), tokens(6_500), tokens(1_250), tokens(30_000), tokens(10_000), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// lead = 14 * 1250 tokens; correction = 6500 * dLil / 2000 with
	// dLil = One + 1.625 * One / 3.
	correction := sdkmath.NewInt(5_010_416_666_666_666_664)
	want := tokens(17_500).Sub(correction)
	if !rate.Equal(want) {
		t.Fatalf("senior rate = %s, want %s", rate, want)
	}
}

func TestCalculateSeniorRateCatchUpUnderflow(t *testing.T) {
	params := testParams()
	params.TargetRatio = One
	params.YieldDelta = One

	// A dust-sized senior supply blows up the shortfall divisor so the
	// correction term dwarfs the lead term.
	_, err := CalculateSeniorRate(
		sdkmath.NewInt(250_000),
		sdkmath.NewInt(3_000_000),
		sdkmath.ZeroInt(),
		sdkmath.NewInt(1),
		sdkmath.NewInt(1_000_000),
		params,
	)
	if !errors.Is(err, ErrRateUnderflow) {
		t.Fatalf("expected ErrRateUnderflow, got %v", err)
	}
}

func TestCalculateSeniorRateZeroTargetZeroBag(t *testing.T) {
	params := testParams()
	params.TargetRatio = sdkmath.ZeroInt()

	rate, err := CalculateSeniorRate(sdkmath.ZeroInt(), sdkmath.ZeroInt(), sdkmath.ZeroInt(), tokens(30_000), tokens(10_000), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rate.IsZero() {
		t.Fatalf("senior rate = %s, want 0", rate)
	}
}

func TestCalculateSeniorRateZeroSeniorSupply(t *testing.T) {
	_, err := CalculateSeniorRate(tokens(1_000), sdkmath.ZeroInt(), sdkmath.ZeroInt(), sdkmath.ZeroInt(), tokens(10_000), testParams())
	if !errors.Is(err, ErrZeroSeniorSupply) {
		t.Fatalf("expected ErrZeroSeniorSupply, got %v", err)
	}
}

func TestCalculateSeniorRateInvalidLookback(t *testing.T) {
	params := testParams()
	params.LookbackPeriod = 0

	_, err := CalculateSeniorRate(tokens(1_000), sdkmath.ZeroInt(), sdkmath.ZeroInt(), tokens(30_000), tokens(10_000), params)
	if !errors.Is(err, ErrInvalidLookbackPeriod) {
		t.Fatalf("expected ErrInvalidLookbackPeriod, got %v", err)
	}
}

func TestCalculateSeniorRateRejectsNilInput(t *testing.T) {
	_, err := CalculateSeniorRate(tokens(1_000), sdkmath.Int{}, sdkmath.ZeroInt(), tokens(30_000), tokens(10_000), testParams())
	if !errors.Is(err, ErrNilInput) {
		t.Fatalf("expected ErrNilInput, got %v", err)
	}
}
