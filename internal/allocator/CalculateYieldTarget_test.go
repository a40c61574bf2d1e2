package allocator

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestCalculateYieldTarget(t *testing.T) {
	// 1.625 * 40_000 / (4 * 13) = 1250 exactly.
	target, err := CalculateYieldTarget(tokens(30_000), tokens(10_000), One.MulRaw(16_250).QuoRaw(10_000), One.MulRaw(13))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := tokens(1_250); !target.Equal(want) {
		t.Fatalf("yield target = %s, want %s", target, want)
	}
}

func TestCalculateYieldTargetScalesWithSupply(t *testing.T) {
	small, err := CalculateYieldTarget(tokens(30_000), tokens(10_000), One, One.MulRaw(13))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	large, err := CalculateYieldTarget(tokens(60_000), tokens(20_000), One, One.MulRaw(13))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !large.Equal(small.MulRaw(2)) {
		t.Fatalf("doubling supplies gave target %s, want %s", large, small.MulRaw(2))
	}
}

func TestCalculateYieldTargetZeroYieldDelta(t *testing.T) {
	_, err := CalculateYieldTarget(tokens(30_000), tokens(10_000), One, sdkmath.ZeroInt())
	if !errors.Is(err, ErrZeroYieldDelta) {
		t.Fatalf("expected ErrZeroYieldDelta, got %v", err)
	}
}

func TestCalculateYieldTargetRejectsNilInput(t *testing.T) {
	_, err := CalculateYieldTarget(sdkmath.Int{}, tokens(10_000), One, One.MulRaw(13))
	if !errors.Is(err, ErrNilInput) {
		t.Fatalf("expected ErrNilInput, got %v", err)
	}
}

func TestCalculateYieldTargetRejectsNegativeInput(t *testing.T) {
	_, err := CalculateYieldTarget(tokens(30_000), tokens(-1), One, One.MulRaw(13))
	if !errors.Is(err, ErrNegativeInput) {
		t.Fatalf("expected ErrNegativeInput, got %v", err)
	}
}
