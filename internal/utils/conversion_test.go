package utils

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestStandardizeAmount(t *testing.T) {
	// 1 USDC in 6-decimal base units becomes one 18-decimal token.
	got, err := StandardizeAmount(sdkmath.NewInt(1_000_000), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := sdkmath.NewIntWithDecimal(1, 18); !got.Equal(want) {
		t.Fatalf("standardized = %s, want %s", got, want)
	}
}

func TestStandardizeAmountIdentityAtStandardScale(t *testing.T) {
	amount := sdkmath.NewIntWithDecimal(1_250, 18)
	got, err := StandardizeAmount(amount, 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(amount) {
		t.Fatalf("standardized = %s, want %s", got, amount)
	}
}

func TestNativeAmountRoundTrip(t *testing.T) {
	native := sdkmath.NewInt(123_456_789)
	standardized, err := StandardizeAmount(native, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := NativeAmount(standardized, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.Equal(native) {
		t.Fatalf("round trip = %s, want %s", back, native)
	}
}

func TestNativeAmountTruncatesDust(t *testing.T) {
	// One token plus 1 base unit of 18-decimal dust: the dust is below a
	// 6-decimal denom's smallest unit and truncates away.
	standardized := sdkmath.NewIntWithDecimal(1, 18).AddRaw(1)
	got, err := NativeAmount(standardized, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := sdkmath.NewInt(1_000_000); !got.Equal(want) {
		t.Fatalf("native = %s, want %s", got, want)
	}
}

func TestStandardizeAmountRejectsInvalidDecimals(t *testing.T) {
	_, err := StandardizeAmount(sdkmath.NewInt(1), 19)
	if !errors.Is(err, ErrInvalidDecimals) {
		t.Fatalf("expected ErrInvalidDecimals, got %v", err)
	}
}

func TestStandardizeAmountRejectsNilAndNegative(t *testing.T) {
	if _, err := StandardizeAmount(sdkmath.Int{}, 6); !errors.Is(err, ErrAmountNil) {
		t.Fatalf("expected ErrAmountNil, got %v", err)
	}
	if _, err := StandardizeAmount(sdkmath.NewInt(-5), 6); !errors.Is(err, ErrAmountNegative) {
		t.Fatalf("expected ErrAmountNegative, got %v", err)
	}
}

func TestDisplayAmount(t *testing.T) {
	got, err := DisplayAmount(sdkmath.NewInt(1_500_000), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.5 {
		t.Fatalf("display = %f, want 1.5", got)
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("1.5", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := sdkmath.NewInt(1_500_000); !got.Equal(want) {
		t.Fatalf("parsed = %s, want %s", got, want)
	}
}

func TestParseAmountTruncatesExcessPrecision(t *testing.T) {
	got, err := ParseAmount("1.2345678", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := sdkmath.NewInt(1_234_567); !got.Equal(want) {
		t.Fatalf("parsed = %s, want %s", got, want)
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	if _, err := ParseAmount("not-a-number", 6); !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if _, err := ParseAmount("-1.5", 6); !errors.Is(err, ErrAmountNegative) {
		t.Fatalf("expected ErrAmountNegative, got %v", err)
	}
}
