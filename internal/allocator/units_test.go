package allocator

import (
	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/types"
)

// tokens scales a whole-token count to 18-decimal base units.
func tokens(n int64) sdkmath.Int {
	return One.MulRaw(n)
}

// testParams returns the production default parameter snapshot used across
// the package tests.
func testParams() types.TrancheParameters {
	return types.TrancheParameters{
		TargetRatio:         One.MulRaw(16_250).QuoRaw(10_000),
		YieldDelta:          One.MulRaw(13),
		LookbackPeriod:      13,
		MinIncentiveRate:    One.MulRaw(25).QuoRaw(10_000),
		MaxIncentiveRate:    One.MulRaw(100).QuoRaw(10_000),
		LowerRatioThreshold: 1_000,
		UpperRatioThreshold: 2_500,
		MaxTrancheRatioBips: 4_500,
		ProtocolFeeBips:     2_000,
		EmaPeriods:          4,
	}
}
