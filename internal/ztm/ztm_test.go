package ztm

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/zivoe/ztm/internal/types"
)

// stubChainReader satisfies tranche.TrancheReader with canned state. The
// heights handed to SuppliesAtHeight are recorded so tests can assert the
// pre-deposit read.
type stubChainReader struct {
	supplies         types.TrancheSupply
	suppliesErr      error
	requestedHeights []int64
	balances         map[string]sdkmath.Int
	latestHeight     int64
	deposits         []types.DepositEvent
	nextCursor       int64
}

func (s *stubChainReader) TrancheSupplies() (types.TrancheSupply, error) {
	return s.supplies, s.suppliesErr
}

func (s *stubChainReader) SuppliesAtHeight(height int64) (types.TrancheSupply, error) {
	s.requestedHeights = append(s.requestedHeights, height)
	if s.suppliesErr != nil {
		return types.TrancheSupply{}, s.suppliesErr
	}
	return s.supplies, nil
}

func (s *stubChainReader) AccountBalance(address string, denom string) (sdkmath.Int, error) {
	if balance, ok := s.balances[address+"/"+denom]; ok {
		return balance, nil
	}
	return sdkmath.ZeroInt(), nil
}

func (s *stubChainReader) LatestHeight() (int64, error) {
	return s.latestHeight, nil
}

func (s *stubChainReader) DepositsSince(fromHeight int64) ([]types.DepositEvent, int64, error) {
	return s.deposits, s.nextCursor, nil
}

func (s *stubChainReader) Close() error { return nil }

func ztmTestAddr(t *testing.T, seed byte) string {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = seed
	}
	addr, err := sdk.Bech32ifyAddressBytes("zivoe", raw)
	require.NoError(t, err)
	return addr
}

func tokens(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(sdkmath.NewIntWithDecimal(1, 18))
}

func testIncentiveParams() types.TrancheParameters {
	return types.TrancheParameters{
		TargetRatio:         sdkmath.NewIntWithDecimal(1625, 15), // 1.625
		YieldDelta:          sdkmath.NewIntWithDecimal(13, 18),
		LookbackPeriod:      13,
		MinIncentiveRate:    sdkmath.NewIntWithDecimal(1, 16), // 0.01 ZVE per unit
		MaxIncentiveRate:    sdkmath.NewIntWithDecimal(5, 16), // 0.05 ZVE per unit
		LowerRatioThreshold: 1000,
		UpperRatioThreshold: 3500,
		MaxTrancheRatioBips: 3000,
		ProtocolFeeBips:     2000,
		EmaPeriods:          4,
	}
}

func testRecipientSet(t *testing.T) types.RecipientSet {
	t.Helper()
	return types.RecipientSet{
		Protocol: []types.Recipient{
			{Name: "insurance-fund", Address: ztmTestAddr(t, 0x11), ShareBips: 6000},
			{Name: "dao-treasury", Address: ztmTestAddr(t, 0x12), ShareBips: 4000},
		},
		Residual: []types.Recipient{
			{Name: "zve-stakers", Address: ztmTestAddr(t, 0x13), ShareBips: 10000},
		},
	}
}

func testZTMConfig(t *testing.T, reader *stubChainReader) Config {
	t.Helper()
	return Config{
		Reader:           reader,
		Recipients:       testRecipientSet(t),
		ConfigName:       DefaultParamsConfigName,
		DistributionCron: "0 0 * * MON",
		SettleInterval:   10 * time.Minute,
	}
}

func testDepositEvent(t *testing.T, side types.TrancheSide, stdAmount sdkmath.Int) types.DepositEvent {
	t.Helper()
	return types.DepositEvent{
		TxHash:             "1C9A38C0E5FD6A0B24907171DA0E5C5AD4301E4270ED2BBE51290444CC6E25CB",
		MsgIndex:           0,
		Height:             501,
		Timestamp:          time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		Depositor:          ztmTestAddr(t, 0x21),
		Side:               side,
		DepositDenom:       "uusdc",
		DepositAmount:      stdAmount.Quo(sdkmath.NewIntWithDecimal(1, 12)),
		StandardizedAmount: stdAmount,
	}
}

func TestNewZTMValidConfig(t *testing.T) {
	reader := &stubChainReader{}
	z, err := NewZTM(testZTMConfig(t, reader))
	require.NoError(t, err)
	require.NotNil(t, z)
}

func TestNewZTMRejectsNilReader(t *testing.T) {
	cfg := testZTMConfig(t, nil)
	cfg.Reader = nil
	_, err := NewZTM(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tranche reader")
}

func TestNewZTMRejectsEmptyConfigName(t *testing.T) {
	cfg := testZTMConfig(t, &stubChainReader{})
	cfg.ConfigName = ""
	_, err := NewZTM(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "config name")
}

func TestNewZTMRejectsEmptyCron(t *testing.T) {
	cfg := testZTMConfig(t, &stubChainReader{})
	cfg.DistributionCron = ""
	_, err := NewZTM(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cron")
}

func TestNewZTMRejectsNonPositiveInterval(t *testing.T) {
	cfg := testZTMConfig(t, &stubChainReader{})
	cfg.SettleInterval = 0
	_, err := NewZTM(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "settle interval")
}

func TestNewZTMRejectsUnbalancedRecipients(t *testing.T) {
	cfg := testZTMConfig(t, &stubChainReader{})
	cfg.Recipients.Protocol[0].ShareBips = 5000 // list now sums to 9000
	_, err := NewZTM(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recipient")
}

func TestPriceDepositReadsPreDepositSupplies(t *testing.T) {
	reader := &stubChainReader{
		supplies: types.TrancheSupply{Senior: tokens(8_000_000), Junior: tokens(2_000_000)},
	}
	z := &ZTM{reader: reader}

	deposit := testDepositEvent(t, types.TrancheSenior, tokens(2_000_000))
	deposit.Height = 501

	_, err := z.priceDeposit(deposit, testIncentiveParams(), tokens(1_000_000))
	require.NoError(t, err)
	require.Equal(t, []int64{500}, reader.requestedHeights)
}

func TestPriceDepositSeniorReward(t *testing.T) {
	// Supplies 8M/2M: start ratio 2500 bips. A 2M senior deposit moves it to
	// 2000, so the curve prices the average ratio 2250. With bounds
	// [0.01, 0.05] over [1000, 3500] the senior rate interpolates to 0.03,
	// and 0.03 * 2M = 60k ZVE.
	reader := &stubChainReader{
		supplies: types.TrancheSupply{Senior: tokens(8_000_000), Junior: tokens(2_000_000)},
	}
	z := &ZTM{reader: reader}

	grant, err := z.priceDeposit(testDepositEvent(t, types.TrancheSenior, tokens(2_000_000)), testIncentiveParams(), tokens(1_000_000))
	require.NoError(t, err)

	require.Equal(t, types.GrantPending, grant.Status)
	require.Equal(t, tokens(60_000).String(), grant.Reward.String())
	require.False(t, grant.Capped)
	require.Equal(t, tokens(8_000_000).String(), grant.SeniorSupplyAt.String())
	require.Equal(t, tokens(2_000_000).String(), grant.JuniorSupplyAt.String())
}

func TestPriceDepositJuniorReward(t *testing.T) {
	// A 400k junior deposit lifts the ratio from 2500 to exactly the 3000
	// cap, so the gate stays open. Average ratio 2750 prices the junior rate
	// at 0.022, and 0.022 * 400k = 8.8k ZVE.
	reader := &stubChainReader{
		supplies: types.TrancheSupply{Senior: tokens(8_000_000), Junior: tokens(2_000_000)},
	}
	z := &ZTM{reader: reader}

	grant, err := z.priceDeposit(testDepositEvent(t, types.TrancheJunior, tokens(400_000)), testIncentiveParams(), tokens(1_000_000))
	require.NoError(t, err)

	require.Equal(t, types.GrantPending, grant.Status)
	require.Equal(t, tokens(8_800).String(), grant.Reward.String())
	require.False(t, grant.Capped)
}

func TestPriceDepositJuniorClosedAtRatioCap(t *testing.T) {
	reader := &stubChainReader{
		supplies: types.TrancheSupply{Senior: tokens(8_000_000), Junior: tokens(2_000_000)},
	}
	z := &ZTM{reader: reader}

	// 500k pushes junior to 2.5M against an 8M senior, breaching 3000 bips.
	grant, err := z.priceDeposit(testDepositEvent(t, types.TrancheJunior, tokens(500_000)), testIncentiveParams(), tokens(1_000_000))
	require.NoError(t, err)

	require.Equal(t, types.GrantSkipped, grant.Status)
	require.Equal(t, "junior tranche at ratio cap", grant.SkipReason)
	require.True(t, grant.Reward.IsZero())
}

func TestPriceDepositPaused(t *testing.T) {
	reader := &stubChainReader{
		supplies: types.TrancheSupply{Senior: tokens(8_000_000), Junior: tokens(2_000_000)},
	}
	z := &ZTM{reader: reader}

	params := testIncentiveParams()
	params.DepositsPaused = true

	grant, err := z.priceDeposit(testDepositEvent(t, types.TrancheSenior, tokens(100_000)), params, tokens(1_000_000))
	require.NoError(t, err)

	require.Equal(t, types.GrantSkipped, grant.Status)
	require.Equal(t, "deposits paused", grant.SkipReason)
	require.True(t, grant.Reward.IsZero())
	// The observation is still recorded in full for the audit trail.
	require.Equal(t, tokens(8_000_000).String(), grant.SeniorSupplyAt.String())
}

func TestPriceDepositCappedByReserve(t *testing.T) {
	reader := &stubChainReader{
		supplies: types.TrancheSupply{Senior: tokens(8_000_000), Junior: tokens(2_000_000)},
	}
	z := &ZTM{reader: reader}

	grant, err := z.priceDeposit(testDepositEvent(t, types.TrancheSenior, tokens(2_000_000)), testIncentiveParams(), tokens(1_000))
	require.NoError(t, err)

	require.Equal(t, types.GrantPending, grant.Status)
	require.Equal(t, tokens(1_000).String(), grant.Reward.String())
	require.True(t, grant.Capped)
}

func TestPriceDepositReserveExhausted(t *testing.T) {
	reader := &stubChainReader{
		supplies: types.TrancheSupply{Senior: tokens(8_000_000), Junior: tokens(2_000_000)},
	}
	z := &ZTM{reader: reader}

	grant, err := z.priceDeposit(testDepositEvent(t, types.TrancheSenior, tokens(2_000_000)), testIncentiveParams(), sdkmath.ZeroInt())
	require.NoError(t, err)

	require.Equal(t, types.GrantSkipped, grant.Status)
	require.Equal(t, "incentive reserve exhausted", grant.SkipReason)
}

func TestSmoothColumnSeedsWithoutHistory(t *testing.T) {
	z := &ZTM{}
	current := tokens(200)

	require.Equal(t, current.String(), z.smoothColumn(nil, pickEmaYield, current, 4, z.logger).String())

	// A previous snapshot with an unset column also seeds from the raw value.
	previous := &types.EpochSnapshot{}
	require.Equal(t, current.String(), z.smoothColumn(previous, pickEmaYield, current, 4, z.logger).String())
}

func TestSmoothColumnFoldsHistory(t *testing.T) {
	z := &ZTM{}
	previous := &types.EpochSnapshot{EmaYield: tokens(100)}

	// (100 * 3 + 200) / 4 = 125
	smoothed := z.smoothColumn(previous, pickEmaYield, tokens(200), 4, z.logger)
	require.Equal(t, tokens(125).String(), smoothed.String())
}

func TestApplyPlanToSnapshot(t *testing.T) {
	snapshot := newEpochSnapshot(7, 12345, types.TrancheSupply{Senior: tokens(8_000_000), Junior: tokens(2_000_000)})
	plan := types.PayoutPlan{
		EpochNumber: 7,
		Branch:      types.BranchSaturated,
		YieldTarget: tokens(312_500),
		SeniorRate:  tokens(312_500),
		JuniorRate:  tokens(126_953),
		GrossYield:  tokens(750_000),
		ProtocolFee: tokens(150_000),
		YieldBag:    tokens(600_000),
		SeniorOwed:  tokens(312_500),
		JuniorOwed:  tokens(126_953),
		Residual:    tokens(160_547),
	}

	applyPlanToSnapshot(&snapshot, plan)

	require.Equal(t, types.BranchSaturated, snapshot.Branch)
	require.Equal(t, plan.SeniorRate.String(), snapshot.SeniorRate.String())
	require.Equal(t, plan.Residual.String(), snapshot.Residual.String())
	// Chain identity fields stay as pinned at the start of the epoch.
	require.Equal(t, int64(12345), snapshot.Height)
	require.Equal(t, tokens(8_000_000).String(), snapshot.SeniorSupply.String())
}
