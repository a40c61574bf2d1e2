package wallet

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/zivoe/ztm/internal/types"
)

func walletTestAddr(t *testing.T, seed byte) string {
	t.Helper()
	bz := make([]byte, 20)
	for i := range bz {
		bz[i] = seed
	}
	addr, err := sdk.Bech32ifyAddressBytes("zivoe", bz)
	require.NoError(t, err)
	return addr
}

func yieldLeg(purpose types.PayoutPurpose, recipient string, amount int64) types.PayoutLeg {
	return types.PayoutLeg{
		Purpose:   purpose,
		Recipient: recipient,
		Denom:     "uusdc",
		Amount:    sdkmath.NewInt(amount),
	}
}

func TestLegsToMultiSendSingleInputCoversOutputs(t *testing.T) {
	from := walletTestAddr(t, 0x01)
	legs := []types.PayoutLeg{
		yieldLeg(types.PayoutSeniorYield, walletTestAddr(t, 0x02), 700),
		yieldLeg(types.PayoutJuniorYield, walletTestAddr(t, 0x03), 200),
		yieldLeg(types.PayoutProtocolFee, walletTestAddr(t, 0x04), 100),
	}

	msg, total, err := legsToMultiSend(from, legs)
	require.NoError(t, err)

	require.Len(t, msg.Inputs, 1)
	require.Equal(t, from, msg.Inputs[0].Address)
	require.Equal(t, "1000uusdc", msg.Inputs[0].Coins.String())
	require.Equal(t, msg.Inputs[0].Coins, total)

	require.Len(t, msg.Outputs, len(legs))
	for i, leg := range legs {
		require.Equal(t, leg.Recipient, msg.Outputs[i].Address)
		require.Equal(t, leg.Amount, msg.Outputs[i].Coins.AmountOf("uusdc"))
	}
}

func TestLegsToMultiSendMixedDenoms(t *testing.T) {
	from := walletTestAddr(t, 0x01)
	legs := []types.PayoutLeg{
		yieldLeg(types.PayoutSeniorYield, walletTestAddr(t, 0x02), 500),
		{
			Purpose:   types.PayoutResidual,
			Recipient: walletTestAddr(t, 0x03),
			Denom:     "uzve",
			Amount:    sdkmath.NewInt(42),
		},
	}

	msg, total, err := legsToMultiSend(from, legs)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), total.AmountOf("uusdc"))
	require.Equal(t, sdkmath.NewInt(42), total.AmountOf("uzve"))
	require.Equal(t, total, msg.Inputs[0].Coins)
}

func TestLegsToMultiSendRejectsForeignPrefix(t *testing.T) {
	from := walletTestAddr(t, 0x01)
	cosmosAddr, err := sdk.Bech32ifyAddressBytes("cosmos", make([]byte, 20))
	require.NoError(t, err)

	legs := []types.PayoutLeg{yieldLeg(types.PayoutSeniorYield, cosmosAddr, 100)}
	_, _, err = legsToMultiSend(from, legs)
	require.ErrorIs(t, err, ErrInvalidPayoutLeg)
}

func TestLegsToMultiSendRejectsNonPositiveAmounts(t *testing.T) {
	from := walletTestAddr(t, 0x01)
	recipient := walletTestAddr(t, 0x02)

	zero := yieldLeg(types.PayoutSeniorYield, recipient, 0)
	_, _, err := legsToMultiSend(from, []types.PayoutLeg{zero})
	require.ErrorIs(t, err, ErrInvalidPayoutLeg)

	nilAmount := types.PayoutLeg{
		Purpose:   types.PayoutJuniorYield,
		Recipient: recipient,
		Denom:     "uusdc",
	}
	_, _, err = legsToMultiSend(from, []types.PayoutLeg{nilAmount})
	require.ErrorIs(t, err, ErrInvalidPayoutLeg)
}

func TestLegsToMultiSendRejectsEmptyPlan(t *testing.T) {
	_, _, err := legsToMultiSend(walletTestAddr(t, 0x01), nil)
	require.ErrorIs(t, err, ErrEmptyPayout)
}

func TestLegsToMultiSendRejectsBadSender(t *testing.T) {
	legs := []types.PayoutLeg{yieldLeg(types.PayoutSeniorYield, walletTestAddr(t, 0x02), 100)}
	_, _, err := legsToMultiSend("not-an-address", legs)
	require.Error(t, err)
}

func TestGrantsToMultiSendTotals(t *testing.T) {
	from := walletTestAddr(t, 0x01)
	grants := []types.IncentiveGrant{
		{TxHash: "AA", Depositor: walletTestAddr(t, 0x05), Reward: sdkmath.NewIntWithDecimal(5, 18)},
		{TxHash: "BB", Depositor: walletTestAddr(t, 0x06), Reward: sdkmath.NewIntWithDecimal(7, 18)},
	}

	msg, total, err := grantsToMultiSend(from, "uzve", grants)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewIntWithDecimal(12, 18), total.AmountOf("uzve"))
	require.Len(t, msg.Outputs, 2)
	require.Equal(t, grants[0].Depositor, msg.Outputs[0].Address)
	require.Equal(t, grants[1].Depositor, msg.Outputs[1].Address)
}

func TestGrantsToMultiSendRejectsZeroReward(t *testing.T) {
	from := walletTestAddr(t, 0x01)
	grants := []types.IncentiveGrant{
		{TxHash: "AA", Depositor: walletTestAddr(t, 0x05), Reward: sdkmath.ZeroInt()},
	}

	_, _, err := grantsToMultiSend(from, "uzve", grants)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestGrantsToMultiSendRejectsBadDenom(t *testing.T) {
	from := walletTestAddr(t, 0x01)
	grants := []types.IncentiveGrant{
		{TxHash: "AA", Depositor: walletTestAddr(t, 0x05), Reward: sdkmath.NewInt(1)},
	}

	_, _, err := grantsToMultiSend(from, "", grants)
	require.Error(t, err)
}

func TestValidateTxResponse(t *testing.T) {
	require.Error(t, validateTxResponse(nil))
	require.Error(t, validateTxResponse(&sdk.TxResponse{TxHash: ""}))
	require.Error(t, validateTxResponse(&sdk.TxResponse{TxHash: "AB", Code: 5, RawLog: "out of gas"}))
	require.NoError(t, validateTxResponse(&sdk.TxResponse{TxHash: "AB", Code: 0}))
}
