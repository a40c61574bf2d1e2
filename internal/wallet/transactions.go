/*

The payout builder turns resolved distribution plans and settled incentive
grants into signed bank transactions. Every distribution epoch becomes a
single MsgMultiSend (one input from the manager wallet, one output per leg),
as does every incentive batch, so the chain history carries one auditable
transaction per action.

In dry-run mode (ZTM_MODE != "live") plans are validated and logged but never
broadcast.

*/

package wallet

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/types"
)

// Error definitions for payout construction and execution
var (
	ErrAccountRetrievalFailed = errors.New("account retrieval failed")
	ErrInvalidPayoutLeg       = errors.New("payout leg is invalid")
	ErrInvalidGrant           = errors.New("incentive grant is invalid")
	ErrEmptyPayout            = errors.New("payout contains no transfers")
	ErrTxExecutionFailed      = errors.New("transaction execution failed")
)

var txLogger = logger.GetForComponent("payout_builder")

// PayoutBuilder converts payout plans into broadcast transactions.
type PayoutBuilder struct {
	signingClient *SigningClient
}

// NewPayoutBuilder creates a payout builder backed by a validated signing client.
func NewPayoutBuilder(signingClient *SigningClient) (*PayoutBuilder, error) {
	if signingClient == nil {
		return nil, errors.New("signing client cannot be nil")
	}
	if err := validateSigningClientComplete(signingClient); err != nil {
		return nil, fmt.Errorf("signing client validation failed: %w", err)
	}
	return &PayoutBuilder{signingClient: signingClient}, nil
}

// ExecutePayoutPlan broadcasts one epoch's distribution waterfall as a single
// MsgMultiSend and waits for block inclusion. In dry-run mode it validates and
// logs the plan, then returns a synthetic success with an empty hash.
func (pb *PayoutBuilder) ExecutePayoutPlan(ctx context.Context, plan types.PayoutPlan) (*types.TransactionResult, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if len(plan.Legs) == 0 {
		return nil, ErrEmptyPayout
	}

	txLogger.Info().
		Int64("epoch", plan.EpochNumber).
		Str("branch", string(plan.Branch)).
		Int("legCount", len(plan.Legs)).
		Str("grossYield", plan.GrossYield.String()).
		Msg("ExecutePayoutPlan: Building distribution transaction")

	msg, total, err := legsToMultiSend(pb.signingClient.GetAddressString(), plan.Legs)
	if err != nil {
		return nil, err
	}

	if !config.IsLive() {
		logPayoutPreview(plan.Legs, total)
		txLogger.Warn().
			Int64("epoch", plan.EpochNumber).
			Str("total", total.String()).
			Msg("ExecutePayoutPlan: Dry-run mode, distribution NOT broadcast")
		return &types.TransactionResult{Success: true}, nil
	}

	memo := fmt.Sprintf("ztm epoch %d distribution", plan.EpochNumber)
	return pb.broadcastAndConfirm(ctx, memo, msg)
}

// ExecuteIncentivePayout broadcasts a batch of pending incentive grants as a
// single MsgMultiSend in the incentive denom. Callers must pass only grants
// with positive rewards; skipped grants never reach the wallet.
func (pb *PayoutBuilder) ExecuteIncentivePayout(ctx context.Context, grants []types.IncentiveGrant) (*types.TransactionResult, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if len(grants) == 0 {
		return nil, ErrEmptyPayout
	}

	txLogger.Info().
		Int("grantCount", len(grants)).
		Str("denom", config.IncentiveDenom).
		Msg("ExecuteIncentivePayout: Building incentive transaction")

	msg, total, err := grantsToMultiSend(pb.signingClient.GetAddressString(), config.IncentiveDenom, grants)
	if err != nil {
		return nil, err
	}

	if !config.IsLive() {
		txLogger.Warn().
			Int("grantCount", len(grants)).
			Str("total", total.String()).
			Msg("ExecuteIncentivePayout: Dry-run mode, incentives NOT broadcast")
		return &types.TransactionResult{Success: true}, nil
	}

	return pb.broadcastAndConfirm(ctx, "ztm incentive settlement", msg)
}

// broadcastAndConfirm signs, broadcasts, and waits for the transaction to be
// committed, returning the executed result. A non-zero execution code is an
// error: the caller must not record the payout as settled.
func (pb *PayoutBuilder) broadcastAndConfirm(ctx context.Context, memo string, msg sdk.Msg) (*types.TransactionResult, error) {
	pb.signingClient.txFactory = pb.signingClient.txFactory.WithMemo(memo)

	res, err := pb.signingClient.SignAndBroadcastTx(ctx, msg)
	if err != nil {
		return nil, errors.Join(ErrTxExecutionFailed, err)
	}
	if res.Code != 0 {
		txLogger.Error().
			Str("txHash", res.TxHash).
			Uint32("code", res.Code).
			Str("rawLog", res.RawLog).
			Msg("broadcastAndConfirm: Transaction rejected at CheckTx")
		return nil, errors.Join(ErrTxExecutionFailed,
			fmt.Errorf("transaction %s rejected with code %d: %s", res.TxHash, res.Code, res.RawLog))
	}

	confirmed, err := pb.signingClient.WaitForInclusion(res.TxHash)
	if err != nil {
		return nil, errors.Join(ErrTxExecutionFailed, err)
	}
	if err := validateTxResponse(confirmed); err != nil {
		return nil, errors.Join(ErrTxExecutionFailed, err)
	}

	txLogger.Info().
		Str("txHash", confirmed.TxHash).
		Int64("height", confirmed.Height).
		Int64("gasUsed", confirmed.GasUsed).
		Msg("broadcastAndConfirm: Transaction committed")

	return &types.TransactionResult{
		TxHash:    confirmed.TxHash,
		GasUsed:   confirmed.GasUsed,
		GasWanted: confirmed.GasWanted,
		Success:   true,
	}, nil
}

// legsToMultiSend builds a MsgMultiSend paying every leg of a distribution
// plan from a single input. The returned total is the exact input amount.
func legsToMultiSend(from string, legs []types.PayoutLeg) (*banktypes.MsgMultiSend, sdk.Coins, error) {
	if err := validateBech32Address(from, "sender"); err != nil {
		return nil, nil, err
	}
	if len(legs) == 0 {
		return nil, nil, ErrEmptyPayout
	}

	total := sdk.NewCoins()
	outputs := make([]banktypes.Output, 0, len(legs))

	for i, leg := range legs {
		if err := validatePayoutLeg(i, leg); err != nil {
			return nil, nil, err
		}

		coin := sdk.NewCoin(leg.Denom, leg.Amount)
		total = total.Add(coin)
		outputs = append(outputs, banktypes.Output{
			Address: leg.Recipient,
			Coins:   sdk.NewCoins(coin),
		})
	}

	msg := &banktypes.MsgMultiSend{
		Inputs:  []banktypes.Input{{Address: from, Coins: total}},
		Outputs: outputs,
	}

	return msg, total, nil
}

// grantsToMultiSend builds a MsgMultiSend paying every grant's reward in the
// given denom from a single input.
func grantsToMultiSend(from string, denom string, grants []types.IncentiveGrant) (*banktypes.MsgMultiSend, sdk.Coins, error) {
	if err := validateBech32Address(from, "sender"); err != nil {
		return nil, nil, err
	}
	if err := sdk.ValidateDenom(denom); err != nil {
		return nil, nil, fmt.Errorf("incentive denom %q is invalid: %w", denom, err)
	}
	if len(grants) == 0 {
		return nil, nil, ErrEmptyPayout
	}

	total := sdk.NewCoins()
	outputs := make([]banktypes.Output, 0, len(grants))

	for i, grant := range grants {
		if err := validateIncentiveGrant(i, grant); err != nil {
			return nil, nil, err
		}

		coin := sdk.NewCoin(denom, grant.Reward)
		total = total.Add(coin)
		outputs = append(outputs, banktypes.Output{
			Address: grant.Depositor,
			Coins:   sdk.NewCoins(coin),
		})
	}

	msg := &banktypes.MsgMultiSend{
		Inputs:  []banktypes.Input{{Address: from, Coins: total}},
		Outputs: outputs,
	}

	return msg, total, nil
}

// validatePayoutLeg enforces zero-tolerance validation on a single leg.
func validatePayoutLeg(index int, leg types.PayoutLeg) error {
	if err := validateBech32Address(leg.Recipient, fmt.Sprintf("leg %d (%s) recipient", index, leg.Purpose)); err != nil {
		return errors.Join(ErrInvalidPayoutLeg, err)
	}
	if err := sdk.ValidateDenom(leg.Denom); err != nil {
		return errors.Join(ErrInvalidPayoutLeg,
			fmt.Errorf("leg %d (%s) denom %q is invalid: %w", index, leg.Purpose, leg.Denom, err))
	}
	if leg.Amount.IsNil() {
		return errors.Join(ErrInvalidPayoutLeg,
			fmt.Errorf("leg %d (%s) amount is nil", index, leg.Purpose))
	}
	if !leg.Amount.IsPositive() {
		return errors.Join(ErrInvalidPayoutLeg,
			fmt.Errorf("leg %d (%s) amount %s is not positive", index, leg.Purpose, leg.Amount.String()))
	}
	return nil
}

// validateIncentiveGrant enforces zero-tolerance validation on a single grant.
func validateIncentiveGrant(index int, grant types.IncentiveGrant) error {
	if err := validateBech32Address(grant.Depositor, fmt.Sprintf("grant %d depositor", index)); err != nil {
		return errors.Join(ErrInvalidGrant, err)
	}
	if grant.Reward.IsNil() {
		return errors.Join(ErrInvalidGrant,
			fmt.Errorf("grant %d (tx %s) reward is nil", index, grant.TxHash))
	}
	if !grant.Reward.IsPositive() {
		return errors.Join(ErrInvalidGrant,
			fmt.Errorf("grant %d (tx %s) reward %s is not positive", index, grant.TxHash, grant.Reward.String()))
	}
	return nil
}

// validateBech32Address checks an address against the configured prefix
// without touching the process-global SDK config.
func validateBech32Address(address string, context string) error {
	if address == "" {
		return fmt.Errorf("%s address is empty", context)
	}
	bz, err := sdk.GetFromBech32(address, config.Bech32Prefix)
	if err != nil {
		return fmt.Errorf("%s address %q is invalid: %w", context, address, err)
	}
	if err := sdk.VerifyAddressFormat(bz); err != nil {
		return fmt.Errorf("%s address %q has invalid format: %w", context, address, err)
	}
	return nil
}

// validateTxResponse validates an executed transaction's result.
func validateTxResponse(res *sdk.TxResponse) error {
	if res == nil {
		return errors.New("transaction response is nil")
	}
	if res.TxHash == "" {
		return errors.New("transaction hash is empty")
	}
	if res.Code != 0 {
		return fmt.Errorf("transaction %s failed with code %d: %s", res.TxHash, res.Code, res.RawLog)
	}
	return nil
}

// logPayoutPreview dumps every leg at Info level so dry runs leave a full
// audit trail of what would have been paid.
func logPayoutPreview(legs []types.PayoutLeg, total sdk.Coins) {
	for i, leg := range legs {
		txLogger.Info().
			Int("leg", i).
			Str("purpose", string(leg.Purpose)).
			Str("name", leg.Name).
			Str("recipient", leg.Recipient).
			Str("denom", leg.Denom).
			Str("amount", leg.Amount.String()).
			Msg("Payout preview")
	}
	txLogger.Info().Str("total", total.String()).Msg("Payout preview total")
}
