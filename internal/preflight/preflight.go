/*

Pre-flight checks run immediately before a broadcast and refuse it when the
chain state no longer covers what is about to be paid. Balances are re-read
live rather than trusted from the snapshot that planned the payout: loan
repayments, prior legs, and incentive drawdowns all move the wallets between
planning and signing.

*/

package preflight

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/tranche"
	"github.com/zivoe/ztm/internal/types"
)

// Error definitions for pre-flight refusals.
var (
	ErrInsufficientYieldFunds     = errors.New("distribution wallet cannot cover the payout plan")
	ErrInsufficientIncentiveFunds = errors.New("incentive reserve cannot cover the grant batch")
	ErrBalanceCheckFailed         = errors.New("pre-flight balance read failed")
)

var preflightLogger = logger.GetForComponent("preflight")

// CheckDistributionFunds verifies the distribution wallet still covers every
// leg of the plan, per denom. A shortfall returns ErrInsufficientYieldFunds
// with the failing denom and amounts.
func CheckDistributionFunds(reader tranche.TrancheReader, plan types.PayoutPlan) error {
	if reader == nil {
		return errors.Join(ErrBalanceCheckFailed, errors.New("tranche reader is nil"))
	}
	if len(plan.Legs) == 0 {
		return nil
	}

	needed := make(map[string]sdkmath.Int)
	order := make([]string, 0, 1)
	for _, leg := range plan.Legs {
		if leg.Amount.IsNil() || !leg.Amount.IsPositive() {
			return errors.Join(ErrBalanceCheckFailed,
				fmt.Errorf("leg to %s carries non-positive amount", leg.Recipient))
		}
		if _, seen := needed[leg.Denom]; !seen {
			order = append(order, leg.Denom)
			needed[leg.Denom] = sdkmath.ZeroInt()
		}
		needed[leg.Denom] = needed[leg.Denom].Add(leg.Amount)
	}

	for _, denom := range order {
		balance, err := reader.AccountBalance(config.DepositAddress, denom)
		if err != nil {
			return errors.Join(ErrBalanceCheckFailed,
				fmt.Errorf("failed to read distribution balance for %s: %w", denom, err))
		}
		if balance.LT(needed[denom]) {
			preflightLogger.Error().
				Int64("epoch", plan.EpochNumber).
				Str("denom", denom).
				Str("needed", needed[denom].String()).
				Str("balance", balance.String()).
				Msg("CheckDistributionFunds: Wallet no longer covers the plan")
			return errors.Join(ErrInsufficientYieldFunds,
				fmt.Errorf("denom %s: plan needs %s, wallet holds %s", denom, needed[denom], balance))
		}

		preflightLogger.Debug().
			Int64("epoch", plan.EpochNumber).
			Str("denom", denom).
			Str("needed", needed[denom].String()).
			Str("balance", balance.String()).
			Msg("CheckDistributionFunds: Balance covers the plan")
	}

	return nil
}

// CheckIncentiveFunds verifies the incentive reserve covers the total reward
// of a grant batch before it is broadcast.
func CheckIncentiveFunds(reader tranche.TrancheReader, reserveAddress string, grants []types.IncentiveGrant) error {
	if reader == nil {
		return errors.Join(ErrBalanceCheckFailed, errors.New("tranche reader is nil"))
	}
	if reserveAddress == "" {
		return errors.Join(ErrBalanceCheckFailed, errors.New("reserve address is empty"))
	}
	if len(grants) == 0 {
		return nil
	}

	total := sdkmath.ZeroInt()
	for _, grant := range grants {
		if grant.Reward.IsNil() || !grant.Reward.IsPositive() {
			return errors.Join(ErrBalanceCheckFailed,
				fmt.Errorf("grant %s/%d carries non-positive reward", grant.TxHash, grant.MsgIndex))
		}
		total = total.Add(grant.Reward)
	}

	balance, err := reader.AccountBalance(reserveAddress, config.IncentiveDenom)
	if err != nil {
		return errors.Join(ErrBalanceCheckFailed,
			fmt.Errorf("failed to read incentive reserve: %w", err))
	}
	if balance.LT(total) {
		preflightLogger.Error().
			Int("grantCount", len(grants)).
			Str("needed", total.String()).
			Str("balance", balance.String()).
			Msg("CheckIncentiveFunds: Reserve no longer covers the batch")
		return errors.Join(ErrInsufficientIncentiveFunds,
			fmt.Errorf("batch needs %s, reserve holds %s %s", total, balance, config.IncentiveDenom))
	}

	preflightLogger.Debug().
		Int("grantCount", len(grants)).
		Str("needed", total.String()).
		Str("balance", balance.String()).
		Msg("CheckIncentiveFunds: Reserve covers the batch")

	return nil
}
