/*

Deposit scanning. A tranche deposit is a successful bank send to the deposit
address whose transaction memo names a tranche ("senior" or "junior"). The
scanner walks tx search results between two heights and turns qualifying
transfer legs into DepositEvents; transfers without a tranche memo or in a
denom the manager cannot standardize are logged and ignored.

*/

package tranche

import (
	"context"
	"errors"
	"fmt"
	"time"

	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/types"
	"github.com/zivoe/ztm/internal/utils"
)

// ErrScanFailed wraps deposit scan failures so callers can leave the cursor
// untouched and retry the same window later.
var ErrScanFailed = errors.New("deposit scan failed")

const txSearchPageSize = 100

// DepositsSince scans all tranche deposits in (fromHeight, tip] and returns
// them oldest-first along with the tip height the scan covered. The cursor
// the caller persists must only advance to the returned height after the
// events have been handled.
func (c *TrancheClient) DepositsSince(fromHeight int64) ([]types.DepositEvent, int64, error) {
	if err := c.validateClientState(); err != nil {
		return nil, 0, err
	}
	if fromHeight < 0 {
		return nil, 0, errors.Join(ErrInvalidHeight, fmt.Errorf("scan start cannot be negative, got %d", fromHeight))
	}

	tip, err := c.LatestHeight()
	if err != nil {
		return nil, 0, errors.Join(ErrScanFailed, err)
	}
	if tip <= fromHeight {
		return nil, fromHeight, nil
	}

	query := fmt.Sprintf("transfer.recipient='%s' AND tx.height>%d AND tx.height<=%d",
		c.depositAddress, fromHeight, tip)

	var deposits []types.DepositEvent
	page := 1
	perPage := txSearchPageSize

	for {
		ctx, cancel := context.WithTimeout(c.ctx, 20*time.Second)
		result, err := c.rpcClient.TxSearch(ctx, query, false, &page, &perPage, "asc")
		cancel()
		if err != nil {
			return nil, 0, errors.Join(ErrScanFailed, ErrRPCRequestFailed,
				fmt.Errorf("tx search page %d failed: %w", page, err))
		}

		for _, res := range result.Txs {
			deposits = append(deposits, c.extractDeposits(res)...)
		}

		if len(result.Txs) < perPage || page*perPage >= result.TotalCount {
			break
		}
		page++
	}

	trancheLogger.Info().
		Int64("fromHeight", fromHeight).
		Int64("toHeight", tip).
		Int("depositCount", len(deposits)).
		Msg("Deposit scan complete")

	return deposits, tip, nil
}

// extractDeposits pulls the deposit legs out of one search result. The leg
// index counts every coin addressed to the deposit address, including legs
// that are skipped for an unsupported denom, so indices stay stable when a
// window is rescanned under a wider denom configuration.
func (c *TrancheClient) extractDeposits(res *ctypes.ResultTx) []types.DepositEvent {
	if res == nil || res.TxResult.Code != 0 {
		return nil
	}

	txHash := res.Hash.String()

	decodedTx, err := c.txDecoder(res.Tx)
	if err != nil {
		trancheLogger.Warn().Err(err).Str("txHash", txHash).Msg("Failed to decode transaction; skipping")
		return nil
	}

	memoTx, ok := decodedTx.(interface{ GetMemo() string })
	if !ok {
		trancheLogger.Warn().Str("txHash", txHash).Msg("Transaction carries no memo field; skipping")
		return nil
	}

	side, err := types.ParseTrancheSide(memoTx.GetMemo())
	if err != nil {
		trancheLogger.Debug().
			Str("txHash", txHash).
			Str("memo", memoTx.GetMemo()).
			Msg("Transfer to deposit address without tranche memo ignored")
		return nil
	}

	var deposits []types.DepositEvent
	legIndex := 0
	observedAt := time.Now().UTC()

	for _, msg := range decodedTx.GetMsgs() {
		msgSend, ok := msg.(*banktypes.MsgSend)
		if !ok || msgSend.ToAddress != c.depositAddress {
			continue
		}

		for _, coin := range msgSend.Amount {
			index := legIndex
			legIndex++

			decimals, err := config.DecimalsForDenom(coin.Denom)
			if err != nil {
				trancheLogger.Warn().
					Str("txHash", txHash).
					Str("denom", coin.Denom).
					Str("amount", coin.Amount.String()).
					Msg("Deposit in unsupported denom ignored")
				continue
			}

			standardized, err := utils.StandardizeAmount(coin.Amount, decimals)
			if err != nil {
				trancheLogger.Warn().Err(err).
					Str("txHash", txHash).
					Str("denom", coin.Denom).
					Msg("Deposit amount could not be standardized; ignored")
				continue
			}

			deposits = append(deposits, types.DepositEvent{
				TxHash:             txHash,
				MsgIndex:           index,
				Height:             res.Height,
				Timestamp:          observedAt,
				Depositor:          msgSend.FromAddress,
				Side:               side,
				DepositDenom:       coin.Denom,
				DepositAmount:      coin.Amount,
				StandardizedAmount: standardized,
			})

			trancheLogger.Debug().
				Str("txHash", txHash).
				Int("msgIndex", index).
				Str("depositor", msgSend.FromAddress).
				Str("side", string(side)).
				Str("denom", coin.Denom).
				Str("amount", coin.Amount.String()).
				Msg("Observed tranche deposit")
		}
	}

	return deposits
}
