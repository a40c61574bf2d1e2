/*

EpochSnapshot is the persisted record of one distribution run: the inputs the
waterfall saw, the rates it computed, what it paid, and the smoothed analytics
columns the dashboard charts.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type EpochSnapshot struct {
	EpochNumber  int64     `json:"epoch_number"`
	Timestamp    time.Time `json:"timestamp"`
	ParametersID int64     `json:"parameters_id"` // tranche_parameters row in force
	Height       int64     `json:"height"`        // block height the supplies were pinned at

	SeniorSupply sdkmath.Int `json:"senior_supply"`
	JuniorSupply sdkmath.Int `json:"junior_supply"`

	GrossYield      sdkmath.Int `json:"gross_yield"`
	ProtocolFee     sdkmath.Int `json:"protocol_fee"`
	YieldBag        sdkmath.Int `json:"yield_bag"`
	CumulativeYield sdkmath.Int `json:"cumulative_yield"` // trailing lookback sum *before* this epoch

	Branch      DistributionBranch `json:"branch"`
	YieldTarget sdkmath.Int        `json:"yield_target"`
	SeniorRate  sdkmath.Int        `json:"senior_rate"`
	JuniorRate  sdkmath.Int        `json:"junior_rate"`
	SeniorOwed  sdkmath.Int        `json:"senior_owed"`
	JuniorOwed  sdkmath.Int        `json:"junior_owed"`
	Residual    sdkmath.Int        `json:"residual"`

	// EMA analytics columns; smoothed with TrancheParameters.EmaPeriods.
	EmaYield        sdkmath.Int `json:"ema_yield"`
	EmaSeniorSupply sdkmath.Int `json:"ema_senior_supply"`
	EmaJuniorSupply sdkmath.Int `json:"ema_junior_supply"`

	TxHashes     []string        `json:"tx_hashes,omitempty"`
	Receipts     []PayoutReceipt `json:"receipts,omitempty"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"error_message,omitempty"`
}
