/*

Payout planning types: the distribution waterfall's output (a PayoutPlan of
addressed legs), per-leg receipts, broadcast results, and the incentive grants
the settlement loop accrues and pays.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// DistributionBranch labels which rate-policy branch an epoch resolved to.
type DistributionBranch string

const (
	BranchShortfall DistributionBranch = "SHORTFALL" // target exceeded the bag; pro-rata division
	BranchSaturated DistributionBranch = "SATURATED" // lookback window already met; plain target
	BranchCatchUp   DistributionBranch = "CATCH_UP"  // blended catch-up toward the window target
)

// PayoutPurpose tags what a leg pays for.
type PayoutPurpose string

const (
	PayoutSeniorYield PayoutPurpose = "SENIOR_YIELD"
	PayoutJuniorYield PayoutPurpose = "JUNIOR_YIELD"
	PayoutProtocolFee PayoutPurpose = "PROTOCOL_FEE"
	PayoutResidual    PayoutPurpose = "RESIDUAL"
	PayoutIncentive   PayoutPurpose = "INCENTIVE"
)

// PayoutLeg is one recipient-addressed transfer within a distribution.
type PayoutLeg struct {
	Purpose   PayoutPurpose `json:"purpose"`
	Name      string        `json:"name,omitempty"` // recipient label from the recipients file, if any
	Recipient string        `json:"recipient"`
	Denom     string        `json:"denom"`
	Amount    sdkmath.Int   `json:"amount"` // raw base units of Denom
}

// PayoutPlan is the fully-resolved output of the distribution waterfall for
// one epoch. Legs sum to GrossYield exactly; zero-amount legs are dropped at
// construction.
type PayoutPlan struct {
	EpochNumber int64              `json:"epoch_number"`
	Branch      DistributionBranch `json:"branch"`

	YieldTarget sdkmath.Int `json:"yield_target"` // per-epoch senior target
	SeniorRate  sdkmath.Int `json:"senior_rate"`  // divisor in shortfall epochs, amount otherwise
	JuniorRate  sdkmath.Int `json:"junior_rate"`

	GrossYield  sdkmath.Int `json:"gross_yield"`  // distribution wallet balance at snapshot
	ProtocolFee sdkmath.Int `json:"protocol_fee"` // skimmed before the waterfall
	YieldBag    sdkmath.Int `json:"yield_bag"`    // gross minus fee; what the tranches split
	SeniorOwed  sdkmath.Int `json:"senior_owed"`
	JuniorOwed  sdkmath.Int `json:"junior_owed"`
	Residual    sdkmath.Int `json:"residual"`

	Legs []PayoutLeg `json:"legs"`
}

// PayoutReceipt records the outcome of a single leg after broadcast.
type PayoutReceipt struct {
	ReceiptID   int64     `json:"receipt_id,omitempty"` // auto-incremented by DB
	EpochNumber int64     `json:"epoch_number"`
	Leg         PayoutLeg `json:"leg"`
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TransactionResult carries broadcast-level details for a signed payout batch.
type TransactionResult struct {
	TxHash       string `json:"tx_hash"`
	GasUsed      int64  `json:"gas_used"`
	GasWanted    int64  `json:"gas_wanted"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// GrantStatus tracks an incentive grant through settlement.
type GrantStatus string

const (
	GrantPending GrantStatus = "PENDING"
	GrantPaid    GrantStatus = "PAID"
	GrantSkipped GrantStatus = "SKIPPED" // zero reward: paused, junior closed, or empty reserve
)

// IncentiveGrant is one deposit's settled ZVE incentive. The pre-deposit
// supplies are stored alongside the reward so every grant is auditable against
// the curve after the fact.
type IncentiveGrant struct {
	ID                 int64       `json:"id,omitempty"`
	TxHash             string      `json:"tx_hash"`
	MsgIndex           int         `json:"msg_index"`
	Height             int64       `json:"height"`
	Depositor          string      `json:"depositor"`
	Side               TrancheSide `json:"side"`
	DepositDenom       string      `json:"deposit_denom"`
	DepositAmount      sdkmath.Int `json:"deposit_amount"`
	StandardizedAmount sdkmath.Int `json:"standardized_amount"`
	SeniorSupplyAt     sdkmath.Int `json:"senior_supply_at"` // supply at deposit height - 1
	JuniorSupplyAt     sdkmath.Int `json:"junior_supply_at"`
	Reward             sdkmath.Int `json:"reward"` // ZVE base units
	Capped             bool        `json:"capped"` // true when the reserve balance clamped the reward
	Status             GrantStatus `json:"status"`
	SkipReason         string      `json:"skip_reason,omitempty"`
	PayoutTxHash       string      `json:"payout_tx_hash,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	SettledAt          *time.Time  `json:"settled_at,omitempty"`
}
