/*

Tranche-side primitives: which tranche a deposit targets, the supply pair the
rate engine consumes, and the on-chain deposit observations the settlement loop
turns into incentive grants.

*/

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
)

// TrancheSide identifies the senior or junior tranche.
type TrancheSide string

const (
	TrancheSenior TrancheSide = "SENIOR"
	TrancheJunior TrancheSide = "JUNIOR"
)

var ErrUnknownTrancheSide = errors.New("unknown tranche side")

// ParseTrancheSide maps a deposit memo to a tranche side. Matching is
// case-insensitive and tolerates surrounding whitespace; anything else is an
// error so unattributable transfers are never silently assigned a tranche.
func ParseTrancheSide(memo string) (TrancheSide, error) {
	switch strings.ToLower(strings.TrimSpace(memo)) {
	case "senior", "zstt":
		return TrancheSenior, nil
	case "junior", "zjtt":
		return TrancheJunior, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTrancheSide, memo)
	}
}

// TrancheSupply is a consistent read of both tranche-token supplies, tagged
// with the block height it was taken at.
type TrancheSupply struct {
	Senior sdkmath.Int `json:"senior"` // zSTT total supply, 18-decimal base units
	Junior sdkmath.Int `json:"junior"` // zJTT total supply, 18-decimal base units
	Height int64       `json:"height"` // block height of the read (0 = latest)
}

// RatioBips returns the junior:senior ratio in basis points. Errors when the
// senior supply is zero; callers must never divide blind.
func (s TrancheSupply) RatioBips() (sdkmath.Int, error) {
	if s.Senior.IsNil() || s.Junior.IsNil() {
		return sdkmath.Int{}, errors.New("tranche supply is nil")
	}
	if !s.Senior.IsPositive() {
		return sdkmath.Int{}, errors.New("senior supply is zero")
	}
	return s.Junior.MulRaw(10_000).Quo(s.Senior), nil
}

// DepositEvent is one observed tranche deposit: a bank transfer into the
// deposit address whose memo named a tranche. Amounts are kept both raw (as
// transferred) and standardized to 18 decimals for the incentive math.
type DepositEvent struct {
	TxHash             string      `json:"tx_hash"`
	MsgIndex           int         `json:"msg_index"` // position within the tx, disambiguates multi-send txs
	Height             int64       `json:"height"`
	Timestamp          time.Time   `json:"timestamp"`
	Depositor          string      `json:"depositor"`
	Side               TrancheSide `json:"side"`
	DepositDenom       string      `json:"deposit_denom"`
	DepositAmount      sdkmath.Int `json:"deposit_amount"`      // raw base units of DepositDenom
	StandardizedAmount sdkmath.Int `json:"standardized_amount"` // 18-decimal units
}
