package tranche

import (
	sdkmath "cosmossdk.io/math"

	"github.com/zivoe/ztm/internal/types"
)

// TrancheReader defines the interface for reading tranche state from the
// chain. This interface abstracts away the specific implementation details of
// chain access, allowing for different implementations (live, simulation,
// test fixtures).
type TrancheReader interface {
	// TrancheSupplies returns the current total supplies of both tranche
	// tokens at the latest committed height.
	TrancheSupplies() (types.TrancheSupply, error)

	// SuppliesAtHeight returns both tranche-token supplies pinned to a
	// specific block height. Incentive pricing reads the pre-deposit state
	// this way, so a deposit can never dilute its own reward.
	SuppliesAtHeight(height int64) (types.TrancheSupply, error)

	// AccountBalance returns an address's spendable balance of one denom.
	AccountBalance(address string, denom string) (sdkmath.Int, error)

	// LatestHeight returns the chain's latest committed block height.
	LatestHeight() (int64, error)

	// DepositsSince scans tranche deposits in (fromHeight, tip] and returns
	// them oldest-first along with the new cursor height. A deposit is a
	// successful bank send to the deposit address whose memo names a tranche.
	DepositsSince(fromHeight int64) ([]types.DepositEvent, int64, error)

	// Close cleans up any resources used by the reader.
	Close() error
}
