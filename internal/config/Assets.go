/*

This file contains the decimal registry for denoms the ZTM handles.

Tranche math runs on 18-decimal standardized amounts, so every observed denom
must resolve to its native decimals before conversion. Tokenfactory denoms on
the Zivoe chain are always minted with 18 decimals; IBC stablecoins vary and
are listed here explicitly.

If a denom is not a factory denom and has no entry here, conversion fails
loudly rather than guessing decimals.

*/

package config

import (
	"fmt"
	"strings"
)

var denomDecimals = map[string]int64{
	"uusdc": 6,
	"uusdt": 6,
	"uzve":  6,

	// IBC voucher denoms for the canonical USDC/USDT channels.
	"ibc/D189335C6E4A68B513C10AB227BF253C0C318F70690A9365CF863B6A3B1E40C2": 6,
	"ibc/4ABBEF4C8926DDDB320AE5188CFD63267ABBCEFC0583E4AE05D6E5AA2401DDAB": 6,
}

// factoryDenomDecimals applies to every denom minted through the chain's
// tokenfactory module, including the tranche tokens and ZVE.
const factoryDenomDecimals = 18

// DecimalsForDenom resolves a denom to its native decimal count.
func DecimalsForDenom(denom string) (int64, error) {
	if decimals, ok := denomDecimals[denom]; ok {
		return decimals, nil
	}
	if strings.HasPrefix(denom, "factory/") {
		return factoryDenomDecimals, nil
	}
	return 0, fmt.Errorf("no decimal registry entry for denom %q", denom)
}
