/*

This file loads and validates the recipient routing document. The file is
read once at boot; a malformed document refuses to start the manager rather
than misrouting a distribution later.

*/

package config

import (
	"errors"
	"fmt"
	"os"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"gopkg.in/yaml.v3"

	"github.com/zivoe/ztm/internal/types"
)

// Error definitions for recipient document validation.
var (
	ErrRecipientsUnreadable = errors.New("recipients file unreadable")
	ErrRecipientsMalformed  = errors.New("recipients file malformed")
	ErrRecipientsInvalid    = errors.New("recipients document invalid")
)

// LoadRecipients reads the YAML routing document at path and validates it.
func LoadRecipients(path string) (types.RecipientSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.RecipientSet{}, fmt.Errorf("%w: %w", ErrRecipientsUnreadable, err)
	}

	var set types.RecipientSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return types.RecipientSet{}, fmt.Errorf("%w: %w", ErrRecipientsMalformed, err)
	}

	if err := ValidateRecipients(set); err != nil {
		return types.RecipientSet{}, err
	}
	return set, nil
}

// ValidateRecipients checks both routing lists: every entry carries a name, a
// bech32 address under the chain's prefix, and a positive share; each list's
// shares sum to exactly 10000 bips.
func ValidateRecipients(set types.RecipientSet) error {
	if err := validateRecipientList("protocol_recipients", set.Protocol); err != nil {
		return err
	}
	return validateRecipientList("residual_recipients", set.Residual)
}

func validateRecipientList(listName string, recipients []types.Recipient) error {
	if len(recipients) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrRecipientsInvalid, listName)
	}

	seen := make(map[string]bool, len(recipients))
	var totalBips int64
	for i, r := range recipients {
		if r.Name == "" {
			return fmt.Errorf("%w: %s[%d] has no name", ErrRecipientsInvalid, listName, i)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: %s has duplicate name %q", ErrRecipientsInvalid, listName, r.Name)
		}
		seen[r.Name] = true

		if _, err := sdk.GetFromBech32(r.Address, Bech32Prefix); err != nil {
			return fmt.Errorf("%w: %s %q has bad address %q: %w", ErrRecipientsInvalid, listName, r.Name, r.Address, err)
		}
		if r.ShareBips < 1 {
			return fmt.Errorf("%w: %s %q has share %d below 1 bip", ErrRecipientsInvalid, listName, r.Name, r.ShareBips)
		}
		totalBips += r.ShareBips
	}

	if totalBips != 10_000 {
		return fmt.Errorf("%w: %s shares sum to %d bips, want 10000", ErrRecipientsInvalid, listName, totalBips)
	}
	return nil
}
