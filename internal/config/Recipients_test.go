package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/zivoe/ztm/internal/types"
)

func testAddress(t *testing.T, seed byte) string {
	t.Helper()
	bz := make([]byte, 20)
	for i := range bz {
		bz[i] = seed
	}
	addr, err := sdk.Bech32ifyAddressBytes(Bech32Prefix, bz)
	require.NoError(t, err)
	return addr
}

func validRecipientSet(t *testing.T) types.RecipientSet {
	t.Helper()
	return types.RecipientSet{
		Protocol: []types.Recipient{
			{Name: "treasury", Address: testAddress(t, 1), ShareBips: 7_000},
			{Name: "dao", Address: testAddress(t, 2), ShareBips: 3_000},
		},
		Residual: []types.Recipient{
			{Name: "insurance-fund", Address: testAddress(t, 3), ShareBips: 10_000},
		},
	}
}

func TestValidateRecipients(t *testing.T) {
	require.NoError(t, ValidateRecipients(validRecipientSet(t)))
}

func TestLoadRecipients(t *testing.T) {
	doc := fmt.Sprintf(`protocol_recipients:
  - name: treasury
    address: %s
    share_bips: 7000
  - name: dao
    address: %s
    share_bips: 3000
residual_recipients:
  - name: insurance-fund
    address: %s
    share_bips: 10000
`, testAddress(t, 1), testAddress(t, 2), testAddress(t, 3))

	path := filepath.Join(t.TempDir(), "recipients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	set, err := LoadRecipients(path)
	require.NoError(t, err)
	require.Len(t, set.Protocol, 2)
	require.Equal(t, "treasury", set.Protocol[0].Name)
	require.EqualValues(t, 7_000, set.Protocol[0].ShareBips)
	require.Len(t, set.Residual, 1)
}

func TestLoadRecipientsMissingFile(t *testing.T) {
	_, err := LoadRecipients(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, ErrRecipientsUnreadable)
}

func TestLoadRecipientsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipients.yaml")
	require.NoError(t, os.WriteFile(path, []byte("protocol_recipients: {nope"), 0o600))

	_, err := LoadRecipients(path)
	require.ErrorIs(t, err, ErrRecipientsMalformed)
}

func TestValidateRecipientsRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(set *types.RecipientSet, t *testing.T)
	}{
		{"empty protocol list", func(set *types.RecipientSet, t *testing.T) {
			set.Protocol = nil
		}},
		{"shares under full", func(set *types.RecipientSet, t *testing.T) {
			set.Protocol[0].ShareBips = 6_999
		}},
		{"shares over full", func(set *types.RecipientSet, t *testing.T) {
			set.Residual[0].ShareBips = 10_001
		}},
		{"zero share", func(set *types.RecipientSet, t *testing.T) {
			set.Protocol[0].ShareBips = 0
		}},
		{"missing name", func(set *types.RecipientSet, t *testing.T) {
			set.Protocol[0].Name = ""
		}},
		{"duplicate name", func(set *types.RecipientSet, t *testing.T) {
			set.Protocol[1].Name = set.Protocol[0].Name
		}},
		{"foreign address prefix", func(set *types.RecipientSet, t *testing.T) {
			addr, err := sdk.Bech32ifyAddressBytes("cosmos", make([]byte, 20))
			require.NoError(t, err)
			set.Protocol[0].Address = addr
		}},
		{"garbage address", func(set *types.RecipientSet, t *testing.T) {
			set.Protocol[0].Address = "not-an-address"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := validRecipientSet(t)
			tc.mutate(&set, t)
			require.ErrorIs(t, ValidateRecipients(set), ErrRecipientsInvalid)
		})
	}
}
