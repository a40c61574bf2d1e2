/*

Recipient routing for the distribution waterfall. The protocol list splits the
protocol fee; the residual list splits whatever the tranches did not consume.
Both lists are loaded from a YAML document at boot and validated before any
epoch runs.

*/

package types

// Recipient is one named payout destination with its share of the pool it
// belongs to, in basis points.
type Recipient struct {
	Name      string `yaml:"name" json:"name"`
	Address   string `yaml:"address" json:"address"`
	ShareBips int64  `yaml:"share_bips" json:"share_bips"`
}

// RecipientSet carries both routing lists. Each list's shares sum to 10000
// bips exactly.
type RecipientSet struct {
	Protocol []Recipient `yaml:"protocol_recipients" json:"protocol_recipients"`
	Residual []Recipient `yaml:"residual_recipients" json:"residual_recipients"`
}
