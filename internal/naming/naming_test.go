package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Customer", "Customer"},
		{"trimmed", "  Customer  ", "Customer"},
		{"spaces", "Billing Account", "Billing_Account"},
		{"backslash and quote", `a\b'c`, "a_b_c"},
		{"slash", "in/out", "in-out"},
		{"accents", "Société Générale", "Societe_Generale"},
		{"ligature", "Straße", "Strasse"},
		{"fk suffix", "customer_fk", "customer"},
		{"fk inside kept", "a_fkb", "a_fkb"},
		{"sentinel", "_PATH", "_PATH"},
		{"unknown passes through", "名前", "名前"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, raw := range []string{"Crème brûlée", "x y/z", "order_fk", "Ærø"} {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once), raw)
	}
}
