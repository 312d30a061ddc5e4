package negotiate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHintsPresence(t *testing.T) {
	var none Hints
	assert.False(t, none.Present())
	assert.False(t, none.Contains(OIDKerberos))
	assert.Nil(t, none.Value(OIDNTLM))

	empty := Hints{}
	assert.True(t, empty.Present())
	assert.False(t, empty.Contains(OIDKerberos))

	h := Hints{OIDNTLM: []byte("raw")}
	assert.True(t, h.Contains(OIDNTLM))
	assert.True(t, h.rawNTLM())

	h[OIDNTLM] = nil
	assert.True(t, h.Contains(OIDNTLM), "nil value still counts as advertised")
	assert.False(t, h.rawNTLM())
}

func TestParseMech(t *testing.T) {
	assert.Equal(t, MechKerberos, ParseMech("Kerberos"))
	assert.Equal(t, MechKerberos, ParseMech("kerberos"))
	assert.Equal(t, MechIAKERB, ParseMech("IAKerb"))
	assert.Equal(t, MechNTLM, ParseMech("ntlm"))
	assert.Equal(t, MechNone, ParseMech("Bogus"))
	assert.Equal(t, MechNone, ParseMech(""))
}

func TestMechString(t *testing.T) {
	assert.Equal(t, "Kerberos", MechKerberos.String())
	assert.Equal(t, "KerberosUser2User", MechKerberosU2U.String())
	assert.Equal(t, "PKU2U", MechPKU2U.String())
	assert.Equal(t, "IAKerb", MechIAKERB.String())
	assert.Equal(t, "NTLM", MechNTLM.String())
	assert.Equal(t, "", MechNone.String())
}

func TestDeconstructServiceName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plainhost.example.com", "plainhost.example.com"},
		{"mini._afpovertcp._tcp.local.", "mini"},
		{`My\.Server._smb._tcp.local.`, "My.Server"},
		{"_tcp.local", "_tcp.local"}, // leading service label is not decoration
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, deconstructServiceName(tc.in), "input %q", tc.in)
	}
}
