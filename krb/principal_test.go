package krb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrincipal(t *testing.T) {
	p, err := parsePrincipal("alice@EXAMPLE.COM", "", false)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.base)
	assert.Equal(t, "EXAMPLE.COM", p.Realm())
	assert.Equal(t, "alice@EXAMPLE.COM", p.String())
	assert.False(t, p.IsLKDC())
}

func TestParsePrincipalDefaultRealm(t *testing.T) {
	p, err := parsePrincipal("alice", "EXAMPLE.COM", false)
	require.NoError(t, err)
	assert.Equal(t, "alice@EXAMPLE.COM", p.String())

	p, err = parsePrincipal("alice", "", false)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.String())
	assert.Equal(t, "", p.Realm())
}

func TestParsePrincipalEnterprise(t *testing.T) {
	// The realm is after the last @; the enterprise name keeps its
	// inner qualifier.
	p, err := parsePrincipal("alice@sub@REALM", "", true)
	require.NoError(t, err)
	assert.Equal(t, "alice@sub", p.base)
	assert.Equal(t, "REALM", p.Realm())
	assert.True(t, p.enterprise)
}

func TestParsePrincipalMalformed(t *testing.T) {
	_, err := parsePrincipal("", "", false)
	assert.Error(t, err)

	_, err = parsePrincipal("@REALM", "", false)
	assert.Error(t, err)

	_, err = parsePrincipal("alice@", "", false)
	assert.Error(t, err)
}

func TestRealmIsLKDC(t *testing.T) {
	assert.True(t, RealmIsLKDC("LKDC:SHA1.C24786BD8F9BA3B0"))
	assert.True(t, RealmIsLKDC("WELLKNOWN:COM.APPLE.LKDC"))
	assert.False(t, RealmIsLKDC("EXAMPLE.COM"))
	assert.False(t, RealmIsLKDC(""))
}

func TestPrincipalIsLKDC(t *testing.T) {
	p, err := parsePrincipal("ABCDEF@LKDC:SHA1.1234", "", false)
	require.NoError(t, err)
	assert.True(t, p.IsLKDC())
}
