package krb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionAddAndMatch(t *testing.T) {
	col := newCollection()

	require.NoError(t, col.Add("alice@EXAMPLE.COM", map[string]string{
		"FriendlyName": "Alice",
	}))
	require.NoError(t, col.Add("user@LKDC:SHA1.AB", map[string]string{
		"lkdc-hostname": "mac-mini.local",
	}))

	caches := col.list()
	require.Len(t, caches, 2)

	cc, err := col.match("alice@EXAMPLE.COM")
	require.NoError(t, err)
	p, err := cc.Principal()
	require.NoError(t, err)
	assert.Equal(t, "alice@EXAMPLE.COM", p.String())

	name, err := cc.Config("FriendlyName")
	require.NoError(t, err)
	assert.Equal(t, []byte("Alice"), name)

	_, err = cc.Config("lkdc-hostname")
	assert.Error(t, err, "missing config keys error out")

	_, err = col.match("nobody@EXAMPLE.COM")
	assert.Error(t, err)
}

func TestCollectionNewUnique(t *testing.T) {
	col := newCollection()

	a := col.newUnique()
	b := col.newUnique()
	assert.NotEqual(t, a.Name(), b.Name())

	_, err := a.Principal()
	assert.Error(t, err, "fresh caches have no principal")

	p, err := parsePrincipal("alice@EXAMPLE.COM", "", false)
	require.NoError(t, err)
	require.NoError(t, a.Initialize(p))

	got, err := a.Principal()
	require.NoError(t, err)
	assert.Equal(t, "alice@EXAMPLE.COM", got.String())
}

func TestCollectionInitializeDropsConfig(t *testing.T) {
	col := newCollection()
	cc := col.newUnique()

	require.NoError(t, cc.SetConfig("FriendlyName", []byte("x")))

	p, err := parsePrincipal("alice@EXAMPLE.COM", "", false)
	require.NoError(t, err)
	require.NoError(t, cc.Initialize(p))

	_, err = cc.Config("FriendlyName")
	assert.Error(t, err)
}

func TestCollectionDestroy(t *testing.T) {
	col := newCollection()
	require.NoError(t, col.Add("alice@EXAMPLE.COM", nil))

	cc, err := col.match("alice@EXAMPLE.COM")
	require.NoError(t, err)
	require.NoError(t, cc.Destroy())

	assert.Empty(t, col.list())
	_, err = col.match("alice@EXAMPLE.COM")
	assert.Error(t, err)
}
