package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-nah/negotiate"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nah.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestGSSEnableDefaultsTrue(t *testing.T) {
	path := writeConfig(t, "UserSelections: []\n")
	s, err := OpenFile(path)
	require.NoError(t, err)
	assert.True(t, s.GSSEnable())
}

func TestGSSEnableExplicit(t *testing.T) {
	path := writeConfig(t, "GSSEnable: false\n")
	s, err := OpenFile(path)
	require.NoError(t, err)
	assert.False(t, s.GSSEnable())
}

func TestUserSelections(t *testing.T) {
	path := writeConfig(t, `
UserSelections:
  - mech: Kerberos
    domain: fs.example.com
    user: alice
    client: alice@CORP.EXAMPLE.COM
  - mech: NTLM
    domain: nas.example.com
    client: alice@NAS
`)
	s, err := OpenFile(path)
	require.NoError(t, err)

	got := s.UserSelections()
	assert.Equal(t, []negotiate.UserSelection{
		{Mech: "Kerberos", Domain: "fs.example.com", User: "alice", Client: "alice@CORP.EXAMPLE.COM"},
		{Mech: "NTLM", Domain: "nas.example.com", Client: "alice@NAS"},
	}, got)
}

func TestUserSelectionsAbsent(t *testing.T) {
	path := writeConfig(t, "GSSEnable: true\n")
	s, err := OpenFile(path)
	require.NoError(t, err)
	assert.Empty(t, s.UserSelections())
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	s := &Static{
		Enable: true,
		Selections: []negotiate.UserSelection{
			{Mech: "Kerberos", Domain: "fs.example.com", Client: "alice@CORP"},
		},
	}
	assert.True(t, s.GSSEnable())
	assert.Len(t, s.UserSelections(), 1)
}
