//go:build windows

package gsscred

import (
	"github.com/alexbrainman/sspi/ntlm"

	"github.com/smnsjas/go-nah/negotiate"
)

// validateIdentity checks the identity against the platform NTLM SSP
// before the store keeps it. A credential SSPI rejects outright would
// never authenticate anywhere.
func validateIdentity(id negotiate.Identity) error {
	cred, err := ntlm.AcquireUserCredentials(id.Realm, id.Username, id.Password)
	if err != nil {
		return err
	}
	return cred.Release()
}
