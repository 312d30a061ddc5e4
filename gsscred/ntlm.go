package gsscred

import (
	"github.com/Azure/go-ntlmssp"

	"github.com/smnsjas/go-nah/negotiate"
)

// splitIdentity fills in a missing realm from a `domain\user`
// qualifier, using the same splitting the NTLM handshake applies.
// "user@domain" names are left whole, with an empty realm.
func splitIdentity(id negotiate.Identity) negotiate.Identity {
	if id.Realm != "" {
		return id
	}

	user, domain, _ := ntlmssp.GetDomain(id.Username)
	id.Username = user
	id.Realm = domain
	return id
}
