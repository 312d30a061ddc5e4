package krb

import (
	"fmt"
	"strings"
)

// lkdcRealmPrefix marks a per-host local KDC realm.
const lkdcRealmPrefix = "LKDC:"

// wellknownLKDCRealm selects LKDC without naming a host realm.
const wellknownLKDCRealm = "WELLKNOWN:COM.APPLE.LKDC"

// RealmIsLKDC reports whether a realm names a local KDC.
func RealmIsLKDC(realm string) bool {
	return strings.HasPrefix(realm, lkdcRealmPrefix) || realm == wellknownLKDCRealm
}

// principal is a parsed Kerberos principal. base never contains the
// realm qualifier; enterprise names keep their inner @ in base.
type principal struct {
	base       string
	realm      string
	enterprise bool
}

func parsePrincipal(name, defaultRealm string, enterprise bool) (*principal, error) {
	if name == "" {
		return nil, fmt.Errorf("krb: empty principal")
	}

	i := strings.LastIndex(name, "@")
	if i < 0 {
		if defaultRealm == "" {
			return &principal{base: name}, nil
		}
		return &principal{base: name, realm: defaultRealm, enterprise: enterprise}, nil
	}
	if i == 0 || i == len(name)-1 {
		return nil, fmt.Errorf("krb: malformed principal %q", name)
	}

	return &principal{
		base:       name[:i],
		realm:      name[i+1:],
		enterprise: enterprise,
	}, nil
}

func (p *principal) String() string {
	if p.realm == "" {
		return p.base
	}
	return p.base + "@" + p.realm
}

func (p *principal) Realm() string { return p.realm }

func (p *principal) IsLKDC() bool { return RealmIsLKDC(p.realm) }
