package negotiate

import "strings"

// Mech identifies an authentication mechanism family.
type Mech int

const (
	// MechNone matches no mechanism. IterCreds treats it as "all".
	MechNone Mech = iota
	// MechKerberos is plain Kerberos 5.
	MechKerberos
	// MechKerberosU2U is Kerberos user-to-user.
	MechKerberosU2U
	// MechIAKERB tunnels Kerberos through the acceptor.
	MechIAKERB
	// MechPKU2U is peer-to-peer public-key Kerberos.
	MechPKU2U
	// MechNTLM is NTLMv2.
	MechNTLM
)

var mechNames = []struct {
	name string
	mech Mech
}{
	{"Kerberos", MechKerberos},
	{"KerberosUser2User", MechKerberosU2U},
	{"PKU2U", MechPKU2U},
	{"IAKerb", MechIAKERB},
	{"NTLM", MechNTLM},
}

// MechSPNEGO is the name reported for selections wrapped in SPNEGO.
const MechSPNEGO = "SPNEGO"

// String returns the mechanism name, or "" for MechNone.
func (m Mech) String() string {
	for _, e := range mechNames {
		if e.mech == m {
			return e.name
		}
	}
	return ""
}

// ParseMech maps a mechanism name to its Mech, case-insensitively.
// Unknown names map to MechNone.
func ParseMech(name string) Mech {
	for _, e := range mechNames {
		if strings.EqualFold(e.name, name) {
			return e.mech
		}
	}
	return MechNone
}

// NameType classifies a client or server name string.
type NameType int

const (
	// NameTypeUnset lets addSelection apply the default for the slot
	// (Username for clients, ServiceBased for servers).
	NameTypeUnset NameType = iota
	// NameTypeUsername is a bare or domain-qualified user name.
	NameTypeUsername
	// NameTypeServiceBased is a host-based service name ("service@host").
	NameTypeServiceBased
	// NameTypeKRB5Principal is a fully qualified Kerberos principal.
	NameTypeKRB5Principal
	// NameTypeKRB5PrincipalReferral is a Kerberos principal the KDC may
	// rewrite through referrals.
	NameTypeKRB5PrincipalReferral
	// NameTypeUUID is a credential UUID (IAKerb acquisition rewrites the
	// client name to this form).
	NameTypeUUID
)

func (t NameType) String() string {
	switch t {
	case NameTypeUsername:
		return "Username"
	case NameTypeServiceBased:
		return "ServiceBasedName"
	case NameTypeKRB5Principal:
		return "KRB5Principal"
	case NameTypeKRB5PrincipalReferral:
		return "KRB5PrincipalReferral"
	case NameTypeUUID:
		return "UUID"
	}
	return "Unset"
}

// gssd name-type codes handed to in-kernel GSS consumers.
const (
	GSSDUser          = 0
	GSSDHostBased     = 1
	GSSDKRB5Principal = 2
	GSSDKRB5Referral  = 3
	GSSDNTLMPrincipal = 4
)

func (t NameType) gssdClient() int {
	switch t {
	case NameTypeUUID:
		return GSSDUser // no dedicated UUID code yet
	case NameTypeKRB5Principal, NameTypeKRB5PrincipalReferral:
		return GSSDKRB5Principal
	case NameTypeUsername:
		return GSSDNTLMPrincipal
	}
	return GSSDUser
}

func (t NameType) gssdServer() int {
	switch t {
	case NameTypeServiceBased:
		return GSSDHostBased
	case NameTypeKRB5PrincipalReferral:
		return GSSDKRB5Referral
	case NameTypeKRB5Principal:
		return GSSDKRB5Principal
	}
	return GSSDHostBased
}

// Service classes with mechanism-selection side effects.
const (
	ServiceAFP  = "afpserver"
	ServiceCIFS = "cifs"
	ServiceHost = "host"
	ServiceVNC  = "vnc"
)

// wellknownLKDC is the pseudo-realm that selects the local KDC without
// pinning a specific host realm.
const wellknownLKDC = "WELLKNOWN:COM.APPLE.LKDC"
