package negotiate

import (
	"context"
	"crypto/x509"
)

// KerberosProvider opens Kerberos contexts. A context is session-scoped;
// the core calls it from the guessers, from background resolvers and
// from acquisitions, which may run at the same time.
type KerberosProvider interface {
	NewContext() (KerberosContext, error)
}

// KerberosContext is the set of libkrb5-style operations the guessers
// and the acquisition path drive.
type KerberosContext interface {
	// ParsePrincipal parses a principal string. enterprise selects
	// enterprise-name parsing (user@suffix@REALM forms).
	ParsePrincipal(name string, enterprise bool) (Principal, error)

	// Caches enumerates the credential-cache collection.
	Caches() ([]Cache, error)

	// CacheMatch finds the cache holding credentials for client.
	CacheMatch(client Principal) (Cache, error)

	// NewUniqueCache creates a new, uniquely named cache.
	NewUniqueCache() (Cache, error)

	// HostRealms returns candidate realms for a hostname.
	HostRealms(hostname string) ([]string, error)

	// DefaultRealms returns the configured default realms.
	DefaultRealms() ([]string, error)

	// DiscoverLocalRealm resolves the LKDC realm of a host on the local
	// network. It may block on a network lookup.
	DiscoverLocalRealm(ctx context.Context, hostname string) (string, error)

	// NewInitialCreds starts an initial-credential exchange for client.
	NewInitialCreds(client Principal) (InitialCreds, error)

	Close() error
}

// Principal is a parsed Kerberos principal.
type Principal interface {
	String() string
	Realm() string
	IsLKDC() bool
}

// Cache is one credential cache in the provider's collection.
type Cache interface {
	Name() string
	Principal() (Principal, error)

	// Config reads a per-cache configuration entry. A missing key
	// returns an error.
	Config(key string) ([]byte, error)
	// SetConfig writes a configuration entry. A nil value deletes it.
	SetConfig(key string, value []byte) error

	// Initialize binds the cache to a client principal, dropping any
	// previous contents.
	Initialize(client Principal) error

	Close() error
	Destroy() error
}

// InitialCreds drives one AS exchange: configure, run, store.
type InitialCreds interface {
	SetPassword(password string) error
	// SetClientCert configures PKINIT pre-authentication.
	SetClientCert(cert *x509.Certificate) error
	// SetKDCHostname pins the exchange to one KDC ("tcp/host").
	SetKDCHostname(host string) error
	SetCanonicalize(on bool)

	// Get runs the exchange.
	Get(ctx context.Context) error

	// Client returns the client principal the KDC answered with, which
	// may differ from the requested one through referrals.
	Client() (Principal, error)

	// Store writes the obtained credentials into cache.
	Store(cache Cache) error
	// StoreConfig persists the exchange configuration into cache.
	StoreConfig(cache Cache) error

	Free()
}

// Identity is the credential triple handed to AcquireCred.
type Identity struct {
	Username string
	Realm    string
	Password string
}

// CredProvider manages NTLM and IAKerb credentials.
//
// Implementations are safe for concurrent use; callbacks may be invoked
// from provider-owned goroutines.
type CredProvider interface {
	// AcquireCred acquires an initiator credential for name using
	// identity and posts the result to cb exactly once.
	AcquireCred(ctx context.Context, name string, mech Mech, identity Identity, cb func(GSSCred, error))

	// IterCreds calls cb for every held credential of mech (MechNone
	// iterates all mechanisms), then once with nil as the terminator.
	IterCreds(mech Mech, cb func(GSSCred))

	// InitialCred performs IAKerb-style initial credential acquisition
	// with a password.
	InitialCred(ctx context.Context, name string, mech Mech, password string) (GSSCred, error)

	// Find locates an already-held credential by mechanism and name;
	// the name may also be the credential's UUID (IAKerb acquisition
	// rewrites clients to that form).
	Find(mech Mech, name string) (GSSCred, error)
}

// GSSCred is one credential held by a CredProvider.
type GSSCred interface {
	DisplayName() string

	// UUID returns the credential's stable identifier.
	UUID() (string, error)

	// Label reads a label; a missing label returns an error.
	Label(key string) ([]byte, error)
	// SetLabel writes a label. A nil value deletes it.
	SetLabel(key string, value []byte) error

	Hold() error
	Unhold() error

	Release()
}

// CertStore resolves client-certificate identities to names and labels.
type CertStore interface {
	// PrincipalForCertificate returns the Kerberos principal mapped to
	// the certificate, if the store holds such a mapping.
	PrincipalForCertificate(cert *x509.Certificate) (string, error)

	// AppleID extracts the certificate's AppleID account attribute.
	AppleID(cert *x509.Certificate) (string, error)

	// InferLabel derives a human-readable label from the certificate.
	InferLabel(cert *x509.Certificate) string

	// Values extracts the requested subject attributes, keyed by OID.
	Values(cert *x509.Certificate, oids []string) map[string]string
}

// Subject attribute keys for CertStore.Values: the standard attribute
// OIDs plus a pseudo key selecting the whole rendered subject.
const (
	OIDDescription            = "2.5.4.13"
	OIDCommonName             = "2.5.4.3"
	OIDOrganizationalUnitName = "2.5.4.11"
	OIDX509V1SubjectName      = "x509.v1.subject"
)

// UserSelection is one user-preference override entry.
type UserSelection struct {
	Mech   string
	Domain string
	// User restricts the entry to one session user; empty matches any.
	User   string
	Client string
}

// PrefStore reads the user preferences the guessers consult.
type PrefStore interface {
	// GSSEnable reports the GSS feature flag; true when unset.
	GSSEnable() bool

	// UserSelections returns the user's override list.
	UserSelections() []UserSelection
}
