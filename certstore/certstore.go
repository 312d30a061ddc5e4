// Package certstore resolves client-certificate identities: subject
// attributes, inferred labels and the Kerberos principal and account
// mappings the negotiation guessers consult.
package certstore

import (
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"sync"

	"github.com/smnsjas/go-nah/negotiate"
)

// ErrNoMapping is returned when the store holds no association for the
// certificate.
var ErrNoMapping = errors.New("certstore: no mapping for certificate")

var (
	oidDescription            = []int{2, 5, 4, 13}
	oidCommonName             = []int{2, 5, 4, 3}
	oidOrganizationalUnitName = []int{2, 5, 4, 11}
)

// Store maps certificates to principals and account names. Mappings
// are registered by whoever provisioned the certificate; attribute
// extraction works on any certificate.
type Store struct {
	mu         sync.Mutex
	principals map[string]string
	accounts   map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		principals: map[string]string{},
		accounts:   map[string]string{},
	}
}

func fingerprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return fmt.Sprintf("%X", sum[:])
}

// MapPrincipal associates a Kerberos principal with the certificate.
func (s *Store) MapPrincipal(cert *x509.Certificate, principal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[fingerprint(cert)] = principal
}

// MapAppleID associates an AppleID account name with the certificate.
func (s *Store) MapAppleID(cert *x509.Certificate, account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[fingerprint(cert)] = account
}

// PrincipalForCertificate returns the Kerberos principal mapped to the
// certificate.
func (s *Store) PrincipalForCertificate(cert *x509.Certificate) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.principals[fingerprint(cert)]; ok {
		return p, nil
	}
	return "", ErrNoMapping
}

// AppleID returns the certificate's AppleID account: the registered
// mapping, or the first email SAN as issued sharing certificates carry
// it.
func (s *Store) AppleID(cert *x509.Certificate) (string, error) {
	s.mu.Lock()
	account, ok := s.accounts[fingerprint(cert)]
	s.mu.Unlock()
	if ok {
		return account, nil
	}
	if len(cert.EmailAddresses) > 0 {
		return cert.EmailAddresses[0], nil
	}
	return "", ErrNoMapping
}

// InferLabel derives a display label from the certificate subject.
func (s *Store) InferLabel(cert *x509.Certificate) string {
	if cn := cert.Subject.CommonName; cn != "" {
		return cn
	}
	if len(cert.EmailAddresses) > 0 {
		return cert.EmailAddresses[0]
	}
	if len(cert.DNSNames) > 0 {
		return cert.DNSNames[0]
	}
	return cert.SerialNumber.String()
}

// Values extracts the requested subject attributes, keyed by the OID
// strings from the negotiate package.
func (s *Store) Values(cert *x509.Certificate, oids []string) map[string]string {
	out := map[string]string{}
	for _, oid := range oids {
		switch oid {
		case negotiate.OIDDescription:
			if v := subjectAttribute(cert.Subject, oidDescription); v != "" {
				out[oid] = v
			}
		case negotiate.OIDCommonName:
			if cert.Subject.CommonName != "" {
				out[oid] = cert.Subject.CommonName
			}
		case negotiate.OIDOrganizationalUnitName:
			if len(cert.Subject.OrganizationalUnit) > 0 {
				out[oid] = cert.Subject.OrganizationalUnit[0]
			}
		case negotiate.OIDX509V1SubjectName:
			out[oid] = cert.Subject.String()
		}
	}
	return out
}

// subjectAttribute digs an attribute the pkix.Name fields don't cover
// out of the raw subject sequence.
func subjectAttribute(subject pkix.Name, oid []int) string {
	match := func(atv pkix.AttributeTypeAndValue) string {
		if len(atv.Type) != len(oid) {
			return ""
		}
		for i := range oid {
			if atv.Type[i] != oid[i] {
				return ""
			}
		}
		if s, ok := atv.Value.(string); ok {
			return s
		}
		return ""
	}

	for _, atv := range subject.Names {
		if v := match(atv); v != "" {
			return v
		}
	}
	for _, atv := range subject.ExtraNames {
		if v := match(atv); v != "" {
			return v
		}
	}
	return ""
}
