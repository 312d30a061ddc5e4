package certstore

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-nah/negotiate"
)

func sharingCert() *x509.Certificate {
	return &x509.Certificate{
		Raw:          []byte{0x30, 0x82, 0x01},
		SerialNumber: big.NewInt(4711),
		Subject: pkix.Name{
			CommonName:         "com.apple.kerberos.kdc",
			OrganizationalUnit: []string{"donald@example.com"},
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: []int{2, 5, 4, 13}, Value: ".Mac Sharing Certificate"},
			},
		},
	}
}

func TestMappings(t *testing.T) {
	s := New()
	cert := sharingCert()

	_, err := s.PrincipalForCertificate(cert)
	assert.ErrorIs(t, err, ErrNoMapping)

	s.MapPrincipal(cert, "donald")
	p, err := s.PrincipalForCertificate(cert)
	require.NoError(t, err)
	assert.Equal(t, "donald", p)

	s.MapAppleID(cert, "donald@example.com")
	id, err := s.AppleID(cert)
	require.NoError(t, err)
	assert.Equal(t, "donald@example.com", id)
}

func TestAppleIDFromEmailSAN(t *testing.T) {
	s := New()
	cert := sharingCert()
	cert.EmailAddresses = []string{"donald@example.com"}

	id, err := s.AppleID(cert)
	require.NoError(t, err)
	assert.Equal(t, "donald@example.com", id)
}

func TestValues(t *testing.T) {
	s := New()
	cert := sharingCert()

	vals := s.Values(cert, []string{
		negotiate.OIDDescription,
		negotiate.OIDCommonName,
		negotiate.OIDOrganizationalUnitName,
		negotiate.OIDX509V1SubjectName,
	})

	assert.Equal(t, ".Mac Sharing Certificate", vals[negotiate.OIDDescription])
	assert.Equal(t, "com.apple.kerberos.kdc", vals[negotiate.OIDCommonName])
	assert.Equal(t, "donald@example.com", vals[negotiate.OIDOrganizationalUnitName])
	assert.NotEmpty(t, vals[negotiate.OIDX509V1SubjectName])
}

func TestInferLabel(t *testing.T) {
	s := New()

	cert := sharingCert()
	assert.Equal(t, "com.apple.kerberos.kdc", s.InferLabel(cert))

	cert.Subject.CommonName = ""
	cert.EmailAddresses = []string{"donald@example.com"}
	assert.Equal(t, "donald@example.com", s.InferLabel(cert))

	cert.EmailAddresses = nil
	cert.DNSNames = []string{"mini.local"}
	assert.Equal(t, "mini.local", s.InferLabel(cert))

	cert.DNSNames = nil
	assert.Equal(t, "4711", s.InferLabel(cert))
}
