package negotiate

// Mechanism OIDs as advertised in a SPNEGO NegTokenInit hint.
const (
	OIDSPNEGO            = "1.3.6.1.5.5.2"
	OIDKerberos          = "1.2.840.113554.1.2.2"
	OIDKerberosMicrosoft = "1.2.840.48018.1.2.2"
	OIDNTLM              = "1.3.6.1.4.1.311.2.2.10"
	OIDIAKERB            = "1.3.6.1.5.2.5"
	OIDPKU2U             = "1.3.6.1.5.2.7"

	// OIDSupportsLKDC is the pseudo-mechanism a server advertises when it
	// accepts wellknown-LKDC client names.
	OIDSupportsLKDC = "1.2.752.43.14.3"
)

// Hints is the server-advertised mechanism set from a NegTokenInit,
// keyed by mechanism OID. The mapped value is the small opaque blob
// that followed the OID in the hint (usually empty; NTLM uses it to
// request raw framing).
//
// A nil Hints means the server advertised nothing, which is treated
// differently from an empty set: absent hints allow Kerberos guessing,
// an empty set does not.
type Hints map[string][]byte

// Present reports whether the server advertised any hints at all.
func (h Hints) Present() bool {
	return h != nil
}

// Contains reports whether the hint set includes the mechanism OID.
func (h Hints) Contains(oid string) bool {
	if h == nil {
		return false
	}
	_, ok := h[oid]
	return ok
}

// Value returns the opaque blob advertised with the mechanism OID.
func (h Hints) Value(oid string) []byte {
	if h == nil {
		return nil
	}
	return h[oid]
}

// rawNTLM reports whether the NTLM hint carries the 3-byte "raw" tag,
// asking the client to skip the SPNEGO wrapping.
func (h Hints) rawNTLM() bool {
	return string(h.Value(OIDNTLM)) == "raw"
}
