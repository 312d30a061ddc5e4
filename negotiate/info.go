package negotiate

// InfoKey selects a field from GetInfoForKey.
type InfoKey string

const (
	InfoHaveCredential  InfoKey = "HaveCredential"
	InfoUserPrintable   InfoKey = "UserPrintable"
	InfoClientPrincipal InfoKey = "ClientPrincipal"
	InfoServerPrincipal InfoKey = "ServerPrincipal"
	InfoMechanism       InfoKey = "Mechanism"
	InfoInnerMechanism  InfoKey = "InnerMechanism"
	InfoCredentialType  InfoKey = "CredentialType"
	InfoUseSPNEGO       InfoKey = "UseSPNEGO"
	InfoInferredLabel   InfoKey = "InferredLabel"

	// Keys present only in CopyAuthInfo output.
	InfoClientNameType     InfoKey = "ClientNameType"
	InfoClientNameTypeGSSD InfoKey = "ClientNameTypeGSSD"
	InfoServerNameType     InfoKey = "ServerNameType"
	InfoServerNameTypeGSSD InfoKey = "ServerNameTypeGSSD"
)

// GetInfoForKey returns one projected field of the selection, waiting
// for server resolution first. It returns nil on cancellation or for
// unknown keys.
func (s *Selection) GetInfoForKey(key InfoKey) any {
	if !s.wait() {
		return nil
	}

	s.na.mu.Lock()
	defer s.na.mu.Unlock()

	switch key {
	case InfoHaveCredential:
		return s.ccache != nil
	case InfoUserPrintable:
		return s.client
	case InfoClientPrincipal:
		return s.client
	case InfoServerPrincipal:
		return s.server
	case InfoMechanism:
		// If not told otherwise, everything is wrapped in SPNEGO.
		if s.spnego {
			return MechSPNEGO
		}
		return s.mech.String()
	case InfoInnerMechanism:
		return s.mech.String()
	case InfoCredentialType:
		return s.mech.String()
	case InfoUseSPNEGO:
		return s.spnego
	case InfoInferredLabel:
		if s.label == "" {
			return nil
		}
		return s.label
	}
	return nil
}

// CopyAuthInfo projects the selection into the map handed to the
// GSS-driving caller, including the numeric gssd name-type codes. It
// returns nil when the session was canceled or the server principal is
// still unresolved.
func (s *Selection) CopyAuthInfo() map[InfoKey]any {
	if !s.wait() {
		return nil
	}

	s.na.mu.Lock()
	server := s.server
	clientType := s.clientType
	serverType := s.serverType
	s.na.mu.Unlock()

	if server == "" {
		return nil
	}

	info := map[InfoKey]any{
		InfoMechanism:      s.GetInfoForKey(InfoMechanism),
		InfoCredentialType: s.GetInfoForKey(InfoCredentialType),

		InfoClientNameType:     clientType,
		InfoClientNameTypeGSSD: clientType.gssdClient(),
		InfoServerNameType:     serverType,
		InfoServerNameTypeGSSD: serverType.gssdServer(),

		InfoClientPrincipal: s.GetInfoForKey(InfoClientPrincipal),
		InfoServerPrincipal: s.GetInfoForKey(InfoServerPrincipal),

		InfoUseSPNEGO: s.GetInfoForKey(InfoUseSPNEGO),
	}

	if label := s.GetInfoForKey(InfoInferredLabel); label != nil {
		info[InfoInferredLabel] = label
	}

	return info
}
