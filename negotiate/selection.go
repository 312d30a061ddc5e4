package negotiate

import (
	"crypto/x509"
	"fmt"
	"strings"
)

type selFlags uint

const (
	// useSPNEGO wraps the selection's tokens in SPNEGO.
	useSPNEGO selFlags = 1 << iota
	// forceAdd bypasses the specific-name matching filter.
	forceAdd
)

// Selection is one candidate authentication configuration. Selections
// are created by the session's guessers and observed by the caller;
// fields may still be rewritten by a background resolver until the
// selection's completion latch signals.
type Selection struct {
	na *Session

	mech       Mech
	client     string
	clientType NameType
	server     string // "" until resolved
	serverType NameType
	spnego     bool

	cert     *x509.Certificate
	ccache   Cache
	label    string
	haveCred bool

	resolve *latch
}

// addSelection appends a selection unless the matching filter rejects
// it or an equal (mech, client, server, server-name-type) record
// already exists. It returns the new or existing record and whether it
// was a duplicate.
func (na *Session) addSelection(client string, clientType NameType, server string, serverType NameType, mech Mech, flags selFlags) (*Selection, bool) {
	if clientType == NameTypeUnset {
		clientType = NameTypeUsername
	}
	if serverType == NameTypeUnset {
		serverType = NameTypeServiceBased
	}

	matching := flags&forceAdd != 0 || na.specificName == "" || strings.HasPrefix(client, na.specificName)

	na.logger.Debug("addSelection",
		"mech", mech.String(),
		"client", client,
		"server", server,
		"wrap", flags&useSPNEGO != 0,
		"matching", matching)

	if !matching {
		return nil, false
	}

	na.mu.Lock()
	defer na.mu.Unlock()

	for _, s := range na.selections {
		if s.mech != mech {
			continue
		}
		if s.client != client {
			continue
		}
		if s.server != "" && server != "" && s.server != server {
			continue
		}
		if s.serverType != serverType {
			continue
		}
		return s, true
	}

	s := &Selection{
		na:         na,
		mech:       mech,
		client:     client,
		clientType: clientType,
		server:     server,
		serverType: serverType,
		spnego:     flags&useSPNEGO != 0,
	}
	if server == "" {
		s.resolve = newLatch()
	} else {
		s.resolve = newSignaledLatch()
	}

	na.selections = append(na.selections, s)
	return s, false
}

// wait blocks until the selection's server principal is resolved or the
// session is canceled. It returns false on cancellation.
func (s *Selection) wait() bool {
	return s.resolve.wait(s.na.ctx.Done())
}

// Canceled reports whether the owning session was canceled.
func (s *Selection) Canceled() bool {
	return s.na.ctx.Err() != nil
}

// Client returns the client principal. It waits for resolution; the
// second return is false if the session was canceled.
func (s *Selection) Client() (string, bool) {
	if !s.wait() {
		return "", false
	}
	s.na.mu.Lock()
	defer s.na.mu.Unlock()
	return s.client, true
}

// Server returns the server principal, waiting for resolution.
func (s *Selection) Server() (string, bool) {
	if !s.wait() {
		return "", false
	}
	s.na.mu.Lock()
	defer s.na.mu.Unlock()
	return s.server, true
}

// Mech returns the selection's inner mechanism.
func (s *Selection) Mech() Mech { return s.mech }

// UseSPNEGO reports whether tokens should be wrapped in SPNEGO.
func (s *Selection) UseSPNEGO() bool { return s.spnego }

// HaveCredential reports whether the selection already has a
// credential: a bound cache, or a credential the provider holds.
func (s *Selection) HaveCredential() bool {
	s.na.mu.Lock()
	defer s.na.mu.Unlock()
	return s.haveCred || s.ccache != nil
}

// Label returns the selection's human-readable label, if any.
func (s *Selection) Label() string {
	s.na.mu.Lock()
	defer s.na.mu.Unlock()
	return s.label
}

// Certificate returns the client certificate attached by a guesser.
func (s *Selection) Certificate() *x509.Certificate { return s.cert }

func (s *Selection) setLabel(label string) {
	s.na.mu.Lock()
	s.label = label
	s.na.mu.Unlock()
}

// setResolved installs the resolver's principals and releases waiters.
func (s *Selection) setResolved(client, server string) {
	s.na.mu.Lock()
	if client != "" {
		s.client = client
	}
	if server != "" {
		s.server = server
	}
	s.na.mu.Unlock()
	s.resolve.signal()
}

// String renders the selection for debugging, waiting for resolution.
func (s *Selection) String() string {
	if !s.wait() {
		return "<Selection: canceled>"
	}
	s.na.mu.Lock()
	defer s.na.mu.Unlock()
	mech := s.mech.String()
	outer := mech
	if s.spnego {
		outer = MechSPNEGO
	}
	wrap := "no"
	if s.spnego {
		wrap = "yes"
	}
	return fmt.Sprintf("<Selection: %s<%s>, %s %s spnego: %s>", outer, mech, s.client, s.server, wrap)
}

// Reserved GSS accessors. They wait like every other observer but are
// not part of the supported surface yet.

// GSSCredential always returns nil.
func (s *Selection) GSSCredential() any {
	if !s.wait() {
		return nil
	}
	return nil
}

// GSSAcceptorName always returns nil.
func (s *Selection) GSSAcceptorName() any {
	if !s.wait() {
		return nil
	}
	return nil
}

// GSSMech always returns nil.
func (s *Selection) GSSMech() any {
	if !s.wait() {
		return nil
	}
	return nil
}
