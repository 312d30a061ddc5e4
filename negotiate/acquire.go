package negotiate

import (
	"errors"
	"fmt"
	"strings"
)

// nahCreated marks credentials and caches this package originated.
// Reference counting refuses to touch anything without it.
const nahCreated = "nah-created"

// AcquireInfo carries per-acquisition options.
type AcquireInfo struct {
	// ForceRefresh acquires fresh credentials even when the selection
	// already has a bound cache.
	ForceRefresh bool
}

// AcquireCredential acquires credentials for the selection and blocks
// until the result is in. It fails immediately with ErrCanceled if the
// session is canceled while waiting for server resolution.
func (s *Selection) AcquireCredential(info *AcquireInfo) error {
	if !s.wait() {
		return ErrCanceled
	}

	done := make(chan error, 1)
	if !s.AcquireCredentialHaveResult(info, func(err error) { done <- err }) {
		return ErrInsufficientCredentials
	}

	select {
	case err := <-done:
		return err
	case <-s.na.ctx.Done():
		return ErrCanceled
	}
}

// AcquireCredentialAsync waits for server resolution on a background
// goroutine and then acquires. cb receives the final result exactly
// once.
func (s *Selection) AcquireCredentialAsync(info *AcquireInfo, cb func(error)) {
	s.na.bg.Add(1)
	go func() {
		defer s.na.bg.Done()
		if !s.wait() {
			cb(fmt.Errorf("resolve server for %s: %w", s.client, ErrCanceled))
			return
		}
		if !s.AcquireCredentialHaveResult(info, cb) {
			cb(ErrInsufficientCredentials)
		}
	}()
}

// AcquireCredentialHaveResult starts acquisition without waiting for
// server resolution. It returns false when the selection has nothing to
// acquire with; otherwise cb receives the result exactly once.
func (s *Selection) AcquireCredentialHaveResult(info *AcquireInfo, cb func(error)) bool {
	if info == nil {
		info = &AcquireInfo{}
	}

	switch s.mech {
	case MechKerberos, MechKerberosU2U, MechPKU2U:
		return s.acquireKerberosStart(info, cb)
	case MechNTLM:
		return s.acquireNTLM(cb)
	case MechIAKERB:
		return s.acquireIAKERB(cb)
	}

	s.na.logger.Debug("acquire: unknown mechanism", "mech", int(s.mech))
	return false
}

func (s *Selection) acquireKerberosStart(info *AcquireInfo, cb func(error)) bool {
	na := s.na

	na.logger.Debug("acquire: kerberos", "client", s.client, "server", s.server)

	// An already-bound cache satisfies the request without touching the
	// KDC; just bump the credential's reference count.
	if s.ccache != nil && !info.ForceRefresh {
		na.mu.Lock()
		client := s.client
		na.mu.Unlock()
		if !na.credChange(s.mech, client, 1, "") {
			na.logger.Debug("acquire: cache hit without refcountable credential",
				"client", client)
		}
		go cb(nil)
		return true
	}

	if na.password == "" && s.cert == nil {
		na.logger.Debug("acquire: no password or cert, punting")
		return false
	}

	na.bg.Add(1)
	go func() {
		defer na.bg.Done()
		cb(na.acquireKerberos(s))
	}()
	return true
}

// acquireKerberos runs the initial-credential exchange for the
// selection and stores the result in a matching cache. If the KDC
// canonicalised the client through referrals, the selection's client
// and server principals are rewritten to the returned forms.
func (na *Session) acquireKerberos(sel *Selection) error {
	kctx, err := na.kerberosContext()
	if err != nil {
		return &ProviderError{Mech: MechKerberos, Err: err}
	}

	na.mu.Lock()
	clientStr := sel.client
	na.mu.Unlock()

	// Two @ means an enterprise name (user@suffix@REALM).
	enterprise := strings.Count(clientStr, "@") >= 2

	client, err := kctx.ParsePrincipal(clientStr, enterprise)
	if err != nil {
		return &ParseError{Name: clientStr, Err: err}
	}

	ic, err := kctx.NewInitialCreds(client)
	if err != nil {
		return &ProviderError{Mech: MechKerberos, Err: err}
	}
	defer ic.Free()

	ic.SetCanonicalize(true)

	if sel.cert != nil {
		if err := ic.SetClientCert(sel.cert); err != nil {
			return &ProviderError{Mech: MechKerberos, Err: err}
		}
	} else {
		if err := ic.SetPassword(na.password); err != nil {
			return &ProviderError{Mech: MechKerberos, Err: err}
		}
	}

	// LKDC KDCs only answer on the host itself.
	if client.IsLKDC() {
		if err := ic.SetKDCHostname("tcp/" + na.hostname); err != nil {
			return &ProviderError{Mech: MechKerberos, Err: err}
		}
	}

	if err := ic.Get(na.ctx); err != nil {
		return &ProviderError{Mech: MechKerberos, Err: fmt.Errorf("acquire for %s: %w", clientStr, err)}
	}

	newClient, err := ic.Client()
	if err != nil {
		return &ProviderError{Mech: MechKerberos, Err: err}
	}

	na.logger.Debug("acquire: got client principal", "client", newClient.String())

	cc, err := kctx.CacheMatch(newClient)
	fresh := false
	if err != nil {
		cc, err = kctx.NewUniqueCache()
		if err != nil {
			return &ProviderError{Mech: MechKerberos, Err: err}
		}
		fresh = true
	}
	fail := func(err error) error {
		if fresh {
			cc.Destroy()
		} else {
			cc.Close()
		}
		return &ProviderError{Mech: MechKerberos, Err: err}
	}

	if err := cc.Initialize(newClient); err != nil {
		return fail(err)
	}
	if err := ic.Store(cc); err != nil {
		return fail(err)
	}
	if err := ic.StoreConfig(cc); err != nil {
		return fail(err)
	}

	// The KDC might have played referral games, update the principals.
	isLKDC := newClient.IsLKDC()
	if newClient.String() != clientStr {
		realm := newClient.Realm()
		var server string
		if isLKDC {
			server = fmt.Sprintf("%s/%s@%s", na.service, realm, realm)
		} else {
			server = fmt.Sprintf("%s/%s@%s", na.service, na.hostname, realm)
		}
		na.mu.Lock()
		sel.client = newClient.String()
		sel.server = server
		na.mu.Unlock()
	}

	na.setFriendlyName(sel, cc, isLKDC)

	cc.SetConfig(nahCreated, []byte("1"))
	cc.Close()

	na.logger.Debug("acquire: kerberos successful")
	return nil
}

// setFriendlyName derives a human-readable label for the credential and
// stamps it into the cache and the selection.
func (na *Session) setFriendlyName(sel *Selection, cc Cache, isLKDC bool) {
	var label string

	switch {
	case sel.cert != nil && na.certStore != nil:
		if id, err := na.certStore.AppleID(sel.cert); err == nil {
			label = id
		} else {
			vals := na.certStore.Values(sel.cert, []string{
				OIDDescription, OIDCommonName, OIDOrganizationalUnitName, OIDX509V1SubjectName,
			})
			desc := vals[OIDDescription]
			if desc == ".Mac Sharing Certificate" || desc == "MobileMe Sharing Certificate" {
				cn, ou := vals[OIDCommonName], vals[OIDOrganizationalUnitName]
				if cn != "" && ou != "" {
					label = cn + "@" + ou
				}
			}
		}
		if label == "" {
			label = na.certStore.InferLabel(sel.cert)
		}
	case na.specificName != "" || isLKDC:
		label = na.username
	default:
		na.mu.Lock()
		label = sel.client
		na.mu.Unlock()
	}

	if label == "" {
		return
	}
	cc.SetConfig("FriendlyName", []byte(label))
	sel.setLabel(label)
}

func (s *Selection) acquireNTLM(cb func(error)) bool {
	na := s.na

	na.logger.Debug("acquire: ntlm", "client", s.client)

	if s.haveCred {
		go cb(nil)
		return true
	}
	if na.password == "" || na.creds == nil {
		return false
	}

	s.setLabel(s.client)

	user, realm := s.client, ""
	if i := strings.Index(user, "@"); i >= 0 {
		user, realm = user[:i], user[i+1:]
	}

	// The provider posts its callback from its own goroutine; block
	// until it fires (bounded by the provider's own timeout).
	fired := make(chan struct{})
	na.creds.AcquireCred(na.ctx, s.client, MechNTLM,
		Identity{Username: user, Realm: realm, Password: na.password},
		func(cred GSSCred, err error) {
			if err == nil && cred == nil {
				err = &ProviderError{Mech: MechNTLM, Code: 1,
					Err: errors.New("failed to create ntlm cred")}
			}
			if err == nil {
				cred.SetLabel("FriendlyName", []byte(user))
				cred.SetLabel(nahCreated, []byte("1"))
				cred.Release()
			}
			close(fired)
			cb(err)
		})
	<-fired
	return true
}

func (s *Selection) acquireIAKERB(cb func(error)) bool {
	na := s.na

	na.logger.Debug("acquire: iakerb", "client", s.client)

	if s.haveCred || na.password == "" || na.creds == nil {
		return false
	}

	s.setLabel(s.client)

	cred, err := na.creds.InitialCred(na.ctx, s.client, MechIAKERB, na.password)
	if err != nil {
		na.logger.Debug("acquire: iakerb failed", "error", err)
		go cb(&ProviderError{Mech: MechIAKERB, Err: err})
		return true
	}

	id, err := cred.UUID()
	if err != nil {
		na.logger.Debug("acquire: iakerb credential has no uuid")
		cred.Release()
		go cb(&ProviderError{Mech: MechIAKERB, Err: err})
		return true
	}

	// Mark the credential as ours so reference counting will touch it.
	cred.SetLabel(nahCreated, []byte("1"))
	cred.Release()

	na.mu.Lock()
	s.client = id
	s.clientType = NameTypeUUID
	na.mu.Unlock()

	go cb(nil)
	return true
}
