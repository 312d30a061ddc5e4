package negotiate

import (
	"crypto/sha1"
	"crypto/x509"
	"fmt"
	"strings"
)

// guessKerberos runs the Kerberos guesser cluster. Provider failures
// here are logged and swallowed: another guesser may still produce a
// viable selection.
func (na *Session) guessKerberos() {
	tryLKDCClassic := true
	tryWLKDC := false
	tryIAKERBWithLKDC := false
	flags := useSPNEGO

	if na.gssEnable() &&
		na.password != "" &&
		na.hints.Contains(OIDIAKERB) &&
		na.hints.Contains(OIDSupportsLKDC) &&
		!na.isSMB() {
		// SMB clients can't handle IAKerb framing, everyone else gets
		// the tunnelled exchange when the server offers it.
		tryIAKERBWithLKDC = true
	} else if na.hints.Contains(OIDPKU2U) || na.hints.Contains(OIDSupportsLKDC) {
		tryWLKDC = true
	} else if na.service == ServiceVNC {
		tryWLKDC = true
	}

	// Classic LKDC is off when the server announces wellknown-name
	// support, or when it announced a SPNEGO acceptor name without an
	// LKDC realm in it.
	if na.hints.Contains(OIDPKU2U) || na.hints.Contains(OIDSupportsLKDC) {
		tryLKDCClassic = false
		na.logger.Debug("disabling classic LKDC: server announces wellknown name support")
	} else if na.spnegoServerName != "" && !strings.Contains(na.spnegoServerName, "@LKDC") {
		na.logger.Debug("disabling classic LKDC: SPNEGO acceptor name has no LKDC realm",
			"name", na.spnegoServerName)
		tryLKDCClassic = false
	}

	// Old AFP servers negotiate the mechanism themselves.
	if na.service == ServiceAFP && !na.hints.Contains(OIDSupportsLKDC) {
		flags &^= useSPNEGO
	}

	haveKerberos := !na.hints.Present() ||
		na.hints.Contains(OIDIAKERB) ||
		na.hints.Contains(OIDKerberos) ||
		na.hints.Contains(OIDKerberosMicrosoft) ||
		na.hints.Contains(OIDPKU2U)

	na.logger.Debug("guessKerberos",
		"have_kerberos", haveKerberos,
		"try_iakerb_with_lkdc", tryIAKERBWithLKDC,
		"try_wlkdc", tryWLKDC,
		"try_lkdc_classic", tryLKDCClassic,
		"use_spnego", flags&useSPNEGO != 0)

	if !haveKerberos {
		return
	}

	kctx, err := na.kerberosContext()
	if err != nil {
		na.logger.Debug("guessKerberos: no Kerberos context", "error", err)
		return
	}

	// Matching LKDC credentials beat public-key operations, try those
	// first.
	na.useExistingPrincipals(kctx, true, flags)

	if tryIAKERBWithLKDC {
		na.wellknownLKDC(MechIAKERB, flags)
	}

	if tryWLKDC {
		na.wellknownLKDC(MechKerberos, flags)
	}

	if na.password != "" {
		na.useClassicKerberos(kctx, flags)
	}

	// Classic LKDC causes mDNS lookups, avoided unless needed.
	if tryLKDCClassic {
		na.classicLKDC(kctx, flags)
	}

	na.useExistingPrincipals(kctx, false, flags)
}

// useExistingPrincipals walks the credential-cache collection and adds
// a selection per usable cache, binding the cache so acquisition can
// skip the KDC. onlyLKDC selects which half of the collection this pass
// takes.
func (na *Session) useExistingPrincipals(kctx KerberosContext, onlyLKDC bool, flags selFlags) {
	caches, err := kctx.Caches()
	if err != nil {
		na.logger.Debug("cache enumeration failed", "error", err)
		return
	}

	for _, cc := range caches {
		client, err := cc.Principal()
		if err != nil {
			cc.Close()
			continue
		}

		if client.IsLKDC() != onlyLKDC {
			cc.Close()
			continue
		}

		var server string
		if onlyLKDC {
			// LKDC caches are only useful against the host they were
			// created for.
			host, err := cc.Config("lkdc-hostname")
			if err != nil || string(host) != na.hostname {
				cc.Close()
				continue
			}
			server = fmt.Sprintf("%s/%s@%s", na.service, client.Realm(), client.Realm())
			na.logger.Debug("adding existing LKDC cache", "client", client.String(), "server", server)
		} else {
			server = fmt.Sprintf("%s/%s@%s", na.service, na.hostname, client.Realm())
			na.logger.Debug("adding existing cache", "client", client.String(), "server", server)
		}

		sel, _ := na.addSelection(client.String(), NameTypeKRB5Principal,
			server, NameTypeKRB5PrincipalReferral, MechKerberos, flags)
		if sel == nil || sel.ccache != nil {
			cc.Close()
			continue
		}

		na.mu.Lock()
		sel.ccache = cc
		sel.haveCred = true
		if sel.label == "" {
			if name, err := cc.Config("FriendlyName"); err == nil {
				sel.label = string(name)
			}
		}
		na.mu.Unlock()
	}
}

// wellknownLKDC adds selections against the wellknown LKDC realm: one
// for the password user, one per mapped certificate identity.
func (na *Session) wellknownLKDC(mech Mech, flags selFlags) {
	server := fmt.Sprintf("%s/localhost@%s", na.service, wellknownLKDC)

	if na.password != "" {
		client := na.username + "@" + wellknownLKDC
		na.addSelection(client, NameTypeKRB5Principal, server, NameTypeKRB5Principal, mech, flags)
	}

	for _, cert := range na.certs {
		var name string
		if na.certStore != nil {
			if p, err := na.certStore.PrincipalForCertificate(cert); err == nil {
				name = p
			} else if id, err := na.certStore.AppleID(cert); err == nil {
				name = id
			}
		}
		if name == "" {
			continue
		}

		client := name + "@" + wellknownLKDC
		sel, _ := na.addSelection(client, NameTypeKRB5Principal,
			server, NameTypeKRB5PrincipalReferral, mech, flags)
		if sel != nil {
			sel.cert = cert
		}
	}
}

// isLocalHostname reports whether the host lives on the local network
// segment, where only LKDC realms make sense.
func isLocalHostname(hostname string) bool {
	return strings.HasSuffix(hostname, ".local") ||
		strings.HasSuffix(hostname, ".members.mac.com") ||
		strings.HasSuffix(hostname, ".members.me.com")
}

// useClassicKerberos adds host-realm selections for non-local hosts,
// sourcing realms from the username's qualifier, the host realm mapping
// and the default realm list.
func (na *Session) useClassicKerberos(kctx KerberosContext, flags selFlags) {
	if isLocalHostname(na.hostname) {
		return
	}

	// If the user gave user@REALM, try that realm directly.
	if i := strings.Index(na.username, "@"); i >= 0 {
		domain := strings.ToUpper(na.username[i+1:])
		server := fmt.Sprintf("%s/%s@%s", na.service, na.hostname, domain)
		na.addSelection(na.username, NameTypeKRB5Principal,
			server, NameTypeKRB5PrincipalReferral, MechKerberos, flags)
	}

	// domain\user becomes user@DOMAIN; force it past the filter since
	// the rewritten client no longer starts with the specific name.
	if i := strings.Index(na.username, `\`); i >= 0 {
		domain, u := na.username[:i], na.username[i+1:]
		client := u + "@" + domain
		server := fmt.Sprintf("%s/%s@%s", na.service, na.hostname, strings.ToUpper(domain))
		na.addSelection(client, NameTypeKRB5Principal,
			server, NameTypeKRB5PrincipalReferral, MechKerberos, flags|forceAdd)
	}

	if realms, err := kctx.HostRealms(na.hostname); err == nil {
		na.addRealms(realms, flags)
	}

	// Also, just for the heck of it, check default realms.
	if realms, err := kctx.DefaultRealms(); err == nil {
		na.addRealms(realms, flags)
	}
}

func (na *Session) addRealms(realms []string, flags selFlags) {
	for _, realm := range realms {
		if realm == "" {
			continue
		}
		client := na.username + "@" + realm
		server := fmt.Sprintf("%s/%s@%s", na.service, na.hostname, realm)
		na.addSelection(client, NameTypeKRB5Principal,
			server, NameTypeKRB5PrincipalReferral, MechKerberos, flags)
	}
}

// classicLKDC adds per-host LKDC selections for local hosts. The server
// principal needs a realm lookup, so each selection resolves on a
// background task.
func (na *Session) classicLKDC(kctx KerberosContext, flags selFlags) {
	if !isLocalHostname(na.hostname) {
		return
	}

	for _, cert := range na.certs {
		fp := certFingerprint(cert)

		if na.certStore != nil {
			if label := na.certStore.InferLabel(cert); label != "" {
				na.logger.Debug("adding classic LKDC", "label", label)
			}
		}

		sel, dup := na.addSelection(fp, NameTypeKRB5Principal,
			"", NameTypeKRB5PrincipalReferral, MechKerberos, flags)
		if sel == nil || dup {
			continue
		}
		sel.cert = cert

		na.resolveClassicLKDC(kctx, sel)
	}

	if na.password != "" {
		sel, dup := na.addSelection(na.username, NameTypeKRB5Principal,
			"", NameTypeKRB5PrincipalReferral, MechKerberos, flags)
		if sel != nil && !dup {
			na.resolveClassicLKDC(kctx, sel)
		}
	}
}

// resolveClassicLKDC discovers the host's LKDC realm in the background
// and rewrites the selection's principals before signalling its latch.
func (na *Session) resolveClassicLKDC(kctx KerberosContext, sel *Selection) {
	na.bg.Add(1)
	go func() {
		defer na.bg.Done()
		defer sel.resolve.signal()

		realm, err := kctx.DiscoverLocalRealm(na.ctx, na.hostname)
		if err != nil {
			na.logger.Debug("LKDC realm discovery failed",
				"hostname", na.hostname, "error", err)
			return
		}

		na.mu.Lock()
		client := sel.client + "@" + realm
		server := fmt.Sprintf("%s/%s@%s", na.service, realm, realm)
		sel.client = client
		sel.server = server
		na.mu.Unlock()
	}()
}

// certFingerprint is the SHA-1 digest of the certificate in uppercase
// hex, the client-principal form classic LKDC uses.
func certFingerprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return fmt.Sprintf("%X", sum[:])
}
