package negotiate

import "strings"

// guessNTLM adds NTLM selections: derived names when a password is
// present, plus one per credential already held by the provider. Only
// runs for SMB-class services without caller certificates, and only
// when the server advertised NTLM.
func (na *Session) guessNTLM() {
	if !na.hints.Contains(OIDNTLM) {
		return
	}

	flags := useSPNEGO
	if na.hints.rawNTLM() {
		flags &^= useSPNEGO
	}

	server := na.service + "@" + na.hostname

	if na.password != "" {
		var client string
		var extra selFlags

		if strings.Contains(na.username, "@") {
			client = na.username
			extra = forceAdd
		} else if i := strings.Index(na.username, `\`); i >= 0 {
			domain, u := na.username[:i], na.username[i+1:]
			client = u + "@" + domain
			extra = forceAdd
		} else {
			client = na.username + `@\` + na.hostname
		}

		na.addSelection(client, NameTypeUsername, server, NameTypeUnset, MechNTLM, flags|extra)

		if na.specificName != "" {
			client = na.specificName + `@\` + na.hostname
			na.addSelection(client, NameTypeUsername, server, NameTypeUnset, MechNTLM, flags)
		}
	}

	// Pick up NTLM credentials the provider already holds.
	if na.creds == nil {
		return
	}

	done := make(chan struct{})
	na.creds.IterCreds(MechNTLM, func(cred GSSCred) {
		if cred == nil {
			close(done)
			return
		}

		name := cred.DisplayName()
		cred.Release()
		if name == "" {
			return
		}

		sel, _ := na.addSelection(name, NameTypeUsername, server, NameTypeUnset, MechNTLM, flags)
		if sel != nil {
			na.mu.Lock()
			sel.haveCred = true
			na.mu.Unlock()
		}
	})
	<-done
}
