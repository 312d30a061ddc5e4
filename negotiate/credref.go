package negotiate

import (
	"fmt"
	"strconv"
	"strings"
)

// cacheRefCount is the cache config entry carrying the hold count of a
// Kerberos credential. A cache without the entry holds one reference.
const cacheRefCount = "nah-refcount"

// ReferenceKey returns the selection's credential reference key:
// "krb5:<client>" for Kerberos-family mechanisms, "ntlm:<client>" for
// NTLM. The second return is false for mechanisms without reference
// keys.
func (s *Selection) ReferenceKey() (string, bool) {
	s.na.mu.Lock()
	client := s.client
	s.na.mu.Unlock()
	if client == "" {
		return "", false
	}

	switch s.mech {
	case MechKerberos, MechPKU2U, MechIAKERB:
		return "krb5:" + client, true
	case MechNTLM:
		return "ntlm:" + client, true
	}
	return "", false
}

// AddReferenceAndLabel holds the selection's credential and stamps it
// with label, so a later FindByLabelAndRelease can undo the hold. The
// selection's own mechanism picks the credential store, so PKU2U and
// IAKerb selections resolve correctly despite sharing the "krb5:" key
// prefix.
func (s *Selection) AddReferenceAndLabel(label string) bool {
	if !s.wait() {
		return false
	}

	key, ok := s.ReferenceKey()
	if !ok {
		return false
	}

	s.na.mu.Lock()
	client := s.client
	s.na.mu.Unlock()

	s.na.logger.Debug("AddReferenceAndLabel", "key", key, "label", label)
	return s.na.credChange(s.mech, client, 1, label)
}

// CredAddReference holds the credential named by a reference key.
func (na *Session) CredAddReference(key string) bool {
	return na.credRefByKey(key, 1)
}

// CredRemoveReference releases one hold on the credential named by a
// reference key.
func (na *Session) CredRemoveReference(key string) bool {
	return na.credRefByKey(key, -1)
}

// credRefByKey maps a reference key to the mechanisms that can own it.
// "krb5:" keys belong to plain Kerberos credentials in the cache
// collection, or to IAKerb credentials in the cred store.
func (na *Session) credRefByKey(key string, delta int) bool {
	switch {
	case strings.HasPrefix(key, "krb5:"):
		name := key[len("krb5:"):]
		if na.credChange(MechKerberos, name, delta, "") {
			return true
		}
		return na.credChange(MechIAKERB, name, delta, "")
	case strings.HasPrefix(key, "ntlm:"):
		return na.credChange(MechNTLM, key[len("ntlm:"):], delta, "")
	}
	return false
}

// credChange locates the credential for (mech, name) and applies a
// reference-count delta and an optional label. Credentials that do not
// carry the nah-created marker are never touched.
func (na *Session) credChange(mech Mech, name string, delta int, label string) bool {
	if name == "" {
		return false
	}

	na.logger.Debug("credChange",
		"mech", mech.String(), "name", name, "delta", delta, "label", label)

	cred, err := na.findRefCred(mech, name)
	if err != nil {
		na.logger.Debug("credChange: credential not found",
			"name", name, "mech", mech.String(), "error", err)
		return false
	}
	defer cred.Release()

	// Only credentials we originated are refcounted.
	if _, err := cred.Label(nahCreated); err != nil {
		return false
	}

	switch {
	case delta > 0:
		cred.Hold()
	case delta < 0:
		cred.Unhold()
	}

	if label != "" {
		cred.SetLabel(label, []byte("1"))
	}
	return true
}

// findRefCred locates the credential behind a reference key. NTLM and
// IAKerb credentials live in the cred store; Kerberos credentials are
// the caches in the Kerberos collection.
func (na *Session) findRefCred(mech Mech, name string) (GSSCred, error) {
	switch mech {
	case MechNTLM, MechIAKERB:
		if na.creds == nil {
			return nil, fmt.Errorf("negotiate: no credential provider configured")
		}
		return na.creds.Find(mech, name)
	default:
		return na.cacheCredFor(name)
	}
}

func (na *Session) cacheCredFor(name string) (GSSCred, error) {
	kctx, err := na.kerberosContext()
	if err != nil {
		return nil, err
	}
	client, err := kctx.ParsePrincipal(name, strings.Count(name, "@") >= 2)
	if err != nil {
		return nil, err
	}
	cc, err := kctx.CacheMatch(client)
	if err != nil {
		return nil, err
	}
	return &cacheCred{cc: cc}, nil
}

// FindByLabelAndRelease clears label from every credential carrying it
// and releases the hold that AddReferenceAndLabel took. Both stores
// are swept: the cred store for NTLM/IAKerb, the cache collection for
// Kerberos.
func (na *Session) FindByLabelAndRelease(label string) {
	if label == "" {
		return
	}

	na.logger.Debug("FindByLabelAndRelease", "label", label)

	release := func(cred GSSCred) {
		if _, err := cred.Label(nahCreated); err != nil {
			return
		}
		if _, err := cred.Label(label); err != nil {
			return
		}
		na.logger.Debug("FindByLabelAndRelease: unholding credential",
			"name", cred.DisplayName())
		cred.SetLabel(label, nil)
		cred.Unhold()
	}

	if na.creds != nil {
		done := make(chan struct{})
		na.creds.IterCreds(MechNone, func(cred GSSCred) {
			if cred == nil {
				close(done)
				return
			}
			defer cred.Release()
			release(cred)
		})
		<-done
	}

	if kctx, err := na.kerberosContext(); err == nil {
		if caches, err := kctx.Caches(); err == nil {
			for _, cc := range caches {
				release(&cacheCred{cc: cc})
			}
		}
	}
}

// cacheCred adapts a Kerberos credential cache to the GSSCred surface
// so reference counting treats both credential stores uniformly. Holds
// are kept in the cache's nah-refcount config entry; dropping the last
// hold destroys the cache.
type cacheCred struct {
	cc Cache
}

func (c *cacheCred) DisplayName() string {
	p, err := c.cc.Principal()
	if err != nil {
		return ""
	}
	return p.String()
}

// UUID is not available for cache-backed credentials.
func (c *cacheCred) UUID() (string, error) {
	return "", fmt.Errorf("negotiate: cache %s has no uuid", c.cc.Name())
}

func (c *cacheCred) Label(key string) ([]byte, error) {
	return c.cc.Config(key)
}

func (c *cacheCred) SetLabel(key string, value []byte) error {
	return c.cc.SetConfig(key, value)
}

func (c *cacheCred) Hold() error { return c.adjust(1) }

func (c *cacheCred) Unhold() error { return c.adjust(-1) }

func (c *cacheCred) adjust(delta int) error {
	count := 1
	if raw, err := c.cc.Config(cacheRefCount); err == nil {
		if n, err := strconv.Atoi(string(raw)); err == nil {
			count = n
		}
	}
	count += delta
	if count < 1 {
		return c.cc.Destroy()
	}
	return c.cc.SetConfig(cacheRefCount, []byte(strconv.Itoa(count)))
}

// Release is a no-op: the collection owns the cache handle.
func (c *cacheCred) Release() {}
