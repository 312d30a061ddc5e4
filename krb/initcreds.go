package krb

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/go-krb5/krb5/client"
	"github.com/go-krb5/krb5/config"

	"github.com/smnsjas/go-nah/negotiate"
)

// ErrPKINITUnsupported is returned by SetClientCert: the pure Go stack
// has no PKINIT pre-authentication.
var ErrPKINITUnsupported = errors.New("krb: PKINIT is not supported by the pure Go provider")

// initialCreds drives one AS exchange through the go-krb5 client.
type initialCreds struct {
	conf   *config.Config
	client *principal

	password     string
	kdcHost      string
	canonicalize bool

	cl     *client.Client
	result *principal
}

func (ic *initialCreds) SetPassword(password string) error {
	ic.password = password
	return nil
}

func (ic *initialCreds) SetClientCert(cert *x509.Certificate) error {
	return ErrPKINITUnsupported
}

// SetKDCHostname pins the exchange to one KDC. The transport prefix
// ("tcp/") is accepted and stripped; go-krb5 always uses TCP fallback.
func (ic *initialCreds) SetKDCHostname(host string) error {
	ic.kdcHost = strings.TrimPrefix(host, "tcp/")
	return nil
}

func (ic *initialCreds) SetCanonicalize(on bool) {
	ic.canonicalize = on
}

// Get runs the exchange. The lookup honours ctx cancellation; the
// wire exchange itself is bounded by the library's own timeouts.
func (ic *initialCreds) Get(ctx context.Context) error {
	if ic.password == "" {
		return fmt.Errorf("krb: no password configured for %s", ic.client)
	}

	conf := ic.conf
	if ic.kdcHost != "" {
		conf = confWithKDC(conf, ic.client.Realm(), ic.kdcHost)
	}

	cl := client.NewWithPassword(ic.client.base, ic.client.Realm(), ic.password, conf,
		client.DisablePAFXFAST(true))

	done := make(chan error, 1)
	go func() { done <- cl.Login() }()

	select {
	case err := <-done:
		if err != nil {
			cl.Destroy()
			return fmt.Errorf("krb: initial creds for %s: %w", ic.client, err)
		}
	case <-ctx.Done():
		go func() {
			<-done
			cl.Destroy()
		}()
		return ctx.Err()
	}

	ic.cl = cl
	ic.result = &principal{
		base:  cl.Credentials.CName().PrincipalNameString(),
		realm: cl.Credentials.Domain(),
	}
	return nil
}

func (ic *initialCreds) Client() (negotiate.Principal, error) {
	if ic.result == nil {
		return nil, fmt.Errorf("krb: exchange has not run")
	}
	return ic.result, nil
}

// Store binds the obtained ticket client to the cache.
func (ic *initialCreds) Store(cache negotiate.Cache) error {
	c, ok := cache.(*cacheEntry)
	if !ok {
		return fmt.Errorf("krb: foreign cache %s", cache.Name())
	}
	if ic.cl == nil {
		return fmt.Errorf("krb: exchange has not run")
	}
	c.attach(ic.cl)
	ic.cl = nil // cache owns it now
	return nil
}

// StoreConfig persists the exchange configuration into the cache.
func (ic *initialCreds) StoreConfig(cache negotiate.Cache) error {
	if ic.kdcHost != "" {
		if err := cache.SetConfig("kdc-hostname", []byte(ic.kdcHost)); err != nil {
			return err
		}
	}
	if ic.result != nil && ic.result.IsLKDC() {
		// LKDC caches record the host they belong to; the realm embeds
		// the KDC hostname we pinned.
		if ic.kdcHost != "" {
			return cache.SetConfig("lkdc-hostname", []byte(ic.kdcHost))
		}
	}
	return nil
}

func (ic *initialCreds) Free() {
	if ic.cl != nil {
		ic.cl.Destroy()
		ic.cl = nil
	}
}

// confWithKDC copies conf with the realm's KDC list replaced by one
// pinned host.
func confWithKDC(conf *config.Config, realm, host string) *config.Config {
	out := *conf
	out.Realms = append([]config.Realm(nil), conf.Realms...)

	kdc := host
	if !strings.Contains(kdc, ":") {
		kdc += ":88"
	}

	for i, r := range out.Realms {
		if r.Realm == realm {
			r.KDC = []string{kdc}
			out.Realms[i] = r
			return &out
		}
	}
	out.Realms = append(out.Realms, config.Realm{Realm: realm, KDC: []string{kdc}})
	return &out
}
