package krb

import (
	"context"
	"fmt"
	"net"

	"github.com/go-krb5/krb5/config"

	"github.com/smnsjas/go-nah/negotiate"
)

// Context is one session-scoped Kerberos context. It is safe for
// concurrent use: the configuration is only read and the cache
// collection locks internally.
type Context struct {
	conf     *config.Config
	col      *Collection
	resolver *net.Resolver
}

// ParsePrincipal parses a principal string. With enterprise set, the
// whole prefix before the last @ is the enterprise name.
func (c *Context) ParsePrincipal(name string, enterprise bool) (negotiate.Principal, error) {
	return parsePrincipal(name, c.conf.LibDefaults.DefaultRealm, enterprise)
}

// Caches enumerates the cache collection.
func (c *Context) Caches() ([]negotiate.Cache, error) {
	return c.col.list(), nil
}

// CacheMatch finds the cache bound to client.
func (c *Context) CacheMatch(client negotiate.Principal) (negotiate.Cache, error) {
	return c.col.match(client.String())
}

// NewUniqueCache creates an empty, uniquely named cache in the
// collection.
func (c *Context) NewUniqueCache() (negotiate.Cache, error) {
	return c.col.newUnique(), nil
}

// HostRealms maps a hostname to candidate realms via the
// [domain_realm] section.
func (c *Context) HostRealms(hostname string) ([]string, error) {
	realm := c.conf.ResolveRealm(hostname)
	if realm == "" {
		return nil, fmt.Errorf("krb: no realm mapping for %s", hostname)
	}
	return []string{realm}, nil
}

// DefaultRealms returns the configured default realm.
func (c *Context) DefaultRealms() ([]string, error) {
	realm := c.conf.LibDefaults.DefaultRealm
	if realm == "" {
		return nil, fmt.Errorf("krb: no default realm configured")
	}
	return []string{realm}, nil
}

// DiscoverLocalRealm resolves a host's LKDC realm over DNS.
func (c *Context) DiscoverLocalRealm(ctx context.Context, hostname string) (string, error) {
	return discoverLocalRealm(ctx, c.resolver, hostname)
}

// NewInitialCreds starts an initial-credential exchange for client.
func (c *Context) NewInitialCreds(client negotiate.Principal) (negotiate.InitialCreds, error) {
	p, ok := client.(*principal)
	if !ok {
		var err error
		p, err = parsePrincipal(client.String(), c.conf.LibDefaults.DefaultRealm, false)
		if err != nil {
			return nil, err
		}
	}
	return &initialCreds{conf: c.conf, client: p}, nil
}

// Close releases the context. The cache collection outlives it.
func (c *Context) Close() error { return nil }
