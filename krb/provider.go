// Package krb implements the Kerberos provider on the pure Go krb5
// stack: krb5.conf realm resolution, an in-process credential-cache
// collection seeded from on-disk ccache files, password AS exchanges
// and LKDC realm discovery.
package krb

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/go-krb5/krb5/config"

	"github.com/smnsjas/go-nah/negotiate"
)

// ProviderConfig configures the pure Go Kerberos provider.
type ProviderConfig struct {
	// Krb5ConfPath is the path to krb5.conf. Empty falls back to
	// $KRB5_CONFIG and then /etc/krb5.conf.
	Krb5ConfPath string

	// CacheDir seeds the credential-cache collection from ccache files
	// in this directory. Optional.
	CacheDir string

	// Resolver performs LKDC realm discovery lookups. Defaults to
	// net.DefaultResolver.
	Resolver *net.Resolver
}

// Provider opens Kerberos contexts that all share the provider's one
// cache collection, in the manner of libkrb5's cccol.
type Provider struct {
	cfg ProviderConfig

	mu     sync.Mutex
	col    *Collection
	seeded bool
}

// NewProvider creates a provider. The cache collection is seeded
// lazily on first context creation.
func NewProvider(cfg ProviderConfig) *Provider {
	return &Provider{cfg: cfg, col: newCollection()}
}

// NewContext loads the configuration and returns a session-scoped
// context.
func (p *Provider) NewContext() (negotiate.KerberosContext, error) {
	path := p.cfg.Krb5ConfPath
	if path == "" {
		path = os.Getenv("KRB5_CONFIG")
		if path == "" {
			path = "/etc/krb5.conf"
		}
	}
	conf, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("krb: load krb5.conf from %s: %w", path, err)
	}

	p.mu.Lock()
	if !p.seeded && p.cfg.CacheDir != "" {
		p.col.seed(p.cfg.CacheDir)
		p.seeded = true
	}
	p.mu.Unlock()

	resolver := p.cfg.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	return &Context{conf: conf, col: p.col, resolver: resolver}, nil
}

// Collection exposes the provider's cache collection for embedding and
// tests.
func (p *Provider) Collection() *Collection {
	return p.col
}
