package negotiate

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Mock providers for driving the guessers and the acquisition state
// machine without a KDC.

type mockPrincipal struct {
	base  string
	realm string
}

func parseMockPrincipal(name string) *mockPrincipal {
	if i := strings.LastIndex(name, "@"); i > 0 {
		return &mockPrincipal{base: name[:i], realm: name[i+1:]}
	}
	return &mockPrincipal{base: name}
}

func (p *mockPrincipal) String() string {
	if p.realm == "" {
		return p.base
	}
	return p.base + "@" + p.realm
}

func (p *mockPrincipal) Realm() string { return p.realm }

func (p *mockPrincipal) IsLKDC() bool {
	return strings.HasPrefix(p.realm, "LKDC:") || p.realm == wellknownLKDC
}

type mockCache struct {
	name   string
	client Principal

	mu          sync.Mutex
	config      map[string][]byte
	closed      bool
	destroyed   bool
	initialized bool
}

func newMockCache(client string, config map[string]string) *mockCache {
	c := &mockCache{
		name:   "MOCK:" + client,
		client: parseMockPrincipal(client),
		config: map[string][]byte{},
	}
	for k, v := range config {
		c.config[k] = []byte(v)
	}
	return c
}

func (c *mockCache) Name() string { return c.name }

func (c *mockCache) Principal() (Principal, error) {
	if c.client == nil {
		return nil, errors.New("no principal")
	}
	return c.client, nil
}

func (c *mockCache) Config(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.config[key]
	if !ok {
		return nil, fmt.Errorf("no config %q", key)
	}
	return v, nil
}

func (c *mockCache) SetConfig(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == nil {
		delete(c.config, key)
		return nil
	}
	c.config[key] = value
	return nil
}

func (c *mockCache) Initialize(client Principal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = client
	c.initialized = true
	return nil
}

func (c *mockCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *mockCache) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	return nil
}

type mockInitialCreds struct {
	client Principal

	// ResultClient is what the KDC answers with; defaults to the
	// requested client.
	ResultClient string
	GetErr       error

	password     string
	cert         *x509.Certificate
	kdcHost      string
	canonicalize bool
	stored       Cache
	freed        bool
}

func (ic *mockInitialCreds) SetPassword(password string) error {
	ic.password = password
	return nil
}

func (ic *mockInitialCreds) SetClientCert(cert *x509.Certificate) error {
	ic.cert = cert
	return nil
}

func (ic *mockInitialCreds) SetKDCHostname(host string) error {
	ic.kdcHost = host
	return nil
}

func (ic *mockInitialCreds) SetCanonicalize(on bool) { ic.canonicalize = on }

func (ic *mockInitialCreds) Get(ctx context.Context) error { return ic.GetErr }

func (ic *mockInitialCreds) Client() (Principal, error) {
	if ic.ResultClient != "" {
		return parseMockPrincipal(ic.ResultClient), nil
	}
	return ic.client, nil
}

func (ic *mockInitialCreds) Store(cache Cache) error {
	ic.stored = cache
	return nil
}

func (ic *mockInitialCreds) StoreConfig(cache Cache) error { return nil }

func (ic *mockInitialCreds) Free() { ic.freed = true }

type mockKrbContext struct {
	mu sync.Mutex

	CachesList    []Cache
	HostRealmsMap map[string][]string
	DefaultRealm  []string

	// DiscoverFunc resolves LKDC realms; nil fails the lookup.
	DiscoverFunc func(ctx context.Context, hostname string) (string, error)

	// NewInitialCredsFunc intercepts exchanges; nil yields a plain
	// mockInitialCreds echoing the requested client.
	NewInitialCredsFunc func(client Principal) (InitialCreds, error)

	created []*mockInitialCreds
	closed  bool
}

func (k *mockKrbContext) ParsePrincipal(name string, enterprise bool) (Principal, error) {
	if name == "" {
		return nil, errors.New("empty principal")
	}
	return parseMockPrincipal(name), nil
}

func (k *mockKrbContext) Caches() ([]Cache, error) { return k.CachesList, nil }

func (k *mockKrbContext) CacheMatch(client Principal) (Cache, error) {
	for _, cc := range k.CachesList {
		p, err := cc.Principal()
		if err == nil && p.String() == client.String() {
			return cc, nil
		}
	}
	return nil, errors.New("no matching cache")
}

func (k *mockKrbContext) NewUniqueCache() (Cache, error) {
	cc := &mockCache{name: "MOCK:unique", config: map[string][]byte{}}
	k.mu.Lock()
	k.CachesList = append(k.CachesList, cc)
	k.mu.Unlock()
	return cc, nil
}

func (k *mockKrbContext) HostRealms(hostname string) ([]string, error) {
	if realms, ok := k.HostRealmsMap[hostname]; ok {
		return realms, nil
	}
	return nil, errors.New("no realm mapping")
}

func (k *mockKrbContext) DefaultRealms() ([]string, error) {
	if len(k.DefaultRealm) == 0 {
		return nil, errors.New("no default realm")
	}
	return k.DefaultRealm, nil
}

func (k *mockKrbContext) DiscoverLocalRealm(ctx context.Context, hostname string) (string, error) {
	if k.DiscoverFunc == nil {
		return "", errors.New("no LKDC realm")
	}
	return k.DiscoverFunc(ctx, hostname)
}

func (k *mockKrbContext) NewInitialCreds(client Principal) (InitialCreds, error) {
	if k.NewInitialCredsFunc != nil {
		return k.NewInitialCredsFunc(client)
	}
	ic := &mockInitialCreds{client: client}
	k.mu.Lock()
	k.created = append(k.created, ic)
	k.mu.Unlock()
	return ic, nil
}

func (k *mockKrbContext) Close() error {
	k.closed = true
	return nil
}

type mockKrbProvider struct {
	ctx *mockKrbContext
	err error
}

func (p *mockKrbProvider) NewContext() (KerberosContext, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.ctx == nil {
		p.ctx = &mockKrbContext{}
	}
	return p.ctx, nil
}

type mockCred struct {
	mu      sync.Mutex
	mech    Mech
	name    string
	display string
	id      string
	labels  map[string][]byte
	holds   int
	unholds int
}

func newMockCred(mech Mech, name string) *mockCred {
	return &mockCred{mech: mech, name: name, display: name, id: "uuid-" + name, labels: map[string][]byte{}}
}

func (c *mockCred) DisplayName() string { return c.display }

func (c *mockCred) UUID() (string, error) {
	if c.id == "" {
		return "", errors.New("no uuid")
	}
	return c.id, nil
}

func (c *mockCred) Label(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.labels[key]
	if !ok {
		return nil, fmt.Errorf("no label %q", key)
	}
	return v, nil
}

func (c *mockCred) SetLabel(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == nil {
		delete(c.labels, key)
		return nil
	}
	c.labels[key] = value
	return nil
}

func (c *mockCred) Hold() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holds++
	return nil
}

func (c *mockCred) Unhold() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unholds++
	return nil
}

func (c *mockCred) Release() {}

type mockCredProvider struct {
	mu    sync.Mutex
	creds []*mockCred

	// AcquireErr fails AcquireCred when set.
	AcquireErr error
	// InitialErr fails InitialCred when set.
	InitialErr error

	acquired []Identity
}

func (p *mockCredProvider) AcquireCred(ctx context.Context, name string, mech Mech, identity Identity, cb func(GSSCred, error)) {
	go func() {
		if p.AcquireErr != nil {
			cb(nil, p.AcquireErr)
			return
		}
		p.mu.Lock()
		p.acquired = append(p.acquired, identity)
		cred := newMockCred(mech, name)
		p.creds = append(p.creds, cred)
		p.mu.Unlock()
		cb(cred, nil)
	}()
}

func (p *mockCredProvider) IterCreds(mech Mech, cb func(GSSCred)) {
	p.mu.Lock()
	snapshot := append([]*mockCred(nil), p.creds...)
	p.mu.Unlock()
	for _, c := range snapshot {
		if mech != MechNone && c.mech != mech {
			continue
		}
		cb(c)
	}
	cb(nil)
}

func (p *mockCredProvider) InitialCred(ctx context.Context, name string, mech Mech, password string) (GSSCred, error) {
	if p.InitialErr != nil {
		return nil, p.InitialErr
	}
	cred := newMockCred(mech, name)
	p.mu.Lock()
	p.creds = append(p.creds, cred)
	p.mu.Unlock()
	return cred, nil
}

func (p *mockCredProvider) Find(mech Mech, name string) (GSSCred, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.creds {
		if c.mech == mech && (c.name == name || c.display == name || c.id == name) {
			return c, nil
		}
	}
	return nil, errors.New("not found")
}

type mockCertStore struct {
	Principals map[*x509.Certificate]string
	AppleIDs   map[*x509.Certificate]string
	Labels     map[*x509.Certificate]string
	Attributes map[*x509.Certificate]map[string]string
}

func (s *mockCertStore) PrincipalForCertificate(cert *x509.Certificate) (string, error) {
	if p, ok := s.Principals[cert]; ok {
		return p, nil
	}
	return "", errors.New("no mapping")
}

func (s *mockCertStore) AppleID(cert *x509.Certificate) (string, error) {
	if id, ok := s.AppleIDs[cert]; ok {
		return id, nil
	}
	return "", errors.New("no appleid")
}

func (s *mockCertStore) InferLabel(cert *x509.Certificate) string {
	return s.Labels[cert]
}

func (s *mockCertStore) Values(cert *x509.Certificate, oids []string) map[string]string {
	out := map[string]string{}
	for _, oid := range oids {
		if v, ok := s.Attributes[cert][oid]; ok {
			out[oid] = v
		}
	}
	return out
}

type mockPrefs struct {
	Enable     bool
	Selections []UserSelection
}

func (p *mockPrefs) GSSEnable() bool { return p.Enable }

func (p *mockPrefs) UserSelections() []UserSelection { return p.Selections }
