package krb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-krb5/krb5/client"
	"github.com/go-krb5/krb5/credentials"
	"github.com/google/uuid"

	"github.com/smnsjas/go-nah/negotiate"
)

// Collection is a provider's credential-cache collection, shared by
// every context that provider opens. Caches
// live in memory; on-disk ccache files can be imported to seed it.
// All methods are safe for concurrent use.
type Collection struct {
	mu     sync.Mutex
	caches []*cacheEntry
}

func newCollection() *Collection {
	return &Collection{}
}

// seed imports every readable ccache file under dir. Sidecar
// "<file>.json" maps hold per-cache configuration entries such as
// lkdc-hostname and FriendlyName. Unreadable files are skipped.
func (col *Collection) seed(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		col.ImportCCacheFile(filepath.Join(dir, e.Name()))
	}
}

// ImportCCacheFile adds one on-disk ccache to the collection.
func (col *Collection) ImportCCacheFile(path string) error {
	cc, err := credentials.LoadCCache(path)
	if err != nil {
		return fmt.Errorf("krb: load ccache %s: %w", path, err)
	}

	name := cc.GetClientPrincipalName().PrincipalNameString()
	realm := cc.GetClientRealm()
	p := &principal{base: name, realm: realm}

	config := map[string][]byte{}
	if raw, err := os.ReadFile(path + ".json"); err == nil {
		var m map[string]string
		if json.Unmarshal(raw, &m) == nil {
			for k, v := range m {
				config[k] = []byte(v)
			}
		}
	}

	col.mu.Lock()
	defer col.mu.Unlock()
	col.caches = append(col.caches, &cacheEntry{
		col:    col,
		name:   filepath.Base(path),
		client: p,
		config: config,
	})
	return nil
}

// Add creates an in-memory cache for client, with optional config
// entries. Used by embedders and tests to pre-populate credentials.
func (col *Collection) Add(client string, config map[string]string) error {
	p, err := parsePrincipal(client, "", false)
	if err != nil {
		return err
	}
	c := map[string][]byte{}
	for k, v := range config {
		c[k] = []byte(v)
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	col.caches = append(col.caches, &cacheEntry{
		col:    col,
		name:   "MEMORY:" + uuid.NewString(),
		client: p,
		config: c,
	})
	return nil
}

func (col *Collection) list() []negotiate.Cache {
	col.mu.Lock()
	defer col.mu.Unlock()
	out := make([]negotiate.Cache, 0, len(col.caches))
	for _, c := range col.caches {
		out = append(out, c)
	}
	return out
}

func (col *Collection) match(client string) (negotiate.Cache, error) {
	col.mu.Lock()
	defer col.mu.Unlock()
	for _, c := range col.caches {
		if c.client != nil && c.client.String() == client {
			return c, nil
		}
	}
	return nil, fmt.Errorf("krb: no cache for %s", client)
}

func (col *Collection) newUnique() negotiate.Cache {
	c := &cacheEntry{
		col:    col,
		name:   "MEMORY:" + uuid.NewString(),
		config: map[string][]byte{},
	}
	col.mu.Lock()
	col.caches = append(col.caches, c)
	col.mu.Unlock()
	return c
}

func (col *Collection) remove(target *cacheEntry) {
	col.mu.Lock()
	defer col.mu.Unlock()
	for i, c := range col.caches {
		if c == target {
			col.caches = append(col.caches[:i], col.caches[i+1:]...)
			return
		}
	}
}

// cacheEntry is one credential cache.
type cacheEntry struct {
	col *Collection

	mu     sync.Mutex
	name   string
	client *principal
	config map[string][]byte
	tgt    *client.Client
}

func (c *cacheEntry) Name() string { return c.name }

func (c *cacheEntry) Principal() (negotiate.Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, fmt.Errorf("krb: cache %s has no principal", c.name)
	}
	return c.client, nil
}

func (c *cacheEntry) Config(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.config[key]
	if !ok {
		return nil, fmt.Errorf("krb: cache %s has no config %q", c.name, key)
	}
	return v, nil
}

func (c *cacheEntry) SetConfig(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == nil {
		delete(c.config, key)
		return nil
	}
	if c.config == nil {
		c.config = map[string][]byte{}
	}
	c.config[key] = value
	return nil
}

// Initialize binds the cache to client, dropping previous contents.
func (c *cacheEntry) Initialize(client negotiate.Principal) error {
	p, err := parsePrincipal(client.String(), "", false)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = p
	c.config = map[string][]byte{}
	c.tgt = nil
	return nil
}

func (c *cacheEntry) attach(cl *client.Client) {
	c.mu.Lock()
	c.tgt = cl
	c.mu.Unlock()
}

func (c *cacheEntry) Close() error { return nil }

func (c *cacheEntry) Destroy() error {
	c.col.remove(c)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tgt != nil {
		c.tgt.Destroy()
		c.tgt = nil
	}
	c.client = nil
	c.config = nil
	return nil
}
