// Package gsscred holds NTLM and IAKerb initiator credentials: an
// in-process GSS-style credential store with display names, labels and
// hold counts.
package gsscred

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/smnsjas/go-nah/negotiate"
)

var (
	// ErrNoPassword is returned when acquisition is attempted without a
	// password.
	ErrNoPassword = errors.New("gsscred: no password supplied")

	// ErrNotFound is returned by Find for unknown credentials.
	ErrNotFound = errors.New("gsscred: credential not found")
)

// Store is an in-memory credential store. All methods are safe for
// concurrent use.
type Store struct {
	logger *slog.Logger

	mu    sync.Mutex
	creds []*credential
}

// NewStore creates an empty store logging to slog.Default().
func NewStore() *Store {
	return &Store{logger: slog.Default()}
}

// SetLogger replaces the store's logger.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// AcquireCred acquires an initiator credential for name and posts the
// result to cb from a store-owned goroutine, exactly once.
func (s *Store) AcquireCred(ctx context.Context, name string, mech negotiate.Mech, identity negotiate.Identity, cb func(negotiate.GSSCred, error)) {
	go func() {
		cred, err := s.acquire(ctx, name, mech, identity)
		if err != nil {
			s.logger.Debug("AcquireCred failed", "name", name, "error", err)
			cb(nil, err)
			return
		}
		cb(cred, nil)
	}()
}

func (s *Store) acquire(ctx context.Context, name string, mech negotiate.Mech, identity negotiate.Identity) (*credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if identity.Password == "" {
		return nil, ErrNoPassword
	}

	identity = splitIdentity(identity)

	if err := validateIdentity(identity); err != nil {
		return nil, fmt.Errorf("gsscred: acquire for %s: %w", name, err)
	}

	return s.put(mech, name, identity), nil
}

// InitialCred performs IAKerb-style initial acquisition: the password
// is exchanged through the acceptor on first use, so holding the
// identity is all acquisition amounts to here.
func (s *Store) InitialCred(ctx context.Context, name string, mech negotiate.Mech, password string) (negotiate.GSSCred, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrNoPassword
	}

	identity := splitIdentity(negotiate.Identity{Username: name, Password: password})
	return s.put(mech, name, identity), nil
}

// put inserts or replaces the credential for (mech, name).
func (s *Store) put(mech negotiate.Mech, name string, identity negotiate.Identity) *credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.creds {
		if c.mech == mech && c.name == name {
			c.mu.Lock()
			c.identity = identity
			c.mu.Unlock()
			return c
		}
	}

	c := &credential{
		store:    s,
		mech:     mech,
		name:     name,
		display:  name,
		id:       uuid.NewString(),
		identity: identity,
		labels:   map[string][]byte{},
		holds:    1,
	}
	s.creds = append(s.creds, c)
	return c
}

// IterCreds calls cb once per held credential of mech (MechNone for
// all), then once with nil as the terminator.
func (s *Store) IterCreds(mech negotiate.Mech, cb func(negotiate.GSSCred)) {
	s.mu.Lock()
	snapshot := append([]*credential(nil), s.creds...)
	s.mu.Unlock()

	for _, c := range snapshot {
		if mech != negotiate.MechNone && c.mech != mech {
			continue
		}
		cb(c)
	}
	cb(nil)
}

// Find locates a held credential by mechanism and name or UUID.
func (s *Store) Find(mech negotiate.Mech, name string) (negotiate.GSSCred, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creds {
		if c.mech == mech && (c.name == name || c.display == name || c.id == name) {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) remove(target *credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.creds {
		if c == target {
			s.creds = append(s.creds[:i], s.creds[i+1:]...)
			return
		}
	}
}

// credential is one held initiator credential.
type credential struct {
	store *Store
	mech  negotiate.Mech
	name  string

	mu       sync.Mutex
	display  string
	id       string
	identity negotiate.Identity
	labels   map[string][]byte
	holds    int
}

func (c *credential) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// UUID returns the credential's stable identifier.
func (c *credential) UUID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, nil
}

func (c *credential) Label(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.labels[key]
	if !ok {
		return nil, fmt.Errorf("gsscred: no label %q on %s", key, c.name)
	}
	return v, nil
}

func (c *credential) SetLabel(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == nil {
		delete(c.labels, key)
		return nil
	}
	c.labels[key] = value
	return nil
}

// Hold takes a reference on the credential.
func (c *credential) Hold() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holds++
	return nil
}

// Unhold drops a reference; the last reference destroys the
// credential.
func (c *credential) Unhold() error {
	c.mu.Lock()
	c.holds--
	gone := c.holds <= 0
	c.mu.Unlock()
	if gone {
		c.store.remove(c)
	}
	return nil
}

// Release drops the caller's handle. The store keeps the credential
// until its hold count reaches zero.
func (c *credential) Release() {}
