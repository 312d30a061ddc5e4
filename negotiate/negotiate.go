// Package negotiate enumerates candidate authentication selections for
// a network service and acquires credentials for them.
package negotiate

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"strings"
	"sync"
)

// Config wires the external providers into a session. Only Kerberos and
// Creds are commonly needed; nil fields fall back to inert defaults.
type Config struct {
	// Kerberos opens per-session Kerberos contexts.
	Kerberos KerberosProvider

	// Creds manages NTLM and IAKerb credentials.
	Creds CredProvider

	// Certs resolves client-certificate identities. Optional.
	Certs CertStore

	// Prefs supplies user-selection overrides and the GSS feature flag.
	// Optional.
	Prefs PrefStore

	// Logger receives debug logging. Defaults to slog.Default().
	Logger *slog.Logger

	// LoginName returns the OS login name when Info carries none.
	// Defaults to the current OS user.
	LoginName func() (string, error)
}

// Info carries the optional per-session inputs to Create.
type Info struct {
	// Username is the user-supplied name, possibly domain-qualified
	// ("user@realm" or `domain\user`).
	Username string

	// Password enables password-based guessing and acquisition.
	Password string

	// Certificates may be a *x509.Certificate, a *tls.Certificate
	// (an identity), or a slice of either. Anything else is logged and
	// discarded.
	Certificates any

	// ServerHints is the server's advertised mechanism set, if any.
	ServerHints Hints

	// SPNEGOServerName is the acceptor name from the server's SPNEGO
	// hints, if announced.
	SPNEGOServerName string
}

// Session owns one negotiation: the normalised inputs, the ordered
// selection list, and the provider handles the guessers and the
// acquisition path share. The selection list is fixed once Create
// returns; individual selections may still resolve in the background.
type Session struct {
	logger *slog.Logger

	hostname         string
	service          string
	username         string
	specificName     string
	password         string
	certs            []*x509.Certificate
	hints            Hints
	spnegoServerName string

	krb       KerberosProvider
	creds     CredProvider
	certStore CertStore
	prefs     PrefStore

	mu         sync.Mutex
	kctx       KerberosContext
	selections []*Selection

	// ctx carries session cancellation to every waiter and resolver.
	ctx    context.Context
	cancel context.CancelFunc

	bg sync.WaitGroup
}

// Create normalises the inputs, runs the guessers in order and returns
// the session with its ranked selection list. Selections whose server
// principal needs a network lookup resolve in the background; callers
// index the list immediately and wait per selection.
func Create(cfg Config, hostname, service string, info *Info) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	na := &Session{
		logger:    logger,
		service:   service,
		krb:       cfg.Kerberos,
		creds:     cfg.Creds,
		certStore: cfg.Certs,
		prefs:     cfg.Prefs,
	}
	na.ctx, na.cancel = context.WithCancel(context.Background())

	logger.Debug("Create", "hostname", hostname, "service", service)

	// Undo any browser-service decoration before trimming.
	na.hostname = strings.Trim(deconstructServiceName(hostname), ".")

	logger.Debug("Create: canonical hostname", "hostname", na.hostname)

	if err := na.findUsername(cfg, info); err != nil {
		return nil, err
	}

	logger.Debug("Create: username resolved",
		"username", na.username,
		"specific", na.specificName != "")

	if info != nil {
		na.password = info.Password
		na.hints = info.ServerHints
		na.spnegoServerName = info.SPNEGOServerName
		na.certs = normalizeCertificates(logger, info.Certificates)
	}

	// Here starts the guessing game.

	na.addUserSelections()

	na.guessKerberos()

	// NTLM only for SMB-class services, and never when the caller
	// supplied certificate identities.
	if len(na.certs) == 0 && na.isSMB() {
		na.guessNTLM()
	}

	if len(na.selections) == 0 {
		na.Cancel()
		return nil, ErrNoMechanism
	}

	return na, nil
}

// Selections returns the candidate list in guesser order; index 0 is
// the preferred candidate.
func (na *Session) Selections() []*Selection {
	return na.selections
}

// Cancel marks every selection canceled and wakes all waiters. Waiters
// observe failure; in-flight callbacks complete but their results are
// discarded by the waiter.
func (na *Session) Cancel() {
	na.cancel()
}

// Close cancels the session, waits for background resolvers to settle
// and releases the provider contexts.
func (na *Session) Close() error {
	na.Cancel()
	na.bg.Wait()

	na.mu.Lock()
	defer na.mu.Unlock()
	var err error
	for _, s := range na.selections {
		if s.ccache != nil {
			err = errors.Join(err, s.ccache.Close())
			s.ccache = nil
		}
	}
	if na.kctx != nil {
		err = errors.Join(err, na.kctx.Close())
		na.kctx = nil
	}
	return err
}

// Hostname returns the canonical target hostname.
func (na *Session) Hostname() string { return na.hostname }

// Service returns the service class.
func (na *Session) Service() string { return na.service }

// Username returns the resolved user name.
func (na *Session) Username() string { return na.username }

func (na *Session) isSMB() bool {
	return na.service == ServiceHost || na.service == ServiceCIFS
}

func (na *Session) gssEnable() bool {
	if na.prefs == nil {
		return true
	}
	return na.prefs.GSSEnable()
}

// kerberosContext opens the session's Kerberos context on first use.
func (na *Session) kerberosContext() (KerberosContext, error) {
	na.mu.Lock()
	defer na.mu.Unlock()
	if na.kctx != nil {
		return na.kctx, nil
	}
	if na.krb == nil {
		return nil, fmt.Errorf("negotiate: no Kerberos provider configured")
	}
	kctx, err := na.krb.NewContext()
	if err != nil {
		return nil, err
	}
	na.kctx = kctx
	return kctx, nil
}

// findUsername resolves the session username and the specific-name
// filter string from the caller's info, falling back to the OS login
// name.
func (na *Session) findUsername(cfg Config, info *Info) error {
	if info != nil && info.Username != "" {
		na.username = info.Username

		if i := strings.Index(na.username, "@"); i >= 0 {
			na.specificName = na.username[:i]
		} else if i := strings.Index(na.username, `\`); i >= 0 {
			na.specificName = na.username[i+1:]
		} else {
			na.specificName = na.username
		}
		return nil
	}

	login := cfg.LoginName
	if login == nil {
		login = osLoginName
	}
	name, err := login()
	if err != nil || name == "" {
		return ErrNoUsername
	}
	na.username = name
	return nil
}

func osLoginName() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// normalizeCertificates accepts a single certificate, a single identity
// or a sequence of either, and flattens to leaf certificates. Other
// types are logged and discarded.
func normalizeCertificates(logger *slog.Logger, in any) []*x509.Certificate {
	appendIdentity := func(out []*x509.Certificate, id *tls.Certificate) []*x509.Certificate {
		if id == nil {
			return out
		}
		if id.Leaf != nil {
			return append(out, id.Leaf)
		}
		if len(id.Certificate) > 0 {
			if leaf, err := x509.ParseCertificate(id.Certificate[0]); err == nil {
				return append(out, leaf)
			}
		}
		return out
	}

	switch v := in.(type) {
	case nil:
		return nil
	case *x509.Certificate:
		return []*x509.Certificate{v}
	case *tls.Certificate:
		return appendIdentity(nil, v)
	case []*x509.Certificate:
		return v
	case []*tls.Certificate:
		var out []*x509.Certificate
		for _, id := range v {
			out = appendIdentity(out, id)
		}
		return out
	default:
		logger.Debug("ignoring certificates of unknown type", "type", fmt.Sprintf("%T", in))
		return nil
	}
}

// deconstructServiceName strips DNS-SD service decoration from a
// hostname: "Server._afpovertcp._tcp.local." becomes "Server". Names
// without a service label pass through unchanged.
func deconstructServiceName(hostname string) string {
	labels := splitServiceLabels(hostname)
	for i, l := range labels {
		if i > 0 && i+1 < len(labels) &&
			strings.HasPrefix(l, "_") && strings.HasPrefix(labels[i+1], "_") {
			return unescapeServiceLabel(strings.Join(labels[:i], "."))
		}
	}
	return hostname
}

// splitServiceLabels splits on unescaped dots; DNS-SD instance names
// escape literal dots as `\.`.
func splitServiceLabels(s string) []string {
	var labels []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			labels = append(labels, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	labels = append(labels, cur.String())
	return labels
}

func unescapeServiceLabel(s string) string {
	s = strings.ReplaceAll(s, `\.`, ".")
	return strings.ReplaceAll(s, `\\`, `\`)
}
