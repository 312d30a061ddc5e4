package negotiate

import (
	"errors"
	"fmt"
)

// Sentinel errors for session construction and acquisition.
var (
	// ErrNoUsername indicates neither the caller nor the OS supplied a
	// login name.
	ErrNoUsername = errors.New("negotiate: no username available")

	// ErrNoMechanism indicates the guessers produced zero selections.
	ErrNoMechanism = errors.New("negotiate: no authentication mechanism available")

	// ErrCanceled indicates the session was canceled while waiting.
	ErrCanceled = errors.New("negotiate: session canceled")

	// ErrInsufficientCredentials indicates acquisition was requested for
	// a selection with neither password nor certificate.
	ErrInsufficientCredentials = errors.New("negotiate: no password or certificate to acquire with")

	// ErrServerUnresolved indicates a selection's server principal could
	// not be resolved.
	ErrServerUnresolved = errors.New("negotiate: server principal not resolved")
)

// ProviderError carries a provider's numeric status code and message.
// Provider failures inside a guesser are logged and swallowed; failures
// during acquisition are surfaced verbatim through this type.
type ProviderError struct {
	Mech Mech
	Code int
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("negotiate: %s provider failed (%d): %v", e.Mech, e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError reports a name that could not be parsed as a principal.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("negotiate: cannot parse %q: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
