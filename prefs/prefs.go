// Package prefs reads the user preferences the negotiation guessers
// consult: the GSS feature flag and the user-selection override list.
package prefs

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/smnsjas/go-nah/negotiate"
)

// Keys in the preferences file.
const (
	keyGSSEnable      = "GSSEnable"
	keyUserSelections = "UserSelections"
)

// Store reads preferences through viper. Zero value is unusable; use
// Open.
type Store struct {
	v *viper.Viper
}

// Open loads the "nah" configuration from the standard locations
// (/etc/nah, $HOME/.nah, the working directory). A missing file yields
// a store of defaults.
func Open() (*Store, error) {
	v := viper.New()
	v.SetConfigName("nah")
	v.AddConfigPath("/etc/nah")
	v.AddConfigPath("$HOME/.nah")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("prefs: read config: %w", err)
		}
	}
	return &Store{v: v}, nil
}

// OpenFile loads preferences from one explicit file.
func OpenFile(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("prefs: read %s: %w", path, err)
	}
	return &Store{v: v}, nil
}

// GSSEnable reports the GSS feature flag; true when the key is absent.
func (s *Store) GSSEnable() bool {
	if !s.v.IsSet(keyGSSEnable) {
		return true
	}
	return s.v.GetBool(keyGSSEnable)
}

// UserSelections returns the override list. A list that does not
// decode as an array of string maps yields nil; decoded entries are
// returned as read, without checking their fields.
func (s *Store) UserSelections() []negotiate.UserSelection {
	var raw []map[string]string
	if err := s.v.UnmarshalKey(keyUserSelections, &raw); err != nil {
		return nil
	}

	out := make([]negotiate.UserSelection, 0, len(raw))
	for _, m := range raw {
		out = append(out, negotiate.UserSelection{
			Mech:   m["mech"],
			Domain: m["domain"],
			User:   m["user"],
			Client: m["client"],
		})
	}
	return out
}

// Static is a fixed in-memory preference set for embedding and tests.
type Static struct {
	// Enable is the GSS feature flag.
	Enable bool

	// Selections is the override list.
	Selections []negotiate.UserSelection
}

// GSSEnable implements negotiate.PrefStore.
func (s *Static) GSSEnable() bool { return s.Enable }

// UserSelections implements negotiate.PrefStore.
func (s *Static) UserSelections() []negotiate.UserSelection { return s.Selections }
