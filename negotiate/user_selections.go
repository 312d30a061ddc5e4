package negotiate

import "strings"

// addUserSelections seeds the list from the user's preference-store
// override entries. Matching entries bypass the specific-name filter:
// the user asked for these explicitly.
func (na *Session) addUserSelections() {
	if na.prefs == nil {
		return
	}

	for _, e := range na.prefs.UserSelections() {
		if e.Client == "" || e.Mech == "" || e.Domain == "" {
			continue
		}

		// Exact matching for now, should really be domain matching.
		if !strings.EqualFold(e.Domain, na.hostname) {
			continue
		}
		if e.User != "" && e.User != na.username {
			continue
		}

		mech := ParseMech(e.Mech)
		if mech == MechNone {
			continue
		}

		server := na.service + "@" + na.hostname

		na.addSelection(e.Client, NameTypeUnset, server, NameTypeUnset, mech, useSPNEGO|forceAdd)
	}
}
