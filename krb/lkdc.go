package krb

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// discoverLocalRealm resolves the LKDC realm a host announces, by the
// _kerberos TXT convention. The realm of a local KDC embeds the hash of
// the host's certificate, so it can only come from the host itself.
func discoverLocalRealm(ctx context.Context, resolver *net.Resolver, hostname string) (string, error) {
	records, err := resolver.LookupTXT(ctx, "_kerberos."+hostname)
	if err != nil {
		return "", fmt.Errorf("krb: LKDC realm lookup for %s: %w", hostname, err)
	}

	for _, r := range records {
		r = strings.TrimSpace(r)
		if strings.HasPrefix(r, lkdcRealmPrefix) {
			return r, nil
		}
	}
	return "", fmt.Errorf("krb: %s announced no LKDC realm", hostname)
}
