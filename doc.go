// Package nah provides client-side network authentication negotiation:
// given a target host and service class, it enumerates ranked candidate
// authentication selections (mechanism, client principal, server
// principal, wrapper policy) and acquires credentials for the chosen
// selection.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  negotiate/    Session, guessers, acquisition engine    │
//	├─────────────────────────────────────────────────────────┤
//	│  krb/          Kerberos provider (pure Go)              │
//	│  gsscred/      NTLM / IAKerb credential store           │
//	│  certstore/    client certificate identities            │
//	│  prefs/        user preferences (overrides, flags)      │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick Start
//
//	sess, err := negotiate.Create(negotiate.Config{
//	    Kerberos: krb.NewProvider(krb.ProviderConfig{}),
//	    Creds:    gsscred.NewStore(),
//	}, "fs.corp.example.com", negotiate.ServiceCIFS, &negotiate.Info{
//	    Username: `DOMAIN\alice`,
//	    Password: "secret",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	for _, sel := range sess.Selections() {
//	    fmt.Println(sel)
//	}
package nah
