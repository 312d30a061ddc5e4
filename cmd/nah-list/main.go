// Command nah-list enumerates candidate authentication selections for
// a network service and optionally acquires credentials for one of
// them.
//
// Usage:
//
//	nah-list -host fs.corp.example.com -service cifs -user 'DOMAIN\alice' -ask-password
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/smnsjas/go-nah/gsscred"
	intlog "github.com/smnsjas/go-nah/internal/log"
	"github.com/smnsjas/go-nah/krb"
	"github.com/smnsjas/go-nah/negotiate"
	"github.com/smnsjas/go-nah/prefs"
)

func main() {
	var (
		host        = flag.String("host", "", "target hostname (required)")
		service     = flag.String("service", negotiate.ServiceCIFS, "service class (afpserver, cifs, host, vnc)")
		username    = flag.String("user", "", "user name (user, user@REALM or DOMAIN\\user)")
		askPassword = flag.Bool("ask-password", false, "prompt for a password")
		hintsFlag   = flag.String("hints", "", "comma-separated server mechanism OIDs")
		krb5Conf    = flag.String("krb5-conf", "", "path to krb5.conf")
		cacheDir    = flag.String("cache-dir", "", "directory of ccache files to consider")
		acquire     = flag.Int("acquire", -1, "acquire credentials for the selection at this index")
		logLevel    = flag.String("log-level", "", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *host == "" {
		fmt.Fprintln(os.Stderr, "nah-list: -host is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if *logLevel != "" {
		var level slog.Level
		switch strings.ToLower(*logLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			fmt.Fprintf(os.Stderr, "Invalid log level %q. Valid values: debug, info, warn, error\n", *logLevel)
			os.Exit(2)
		}
		handler := intlog.NewRedactingHandler(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		logger = slog.New(handler)
	}

	info := &negotiate.Info{Username: *username}

	if *askPassword {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
			os.Exit(1)
		}
		info.Password = string(pw)
	}

	if *hintsFlag != "" {
		hints := negotiate.Hints{}
		for _, oid := range strings.Split(*hintsFlag, ",") {
			hints[strings.TrimSpace(oid)] = nil
		}
		info.ServerHints = hints
	}

	prefStore, err := prefs.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading preferences: %v\n", err)
		os.Exit(1)
	}

	credStore := gsscred.NewStore()
	credStore.SetLogger(logger)

	sess, err := negotiate.Create(negotiate.Config{
		Kerberos: krb.NewProvider(krb.ProviderConfig{
			Krb5ConfPath: *krb5Conf,
			CacheDir:     *cacheDir,
		}),
		Creds:  credStore,
		Prefs:  prefStore,
		Logger: logger,
	}, *host, *service, info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	selections := sess.Selections()
	fmt.Printf("%d selection(s) for %s/%s:\n", len(selections), sess.Service(), sess.Hostname())

	for i, sel := range selections {
		client, ok := sel.Client()
		if !ok {
			fmt.Printf("\n%d. <canceled>\n", i)
			continue
		}
		server, _ := sel.Server()
		if server == "" {
			server = "<unresolved>"
		}

		fmt.Printf("\n%d. %s\n", i, sel.GetInfoForKey(negotiate.InfoMechanism))
		fmt.Printf("   Client: %s\n", client)
		fmt.Printf("   Server: %s\n", server)
		fmt.Printf("   SPNEGO: %v  HaveCredential: %v\n", sel.UseSPNEGO(), sel.HaveCredential())
		if label := sel.Label(); label != "" {
			fmt.Printf("   Label:  %s\n", label)
		}
	}

	if *acquire >= 0 {
		if *acquire >= len(selections) {
			fmt.Fprintf(os.Stderr, "No selection at index %d\n", *acquire)
			os.Exit(1)
		}
		sel := selections[*acquire]
		if err := sel.AcquireCredential(nil); err != nil {
			fmt.Fprintf(os.Stderr, "Acquire failed: %v\n", err)
			os.Exit(1)
		}
		client, _ := sel.Client()
		fmt.Printf("\nAcquired credentials for %s\n", client)
	}
}
