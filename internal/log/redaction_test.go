package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func capture(fn func(*slog.Logger)) string {
	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil)))
	fn(logger)
	return buf.String()
}

func TestRedactsSensitiveKeys(t *testing.T) {
	out := capture(func(l *slog.Logger) {
		l.Info("acquire", "client", "alice@CORP", "password", "hunter2")
	})

	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker: %s", out)
	}
	if !strings.Contains(out, "alice@CORP") {
		t.Errorf("principal should pass through: %s", out)
	}
}

func TestRedactsCaseInsensitiveAndSubstring(t *testing.T) {
	out := capture(func(l *slog.Logger) {
		l.Info("acquire", "NTLM_Password", "hunter2", "service_ticket", "blob")
	})

	if strings.Contains(out, "hunter2") || strings.Contains(out, "blob") {
		t.Errorf("sensitive values leaked: %s", out)
	}
}

func TestRedactsGroups(t *testing.T) {
	out := capture(func(l *slog.Logger) {
		l.Info("acquire", slog.Group("identity",
			slog.String("user", "alice"),
			slog.String("password", "hunter2")))
	})

	if strings.Contains(out, "hunter2") {
		t.Errorf("grouped password leaked: %s", out)
	}
	if !strings.Contains(out, "alice") {
		t.Errorf("grouped user should pass through: %s", out)
	}
}

func TestRedactsWithAttrs(t *testing.T) {
	out := capture(func(l *slog.Logger) {
		l.With("keytab", "/etc/krb5.keytab").Info("context open")
	})

	if strings.Contains(out, "/etc/krb5.keytab") {
		t.Errorf("keytab path leaked: %s", out)
	}
}
