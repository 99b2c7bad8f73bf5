package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wemailrc.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"maildir": "/tmp/testmail",
		"editor": "true",
		"abort_timeout": 10,
		"smtp": {"host": "smtp.example.com", "port": 587, "use_tls": true},
		"senders": {
			"wayne@example.com": {
				"from": "Wayne Werner <wayne@example.com>",
				"smtp": {"host": "mail.example.com", "username": "wayne"}
			},
			"alt@example.com": {"from": "Alt <alt@example.com>"}
		},
		"mailing_lists": {"friends": ["a@example.com", "b@example.com"]}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Maildir != "/tmp/testmail" {
		t.Errorf("Maildir = %q", cfg.Maildir)
	}
	if cfg.Editor != "true" {
		t.Errorf("Editor = %q", cfg.Editor)
	}
	if cfg.AbortTimeout != 10 {
		t.Errorf("AbortTimeout = %d, want 10", cfg.AbortTimeout)
	}
	if cfg.Markdown != MarkdownStrict {
		t.Errorf("Markdown = %q, want the strict default", cfg.Markdown)
	}
	if cfg.TemplateDir != filepath.Join("/tmp/testmail", "templates") {
		t.Errorf("TemplateDir = %q, want the maildir default", cfg.TemplateDir)
	}
	if got := cfg.MailingLists["friends"]; len(got) != 2 {
		t.Errorf("friends list = %v", got)
	}
}

func TestLoadSenderKeysKeepDots(t *testing.T) {
	// Sender maps are keyed by full email addresses; the dots in them
	// must not be treated as nesting.
	path := writeConfig(t, `{
		"maildir": "/tmp/m",
		"senders": {
			"first.last@sub.example.co.uk": {"from": "Full <first.last@sub.example.co.uk>"}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.FromFor("first.last@sub.example.co.uk"); got != "Full <first.last@sub.example.co.uk>" {
		t.Errorf("FromFor = %q", got)
	}
}

func TestLoadRejectsBadMarkdownPolicy(t *testing.T) {
	path := writeConfig(t, `{"maildir": "/tmp/m", "markdown": "sometimes"}`)

	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unknown markdown policy")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestSMTPFor(t *testing.T) {
	host := "mail.example.com"
	user := "wayne"
	cfg := &Config{
		SMTP: SMTPConfig{Host: "smtp.example.com", Port: 587, UseTLS: true},
		Senders: map[string]SenderConfig{
			"wayne@example.com": {SMTP: &SMTPOverride{Host: &host, Username: &user}},
			"plain@example.com": {},
		},
	}

	t.Run("override layers over global", func(t *testing.T) {
		s := cfg.SMTPFor("wayne@example.com")
		if s.Host != "mail.example.com" {
			t.Errorf("Host = %q, want the override", s.Host)
		}
		if s.Port != 587 {
			t.Errorf("Port = %d, want the inherited global", s.Port)
		}
		if s.Username != "wayne" {
			t.Errorf("Username = %q, want the override", s.Username)
		}
		if !s.UseTLS {
			t.Error("UseTLS lost during layering")
		}
	})

	t.Run("sender without override gets global", func(t *testing.T) {
		s := cfg.SMTPFor("plain@example.com")
		if s.Host != "smtp.example.com" || s.Port != 587 {
			t.Errorf("got %+v, want the global settings", s)
		}
	})

	t.Run("unknown sender gets global", func(t *testing.T) {
		s := cfg.SMTPFor("stranger@example.com")
		if s.Host != "smtp.example.com" {
			t.Errorf("Host = %q", s.Host)
		}
	})

	t.Run("built-in defaults", func(t *testing.T) {
		s := (&Config{}).SMTPFor("anyone@example.com")
		if s.Host != "localhost" || s.Port != 25 {
			t.Errorf("got %+v, want localhost:25", s)
		}
	})
}

func TestFromFor(t *testing.T) {
	cfg := &Config{Senders: map[string]SenderConfig{
		"wayne@example.com": {From: "Wayne Werner <wayne@example.com>"},
	}}

	if got := cfg.FromFor("wayne@example.com"); got != "Wayne Werner <wayne@example.com>" {
		t.Errorf("FromFor = %q", got)
	}
	if got := cfg.FromFor("stranger@example.com"); got != "" {
		t.Errorf("FromFor for unknown address = %q, want empty", got)
	}
}
