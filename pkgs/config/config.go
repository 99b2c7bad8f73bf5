// Package config loads the wemail configuration file and resolves
// per-sender delivery settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Markdown rendering policies. See Config.Markdown.
const (
	// MarkdownStrict fails a send when X-CommonMark is requested but no
	// renderer is available.
	MarkdownStrict = "strict"
	// MarkdownSkip silently sends the message unrendered instead.
	MarkdownSkip = "skip"
	// MarkdownOff disables rendering entirely.
	MarkdownOff = "off"
)

// SMTPConfig holds connection settings for the mail relay.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// UseTLS enables opportunistic STARTTLS after connecting in plaintext.
	UseTLS bool `mapstructure:"use_tls"`
	// UseSMTPS enables implicit TLS (connect directly over TLS).
	UseSMTPS bool `mapstructure:"use_smtps"`
}

// SMTPOverride is a partial SMTPConfig. Nil fields inherit the global
// settings; set fields win.
type SMTPOverride struct {
	Host     *string `mapstructure:"host"`
	Port     *int    `mapstructure:"port"`
	Username *string `mapstructure:"username"`
	Password *string `mapstructure:"password"`
	UseTLS   *bool   `mapstructure:"use_tls"`
	UseSMTPS *bool   `mapstructure:"use_smtps"`
}

// SenderConfig holds per-address settings, keyed in Config.Senders by
// the bare email address.
type SenderConfig struct {
	// From is the display form used when this address sends mail,
	// e.g. "Wayne Werner <wayne@example.com>". Empty means use the
	// bare address.
	From string        `mapstructure:"from"`
	SMTP *SMTPOverride `mapstructure:"smtp"`
}

// IMAPConfig holds settings for fetching new mail into the maildir.
type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Mailbox  string `mapstructure:"mailbox"`
	UseTLS   bool   `mapstructure:"use_tls"`
	StartTLS bool   `mapstructure:"starttls"`
}

// Config is the application configuration. It is loaded once per
// invocation and passed explicitly to every component; there is no
// package-level config state.
type Config struct {
	Maildir      string                  `mapstructure:"maildir"`
	Editor       string                  `mapstructure:"editor"`
	TemplateDir  string                  `mapstructure:"template_dir"`
	AbortTimeout int                     `mapstructure:"abort_timeout"`
	DefaultPart  int                     `mapstructure:"default_part"`
	Markdown     string                  `mapstructure:"markdown"`
	SMTP         SMTPConfig              `mapstructure:"smtp"`
	Senders      map[string]SenderConfig `mapstructure:"senders"`
	MailingLists map[string][]string     `mapstructure:"mailing_lists"`
	Filters      [][]string              `mapstructure:"filters"`
	IMAP         *IMAPConfig             `mapstructure:"imap"`
}

// DefaultPath returns the default config file location, ~/.wemailrc.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wemailrc"
	}
	return filepath.Join(home, ".wemailrc")
}

// Load reads the configuration file at path. The file is JSON by
// convention (~/.wemailrc) but YAML and TOML are also accepted.
func Load(path string) (*Config, error) {
	// Sender maps are keyed by email address; the default "." key
	// delimiter would split those, so use one that cannot appear in a
	// config key.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	switch filepath.Ext(path) {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		v.SetConfigType("json")
	}

	v.SetDefault("maildir", "~/wemail")
	v.SetDefault("abort_timeout", 5)
	v.SetDefault("markdown", MarkdownStrict)
	v.SetDefault("smtp", map[string]any{"host": "localhost", "port": 25})

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Maildir = expandHome(cfg.Maildir)
	cfg.TemplateDir = expandHome(cfg.TemplateDir)
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = filepath.Join(cfg.Maildir, "templates")
	}
	if cfg.Editor == "" {
		cfg.Editor = editorFromEnv()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Markdown {
	case MarkdownStrict, MarkdownSkip, MarkdownOff:
	default:
		return fmt.Errorf("markdown policy must be %q, %q or %q, got %q",
			MarkdownStrict, MarkdownSkip, MarkdownOff, c.Markdown)
	}
	if c.Maildir == "" {
		return fmt.Errorf("maildir is required")
	}
	return nil
}

// SMTPFor resolves the delivery settings for mail sent from addr.
// Precedence: per-sender override > global config > built-in default
// (localhost:25, no TLS, no auth).
func (c *Config) SMTPFor(addr string) SMTPConfig {
	s := c.SMTP
	if s.Host == "" {
		s.Host = "localhost"
	}
	if s.Port == 0 {
		s.Port = 25
	}

	sender, ok := c.Senders[addr]
	if !ok || sender.SMTP == nil {
		return s
	}
	o := sender.SMTP
	if o.Host != nil {
		s.Host = *o.Host
	}
	if o.Port != nil {
		s.Port = *o.Port
	}
	if o.Username != nil {
		s.Username = *o.Username
	}
	if o.Password != nil {
		s.Password = *o.Password
	}
	if o.UseTLS != nil {
		s.UseTLS = *o.UseTLS
	}
	if o.UseSMTPS != nil {
		s.UseSMTPS = *o.UseSMTPS
	}
	return s
}

// FromFor returns the configured display form for addr, or the empty
// string when addr has no sender entry.
func (c *Config) FromFor(addr string) string {
	if sender, ok := c.Senders[addr]; ok {
		return sender.From
	}
	return ""
}

func editorFromEnv() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	if e := os.Getenv("VISUAL"); e != "" {
		return e
	}
	return "nano"
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
