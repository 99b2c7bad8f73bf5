// Package deliver hands finished messages to the mail relay and
// relocates their source files into the sent folder on success.
package deliver

import (
	"bytes"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/wemail/cli/pkgs/config"
)

// DeliveryError reports a message the relay refused, carrying the
// offending subject and the remote's textual reason.
type DeliveryError struct {
	Subject string
	Reason  string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver %q - %q", e.Subject, e.Reason)
}

// Transport submits raw message bytes to a relay. It is the narrow
// contract the rest of the package depends on; tests substitute an
// in-process implementation.
type Transport func(raw []byte, from string, recipients []string, s config.SMTPConfig) error

// SMTPTransport delivers over the wire using the configured relay
// settings: implicit TLS (SMTPS), STARTTLS, or plaintext, with
// optional SASL PLAIN auth.
func SMTPTransport(raw []byte, from string, recipients []string, s config.SMTPConfig) error {
	var dialFn func(addr string, tlsConfig *tls.Config) (*smtp.Client, error)

	tlsCfg := &tls.Config{ServerName: s.Host}

	if s.UseSMTPS {
		dialFn = smtp.DialTLS
	} else if s.UseTLS {
		dialFn = smtp.DialStartTLS
	} else {
		dialFn = func(addr string, _ *tls.Config) (*smtp.Client, error) {
			return smtp.Dial(addr)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	client, err := dialFn(addr, tlsCfg)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer client.Close()

	if s.Username != "" || s.Password != "" {
		auth := sasl.NewPlainClient("", s.Username, s.Password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.SendMail(from, recipients, bytes.NewReader(raw)); err != nil {
		return err
	}
	return nil
}

// GenerateMessageID produces an RFC 5322 compliant Message-ID using
// the domain of the sender's address.
// Format: <timestamp.random@domain>
func GenerateMessageID(fromEmail string) string {
	domain := "localhost"
	if idx := strings.Index(fromEmail, "@"); idx >= 0 {
		domain = fromEmail[idx+1:]
	}

	b := make([]byte, 8)
	_, _ = rand.Read(b)

	return fmt.Sprintf("<%d.%s@%s>", time.Now().UnixNano(), hex.EncodeToString(b), domain)
}
