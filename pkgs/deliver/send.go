package deliver

import (
	"bytes"
	"errors"
	"fmt"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-smtp"

	"github.com/wemail/cli/pkgs/config"
	"github.com/wemail/cli/pkgs/maildir"
	"github.com/wemail/cli/pkgs/message"
	"github.com/wemail/cli/pkgs/prompt"
)

// errAborted signals that the operator declined a broadcast
// confirmation; the source file stays where it is.
var errAborted = errors.New("broadcast aborted")

// Sender sends finished message files through a Transport and keeps
// the maildir consistent. The zero Transport means real SMTP.
type Sender struct {
	Config    *config.Config
	Maildir   *maildir.Maildir
	Prompter  prompt.Prompter
	Transport Transport
}

func (s *Sender) transport() Transport {
	if s.Transport != nil {
		return s.Transport
	}
	return SMTPTransport
}

// renderer returns the markdown renderer dictated by the configured
// policy: nil under "off", goldmark otherwise.
func (s *Sender) renderer() message.Renderer {
	if s.Config.Markdown == config.MarkdownOff {
		return nil
	}
	return message.NewGoldmark()
}

// Prepare runs the outgoing transform pipeline: CommonMark rendering
// per the configured policy, then attachment expansion.
func (s *Sender) Prepare(m *message.Message) (*message.Message, error) {
	if s.Config.Markdown != config.MarkdownOff {
		rendered, err := message.RenderMarkdown(m, s.renderer())
		switch {
		case errors.Is(err, message.ErrNoRenderer) && s.Config.Markdown == config.MarkdownSkip:
			// lenient policy: send unrendered
		case err != nil:
			return nil, err
		default:
			m = rendered
		}
	}
	return message.Attachify(m)
}

// Send delivers the message file and, only after the relay confirms,
// relocates it into sent under a freshly timestamped name. On any
// failure the file stays where it is, preserving at-least-once
// semantics.
func (s *Sender) Send(file maildir.MailFile) error {
	m, err := message.ReadFile(file.Path)
	if err != nil {
		return err
	}
	subject := m.Subject()
	fromAddr := bareFrom(m)
	settings := s.Config.SMTPFor(fromAddr)

	m, err = s.Prepare(m)
	if err != nil {
		return err
	}
	m, err = stampSendHeaders(m, fromAddr)
	if err != nil {
		return err
	}

	if list := m.Header.Get("X-Mailinglist"); list != "" {
		if err := s.broadcast(m, list, subject, fromAddr, settings); err != nil {
			if errors.Is(err, errAborted) {
				return nil
			}
			return err
		}
	} else {
		recipients := bareRecipients(m)
		fmt.Printf("Sending %q to %s ... ", subject, m.Header.Get("To"))
		if err := s.deliver(m.Bytes(), fromAddr, recipients, subject, settings); err != nil {
			fmt.Println()
			return err
		}
		fmt.Println("OK")
	}

	return s.moveToSent(file, subject)
}

// broadcast sends one copy per configured list recipient with the
// recipient headers replaced, after a single confirmation covering the
// whole list. Only an explicit no aborts; any other answer proceeds.
func (s *Sender) broadcast(m *message.Message, list, subject, fromAddr string, settings config.SMTPConfig) error {
	var recipients []string
	for _, r := range s.Config.MailingLists[list] {
		if strings.TrimSpace(r) != "" {
			recipients = append(recipients, strings.TrimSpace(r))
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("mailing list %q is not configured", list)
	}

	answer, err := s.Prompter.Ask(fmt.Sprintf("Sending to %d, continue? [Y/n]: ", len(recipients)))
	if err != nil {
		return err
	}
	if a := strings.ToLower(strings.TrimSpace(answer)); a == "n" || a == "no" {
		fmt.Println("Aborted")
		return errAborted
	}

	for _, recipient := range recipients {
		copyMsg, err := replaceRecipient(m, recipient)
		if err != nil {
			return err
		}
		fmt.Printf("\tSending to %s...", recipient)
		if err := s.deliver(copyMsg.Bytes(), fromAddr, []string{recipient}, subject, settings); err != nil {
			fmt.Println()
			return err
		}
		fmt.Println("OK")
	}
	return nil
}

// deliver runs the transport and maps relay rejections into
// DeliveryError.
func (s *Sender) deliver(raw []byte, from string, recipients []string, subject string, settings config.SMTPConfig) error {
	if len(recipients) == 0 {
		return fmt.Errorf("message %q has no recipients", subject)
	}
	if err := s.transport()(raw, from, recipients, settings); err != nil {
		var smtpErr *smtp.SMTPError
		if errors.As(err, &smtpErr) {
			return &DeliveryError{Subject: message.Slug(subject), Reason: smtpErr.Message}
		}
		return err
	}
	return nil
}

func (s *Sender) moveToSent(file maildir.MailFile, subject string) error {
	sentDir := s.Maildir.Path(maildir.FolderSent)
	if err := os.MkdirAll(sentDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(sentDir, message.Filename(subject, time.Now()))
	if err := os.Rename(file.Path, dst); err != nil {
		return fmt.Errorf("moving %s to sent: %w", file.Name(), err)
	}
	return nil
}

// SendAll delivers everything queued in the outbox after one
// confirmation covering the batch. Individual failures are reported
// and do not block the remaining files.
func (s *Sender) SendAll() error {
	files, err := s.Maildir.ListSorted(maildir.FolderOutbox)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("Nothing to send.")
		return nil
	}

	fmt.Println("Going to send...")
	for _, f := range files {
		fmt.Println(f.Path)
	}
	ok, err := prompt.Confirm(s.Prompter, "Really send all? [Y/n]: ", true)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Aborted!")
		return nil
	}

	for _, f := range files {
		if err := s.Send(f); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
	fmt.Println("Done!")
	return nil
}

// stampSendHeaders fills in Date and Message-ID when the draft lacks
// them, round-tripping through the codec.
func stampSendHeaders(m *message.Message, fromAddr string) (*message.Message, error) {
	if m.Header.Get("Date") != "" && m.Header.Get("Message-Id") != "" {
		return m, nil
	}
	entity, err := m.Entity()
	if err != nil {
		return nil, err
	}
	if entity.Header.Get("Date") == "" {
		entity.Header.Set("Date", time.Now().UTC().Format(time.RFC1123Z))
	}
	if entity.Header.Get("Message-Id") == "" {
		entity.Header.Set("Message-Id", GenerateMessageID(fromAddr))
	}
	return reserialize(entity)
}

// replaceRecipient strips To, Cc and Bcc and addresses the copy to a
// single recipient.
func replaceRecipient(m *message.Message, recipient string) (*message.Message, error) {
	entity, err := m.Entity()
	if err != nil {
		return nil, err
	}
	entity.Header.Del("To")
	entity.Header.Del("Cc")
	entity.Header.Del("Bcc")
	entity.Header.Set("To", recipient)
	return reserialize(entity)
}

func reserialize(entity *gomessage.Entity) (*message.Message, error) {
	var buf bytes.Buffer
	if err := entity.WriteTo(&buf); err != nil {
		return nil, err
	}
	return message.Parse(buf.Bytes())
}

func bareFrom(m *message.Message) string {
	if addr, err := netmail.ParseAddress(m.Header.Get("From")); err == nil {
		return addr.Address
	}
	return m.Header.Get("From")
}

func bareRecipients(m *message.Message) []string {
	var out []string
	for _, a := range m.Recipients() {
		if a.Address != "" {
			out = append(out, a.Address)
		}
	}
	return out
}
