package message

import (
	"bytes"
	"fmt"
	"mime"
	netmail "net/mail"
	"strings"

	"github.com/emersion/go-message/mail"
)

// noTextPlaceholder is quoted in place of the body when a message has
// no extractable text part.
const noTextPlaceholder = "<A message with no text>"

// ReplyOptions controls Replyify.
type ReplyOptions struct {
	// All replies to every original recipient, not just the sender.
	All bool
	// KeepAttachments carries the original's attachments into the reply.
	KeepAttachments bool
}

// Replyify derives a reply draft from m. sender is the display form of
// the replying address ("Name <addr>"). Without All, the reply goes to
// Reply-To when present, else From. With All, To becomes the original
// From plus To and Cc is preserved, with the replying address removed
// from both. The body quotes the original under an attribution line.
func Replyify(m *Message, sender string, opts ReplyOptions) (*Message, error) {
	content, err := m.Content()
	if err != nil {
		return nil, err
	}

	var header mail.Header
	setFrom(&header, sender)

	if opts.All {
		to := dropAddress(append(addressList(m.Header, "From"), addressList(m.Header, "To")...), sender)
		cc := dropAddress(addressList(m.Header, "Cc"), sender)
		if len(to) > 0 {
			header.SetAddressList("To", to)
		}
		if len(cc) > 0 {
			header.SetAddressList("Cc", cc)
		}
	} else {
		to := addressList(m.Header, "Reply-To")
		if len(to) == 0 {
			to = addressList(m.Header, "From")
		}
		if len(to) > 0 {
			header.SetAddressList("To", to)
		}
	}

	// No "Re: Re:" collapsing; repeated replies stack prefixes.
	header.SetSubject("Re: " + m.Subject())

	body, ok := content.Preferred()
	quoted := noTextPlaceholder
	if ok {
		quoted = "> " + strings.ReplaceAll(body, "\n", "\n> ")
	}
	text := fmt.Sprintf("On %s, %s wrote:\n%s",
		HeaderDate(m.Header).Attribution(), originatorName(m), quoted)

	var carry []Attachment
	if opts.KeepAttachments {
		carry = content.Attachments
	}
	return buildTextMessage(header, text, carry)
}

// Forwardify derives a forward draft from m. The To header is left
// empty for the operator to fill in; the body is a synthesized block
// quoting the original's envelope followed by its text.
func Forwardify(m *Message, sender string, keepAttachments bool) (*Message, error) {
	content, err := m.Content()
	if err != nil {
		return nil, err
	}

	var header mail.Header
	setFrom(&header, sender)
	header.Set("To", "")
	header.SetSubject("Fwd: " + m.Subject())

	body, _ := content.Preferred()

	var b strings.Builder
	b.WriteString("\n---------- Forwarded Message ----------\n")
	fmt.Fprintf(&b, "From: %s\n", m.Header.Get("From"))
	fmt.Fprintf(&b, "Date: %s\n", HeaderDate(m.Header).Attribution())
	fmt.Fprintf(&b, "Subject: %s\n", m.Subject())
	for _, key := range []string{"To", "Cc", "Bcc"} {
		if addrs := addressList(m.Header, key); len(addrs) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", key, formatAddressList(addrs))
		}
	}
	b.WriteString("\n")
	b.WriteString(body)

	var carry []Attachment
	if keepAttachments {
		carry = content.Attachments
	}
	return buildTextMessage(header, b.String(), carry)
}

// buildTextMessage serializes a text body (plus any carried
// attachments) under header and re-parses the result.
func buildTextMessage(header mail.Header, text string, attachments []Attachment) (*Message, error) {
	var buf bytes.Buffer

	if len(attachments) == 0 {
		header.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, header)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(text)); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return Parse(buf.Bytes())
	}

	mw, err := mail.CreateWriter(&buf, header)
	if err != nil {
		return nil, err
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := iw.CreatePart(th)
	if err != nil {
		return nil, err
	}
	if _, err := tw.Write([]byte(text)); err != nil {
		return nil, err
	}
	tw.Close()
	if err := iw.Close(); err != nil {
		return nil, err
	}

	for _, att := range attachments {
		var ah mail.AttachmentHeader
		ah.SetContentType(att.ContentType, nil)
		ah.SetFilename(att.Filename)
		if att.Inline {
			ah.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": att.Filename}))
		}
		if att.ContentID != "" {
			ah.Set("Content-ID", "<"+att.ContentID+">")
		}
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, err
		}
		if _, err := aw.Write(att.Data); err != nil {
			return nil, err
		}
		aw.Close()
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return Parse(buf.Bytes())
}

// setFrom sets the From header from a display string, keeping the raw
// form when it does not parse as an address.
func setFrom(h *mail.Header, sender string) {
	if addr, err := netmail.ParseAddress(sender); err == nil {
		h.SetAddressList("From", []*mail.Address{{Name: addr.Name, Address: addr.Address}})
	} else {
		h.Set("From", sender)
	}
}

// originatorName is the display name of the original sender, the bare
// address when it has no display name, or "Unknown".
func originatorName(m *Message) string {
	from := addressList(m.Header, "From")
	if len(from) == 0 {
		return "Unknown"
	}
	if from[0].Name != "" {
		return from[0].Name
	}
	return formatAddr(from[0])
}

// dropAddress removes sender's own address from a recipient list.
func dropAddress(addrs []*mail.Address, sender string) []*mail.Address {
	senderAddr := ""
	if parsed, err := netmail.ParseAddress(sender); err == nil {
		senderAddr = parsed.Address
	}
	out := addrs[:0:0]
	for _, a := range addrs {
		if senderAddr != "" && strings.EqualFold(a.Address, senderAddr) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func formatAddr(a *mail.Address) string {
	return (&netmail.Address{Name: a.Name, Address: a.Address}).String()
}

// displayAddr renders an address for a From line: bare when it has no
// display name, "Name <addr>" otherwise.
func displayAddr(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return formatAddr(a)
}

func formatAddressList(addrs []*mail.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = formatAddr(a)
	}
	return strings.Join(parts, ", ")
}
