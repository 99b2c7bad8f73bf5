// Package message wraps the go-message codec and implements the
// transformation pipeline: CommonMark rendering, attachment expansion,
// reply and forward derivation.
//
// A Message is immutable and backed by its raw bytes. Every transform
// serializes through the codec and re-parses the result, so a
// transformed Message is always structurally consistent. Transforms
// that change nothing return their input unchanged, and callers may
// compare pointers to detect that.
package message

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	_ "github.com/emersion/go-message/charset"
)

// Message is a parsed mail message. Header is parsed once; the body is
// re-read from the raw bytes on demand so it can be walked any number
// of times.
type Message struct {
	raw    []byte
	Header mail.Header
}

// Parse parses a raw RFC 5322 message. Unknown charsets are tolerated:
// the message is still usable, with undecoded text.
func Parse(raw []byte) (*Message, error) {
	entity, err := gomessage.Read(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	return &Message{
		raw:    append([]byte(nil), raw...),
		Header: mail.Header{Header: entity.Header},
	}, nil
}

// ReadFile parses the message stored at path.
func ReadFile(path string) (*Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Bytes returns the serialized message.
func (m *Message) Bytes() []byte {
	return m.raw
}

// Entity returns a freshly parsed entity whose body can be consumed.
// Each call returns an independent reader over the same bytes.
func (m *Message) Entity() (*gomessage.Entity, error) {
	entity, err := gomessage.Read(bytes.NewReader(m.raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, err
	}
	return entity, nil
}

// IsMultipart reports whether the message declares a multipart
// content type.
func (m *Message) IsMultipart() bool {
	t, _, err := m.Header.ContentType()
	if err != nil {
		return false
	}
	return strings.HasPrefix(t, "multipart/")
}

// Subject returns the decoded Subject header, or "" when absent.
func (m *Message) Subject() string {
	subject, err := m.Header.Subject()
	if err != nil {
		return m.Header.Get("Subject")
	}
	return subject
}

// addressList reads an address header leniently: a malformed or absent
// header yields no addresses rather than an error, matching how the
// rest of the pipeline degrades on damaged input.
func addressList(h mail.Header, key string) []*mail.Address {
	addrs, err := h.AddressList(key)
	if err != nil {
		return nil
	}
	return addrs
}

// Recipients returns the union of To, Cc and Bcc addresses in header
// order.
func (m *Message) Recipients() []*mail.Address {
	var all []*mail.Address
	for _, key := range []string{"To", "Cc", "Bcc"} {
		all = append(all, addressList(m.Header, key)...)
	}
	return all
}
