package message

import (
	"strings"
	"testing"
)

const sampleMail = "From: Alice Example <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Test subject\r\n" +
	"Date: Fri, 27 Mar 2020 14:30:05 -0500\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello there\r\nSecond line\r\n"

func mustParse(t *testing.T, raw string) *Message {
	t.Helper()
	m, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func bodyText(t *testing.T, m *Message) string {
	t.Helper()
	content, err := m.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	body, _ := content.Preferred()
	return body
}

func TestReplyify(t *testing.T) {
	m := mustParse(t, sampleMail)

	reply, err := Replyify(m, "Bob <bob@example.com>", ReplyOptions{})
	if err != nil {
		t.Fatalf("Replyify: %v", err)
	}

	if got := reply.Subject(); got != "Re: Test subject" {
		t.Errorf("subject = %q, want %q", got, "Re: Test subject")
	}
	to := addressList(reply.Header, "To")
	if len(to) != 1 || to[0].Address != "alice@example.com" {
		t.Errorf("To = %v, want alice@example.com", to)
	}
	from := addressList(reply.Header, "From")
	if len(from) != 1 || from[0].Address != "bob@example.com" {
		t.Errorf("From = %v, want bob@example.com", from)
	}

	body := bodyText(t, reply)
	if !strings.Contains(body, "On Fri, March 27, 2020 at 14:30:05PM -0500, Alice Example wrote:") {
		t.Errorf("attribution line missing from body:\n%s", body)
	}
	if !strings.Contains(body, "> Hello there") {
		t.Errorf("quoted body missing:\n%s", body)
	}
	if !strings.Contains(body, "> Second line") {
		t.Errorf("second quoted line missing:\n%s", body)
	}
}

func TestReplyifyPrefersReplyTo(t *testing.T) {
	m := mustParse(t, "From: alice@example.com\r\n"+
		"Reply-To: list@example.com\r\n"+
		"To: bob@example.com\r\n"+
		"Subject: hi\r\n"+
		"\r\n"+
		"body\r\n")

	reply, err := Replyify(m, "bob@example.com", ReplyOptions{})
	if err != nil {
		t.Fatalf("Replyify: %v", err)
	}
	to := addressList(reply.Header, "To")
	if len(to) != 1 || to[0].Address != "list@example.com" {
		t.Errorf("To = %v, want list@example.com", to)
	}
}

func TestReplyifyAll(t *testing.T) {
	m := mustParse(t, "From: alice@example.com\r\n"+
		"To: me@mydomain.com, carol@example.com\r\n"+
		"Cc: dave@example.com, me@mydomain.com\r\n"+
		"Subject: group chat\r\n"+
		"\r\n"+
		"body\r\n")

	reply, err := Replyify(m, "Me <me@mydomain.com>", ReplyOptions{All: true})
	if err != nil {
		t.Fatalf("Replyify: %v", err)
	}

	to := addressList(reply.Header, "To")
	wantTo := []string{"alice@example.com", "carol@example.com"}
	if len(to) != len(wantTo) {
		t.Fatalf("To = %v, want %v", to, wantTo)
	}
	for i, want := range wantTo {
		if to[i].Address != want {
			t.Errorf("To[%d] = %q, want %q", i, to[i].Address, want)
		}
	}

	cc := addressList(reply.Header, "Cc")
	if len(cc) != 1 || cc[0].Address != "dave@example.com" {
		t.Errorf("Cc = %v, want dave@example.com", cc)
	}
}

func TestReplyifyNoTextBody(t *testing.T) {
	m := mustParse(t, "From: alice@example.com\r\n"+
		"To: bob@example.com\r\n"+
		"Subject: binary only\r\n"+
		"Content-Type: multipart/mixed; boundary=deadbeef\r\n"+
		"\r\n"+
		"--deadbeef\r\n"+
		"Content-Type: application/octet-stream\r\n"+
		"Content-Disposition: attachment; filename=\"x.bin\"\r\n"+
		"\r\n"+
		"AAAA\r\n"+
		"--deadbeef--\r\n")

	reply, err := Replyify(m, "bob@example.com", ReplyOptions{})
	if err != nil {
		t.Fatalf("Replyify: %v", err)
	}
	if body := bodyText(t, reply); !strings.Contains(body, noTextPlaceholder) {
		t.Errorf("body = %q, want the no-text placeholder", body)
	}
}

func TestReplyifyDateFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		date   string
		wantOn string
	}{
		{"absent", "", "On a day in the past,"},
		{"unparseable", "Date: the day after lunch\r\n", "On the day after lunch,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, "From: alice@example.com\r\nTo: bob@example.com\r\nSubject: x\r\n"+
				tt.date+"\r\nbody\r\n")
			reply, err := Replyify(m, "bob@example.com", ReplyOptions{})
			if err != nil {
				t.Fatalf("Replyify: %v", err)
			}
			if body := bodyText(t, reply); !strings.Contains(body, tt.wantOn) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantOn)
			}
		})
	}
}

func TestForwardify(t *testing.T) {
	m := mustParse(t, sampleMail)

	fwd, err := Forwardify(m, "Bob <bob@example.com>", false)
	if err != nil {
		t.Fatalf("Forwardify: %v", err)
	}

	if got := fwd.Subject(); got != "Fwd: Test subject" {
		t.Errorf("subject = %q, want %q", got, "Fwd: Test subject")
	}
	if to := addressList(fwd.Header, "To"); len(to) != 0 {
		t.Errorf("To = %v, want empty for the operator to fill in", to)
	}

	body := bodyText(t, fwd)
	for _, want := range []string{
		"---------- Forwarded Message ----------",
		"From: Alice Example <alice@example.com>",
		"Date: Fri, March 27, 2020 at 14:30:05PM -0500",
		"Subject: Test subject",
		"Hello there",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("forward body missing %q:\n%s", want, body)
		}
	}
}
