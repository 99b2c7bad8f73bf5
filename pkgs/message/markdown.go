package message

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/emersion/go-message/mail"
	"github.com/yuin/goldmark"
)

// ErrNoRenderer is returned when a message requests CommonMark
// rendering but no renderer is configured.
var ErrNoRenderer = errors.New("no markdown renderer available")

// Renderer converts CommonMark source into HTML.
type Renderer interface {
	Render(src string) (string, error)
}

// Goldmark is the default CommonMark renderer.
type Goldmark struct {
	md goldmark.Markdown
}

func NewGoldmark() *Goldmark {
	return &Goldmark{md: goldmark.New()}
}

func (g *Goldmark) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderMarkdown turns a message carrying an X-CommonMark header into a
// multipart/alternative message whose first part is the original plain
// text and whose second part is the rendered HTML. The X-CommonMark
// header is removed. Messages without the header are returned
// unchanged; callers may rely on pointer equality to detect that.
//
// A nil renderer means no renderer is available and yields
// ErrNoRenderer; the caller decides whether that is fatal (the
// "strict" markdown policy) or grounds to skip rendering.
func RenderMarkdown(m *Message, r Renderer) (*Message, error) {
	if m.Header.Get("X-CommonMark") == "" {
		return m, nil
	}
	if r == nil {
		return nil, ErrNoRenderer
	}

	content, err := m.Content()
	if err != nil {
		return nil, err
	}
	text, ok := content.Preferred()
	if !ok {
		text = ""
	}
	html, err := r.Render(text)
	if err != nil {
		return nil, err
	}

	header := m.Header.Copy()
	header.Del("X-CommonMark")
	for _, key := range []string{"Content-Type", "Content-Transfer-Encoding", "Content-Disposition", "Mime-Version"} {
		header.Del(key)
	}

	var buf bytes.Buffer
	iw, err := mail.CreateInlineWriter(&buf, header)
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

	var hh mail.InlineHeader
	hh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	hw, err := iw.CreatePart(hh)
	if err != nil {
		return nil, err
	}
	if _, err := hw.Write([]byte(html)); err != nil {
		return nil, err
	}
	hw.Close()

	if err := iw.Close(); err != nil {
		return nil, err
	}
	return Parse(buf.Bytes())
}
