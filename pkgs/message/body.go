package message

import (
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// Attachment is a decoded attachment part.
type Attachment struct {
	Filename    string
	ContentType string
	Inline      bool
	ContentID   string
	Data        []byte
}

// Content is the flattened body of a message: at most one text body,
// one HTML body, and any number of attachments. The first text/plain
// and first text/html parts win; nested multiparts are walked
// depth-first, so related > plain > html preference falls out of part
// order.
type Content struct {
	Text    string
	HasText bool
	HTML    string
	HasHTML bool

	Attachments []Attachment
}

// Preferred returns the best displayable body: the plain text part if
// present, else the HTML source. ok is false when the message has no
// text at all.
func (c *Content) Preferred() (body string, ok bool) {
	if c.HasText {
		return c.Text, true
	}
	if c.HasHTML {
		return c.HTML, true
	}
	return "", false
}

// Content walks the message's MIME tree and extracts its bodies and
// attachments.
func (m *Message) Content() (*Content, error) {
	entity, err := m.Entity()
	if err != nil {
		return nil, err
	}
	c := &Content{}
	collectEntity(c, entity)
	return c, nil
}

func collectEntity(c *Content, entity *gomessage.Entity) {
	if mr := entity.MultipartReader(); mr != nil {
		collectMultipart(c, mr)
	} else {
		collectLeaf(c, entity)
	}
}

func collectMultipart(c *Content, mr gomessage.MultipartReader) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		ct, _, _ := part.Header.ContentType()
		disposition, _, _ := part.Header.ContentDisposition()

		switch {
		case strings.HasPrefix(ct, "multipart/"):
			if nested := part.MultipartReader(); nested != nil {
				collectMultipart(c, nested)
			}

		case disposition == "attachment":
			collectAttachment(c, part, ct)

		case strings.HasPrefix(ct, "text/plain") && !c.HasText:
			if body, err := io.ReadAll(part.Body); err == nil {
				c.Text = string(body)
				c.HasText = true
			}

		case strings.HasPrefix(ct, "text/html") && !c.HasHTML:
			if body, err := io.ReadAll(part.Body); err == nil {
				c.HTML = string(body)
				c.HasHTML = true
			}

		default:
			collectAttachment(c, part, ct)
		}
	}
}

func collectAttachment(c *Content, part *gomessage.Entity, ct string) {
	data, err := io.ReadAll(part.Body)
	if err != nil {
		return
	}
	h := mail.AttachmentHeader{Header: part.Header}
	filename, _ := h.Filename()
	disposition, _, _ := part.Header.ContentDisposition()
	contentID := strings.Trim(part.Header.Get("Content-Id"), "<>")
	c.Attachments = append(c.Attachments, Attachment{
		Filename:    filename,
		ContentType: ct,
		Inline:      disposition == "inline",
		ContentID:   contentID,
		Data:        data,
	})
}

func collectLeaf(c *Content, entity *gomessage.Entity) {
	ct, _, _ := entity.Header.ContentType()
	body, err := io.ReadAll(entity.Body)
	if err != nil {
		return
	}
	if strings.HasPrefix(ct, "text/html") {
		c.HTML = string(body)
		c.HasHTML = true
	} else {
		c.Text = string(body)
		c.HasText = true
	}
}
