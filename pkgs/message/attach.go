package message

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gomessage "github.com/emersion/go-message"
)

// multipartPreamble is written before the first boundary when a
// single-part message is promoted to multipart/mixed.
const multipartPreamble = "This is a MIME-formatted multi-part message."

// attachmentSpec is one parsed Attachment header value:
// "path[; key=value]*" with keys inline and name/filename.
type attachmentSpec struct {
	path   string
	name   string
	inline bool
}

func parseAttachmentSpec(value string) attachmentSpec {
	fields := strings.Split(value, ";")
	spec := attachmentSpec{path: strings.TrimSpace(fields[0])}
	spec.name = filepath.Base(spec.path)
	for _, field := range fields[1:] {
		key, val, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "inline":
			spec.inline = strings.EqualFold(val, "true")
		case "name", "filename":
			spec.name = unquoteName(val)
		}
	}
	return spec
}

// unquoteName interprets a quoted name literal, so headers like
// `Attachment: /tmp/f.txt; name="with spaces.txt"` work. Unquoted
// values pass through untouched.
func unquoteName(val string) string {
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		if val[0] == '"' {
			if unquoted, err := strconv.Unquote(val); err == nil {
				return unquoted
			}
		}
		return val[1 : len(val)-1]
	}
	return val
}

func resolveAttachmentPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return filepath.Abs(path)
}

// guessContentType maps a filename extension to a content type,
// falling back to application/octet-stream.
func guessContentType(name string) (string, map[string]string) {
	t := mime.TypeByExtension(filepath.Ext(name))
	if t == "" {
		return "application/octet-stream", nil
	}
	mediatype, params, err := mime.ParseMediaType(t)
	if err != nil {
		return "application/octet-stream", nil
	}
	return mediatype, params
}

// Attachify expands the message's Attachment headers into MIME
// attachment parts. Relative paths resolve against the current working
// directory; a missing file fails the transform (and thus the send).
// Messages without Attachment headers are returned unchanged. The
// Attachment headers themselves never appear in the output.
func Attachify(m *Message) (*Message, error) {
	var specs []attachmentSpec
	fields := m.Header.FieldsByKey("Attachment")
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		specs = append(specs, parseAttachmentSpec(value))
	}
	if len(specs) == 0 {
		return m, nil
	}

	entity, err := m.Entity()
	if err != nil {
		return nil, err
	}

	outHeader := m.Header.Copy()
	outHeader.Del("Attachment")

	var buf bytes.Buffer
	var w *gomessage.Writer

	if mr := entity.MultipartReader(); mr != nil {
		// Already multipart: keep the existing structure and append
		// the attachment parts after it.
		w, err = gomessage.CreateWriter(&buf, outHeader.Header)
		if err != nil {
			return nil, err
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			} else if err != nil {
				return nil, err
			}
			pw, err := w.CreatePart(part.Header)
			if err != nil {
				return nil, err
			}
			if _, err := io.Copy(pw, part.Body); err != nil {
				return nil, err
			}
			pw.Close()
		}
	} else {
		// Promote to multipart/mixed; the original body becomes the
		// first part, keeping its declared content headers.
		var bodyHeader gomessage.Header
		for _, key := range []string{"Content-Type", "Content-Transfer-Encoding", "Content-Disposition"} {
			if v := outHeader.Get(key); v != "" {
				bodyHeader.Set(key, v)
				outHeader.Del(key)
			}
		}
		if bodyHeader.Get("Content-Type") == "" {
			bodyHeader.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		}
		outHeader.SetContentType("multipart/mixed", nil)

		w, err = gomessage.CreateWriter(&buf, outHeader.Header)
		if err != nil {
			return nil, err
		}
		// The writer has flushed the header; anything written before
		// the first part lands in the multipart preamble.
		buf.WriteString(multipartPreamble + "\r\n")

		pw, err := w.CreatePart(bodyHeader)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(pw, entity.Body); err != nil {
			return nil, err
		}
		pw.Close()
	}

	for _, spec := range specs {
		if err := writeAttachment(w, spec); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return Parse(buf.Bytes())
}

func writeAttachment(w *gomessage.Writer, spec attachmentSpec) error {
	path, err := resolveAttachmentPath(spec.path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("attachment: %w", err)
	}

	disposition := "attachment"
	if spec.inline {
		disposition = "inline"
	}
	// The type comes from the file on disk; a name override changes
	// only how the attachment presents itself.
	mediatype, params := guessContentType(filepath.Base(spec.path))

	var h gomessage.Header
	h.SetContentType(mediatype, params)
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": spec.name}))
	h.Set("Content-Transfer-Encoding", "base64")
	// Content-ID lets HTML bodies reference inline images by name.
	h.Set("Content-ID", "<"+spec.name+">")
	h.Set("X-Attachment-Id", spec.name)

	pw, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := pw.Write(data); err != nil {
		return err
	}
	return pw.Close()
}
