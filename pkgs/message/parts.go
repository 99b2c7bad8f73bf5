package message

import (
	"io"

	gomessage "github.com/emersion/go-message"
)

// Part is one leaf of the MIME tree, decoded.
type Part struct {
	ContentType string
	Filename    string
	Data        []byte
}

// Parts returns every leaf part in tree order. A single-part message
// yields exactly one part.
func (m *Message) Parts() ([]Part, error) {
	entity, err := m.Entity()
	if err != nil {
		return nil, err
	}
	var parts []Part
	appendLeafParts(&parts, entity)
	return parts, nil
}

func appendLeafParts(parts *[]Part, entity *gomessage.Entity) {
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				return
			}
			appendLeafParts(parts, part)
		}
	}

	ct, _, _ := entity.Header.ContentType()
	data, err := io.ReadAll(entity.Body)
	if err != nil {
		return
	}
	filename := ""
	if _, params, err := entity.Header.ContentDisposition(); err == nil {
		filename = params["filename"]
	}
	*parts = append(*parts, Part{ContentType: ct, Filename: filename, Data: data})
}
