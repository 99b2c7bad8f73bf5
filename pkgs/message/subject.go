package message

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var nonLetters = regexp.MustCompile(`[^A-Za-z]+`)

// Slug reduces a subject to a filename-safe form: every run of
// non-letter characters becomes a single hyphen, with leading and
// trailing hyphens trimmed. An empty subject yields an empty slug.
func Slug(subject string) string {
	return strings.Trim(nonLetters.ReplaceAllString(subject, "-"), "-")
}

// Filename returns the canonical on-disk name for a draft or sent
// message: {YYYYMMDDHHMMSS}-{slug}.eml.
func Filename(subject string, now time.Time) string {
	return fmt.Sprintf("%s-%s.eml", now.Format("20060102150405"), Slug(subject))
}
