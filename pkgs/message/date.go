package message

import (
	"time"

	"github.com/emersion/go-message/mail"
)

// DateStatus distinguishes a missing Date header from one that is
// present but unparseable.
type DateStatus int

const (
	DateAbsent DateStatus = iota
	DateUnparseable
	DateParsed
)

// DateInfo is the tri-state result of reading a Date header. Time is
// only meaningful when Status is DateParsed; Raw holds the literal
// header value when present.
type DateInfo struct {
	Status DateStatus
	Time   time.Time
	Raw    string
}

// attributionLayout renders dates in reply/forward attribution lines,
// e.g. "Fri, March 27, 2020 at 14:30:05PM -0500".
const attributionLayout = "Mon, January 02, 2006 at 15:04:05PM -0700"

// HeaderDate reads the Date header from h.
func HeaderDate(h mail.Header) DateInfo {
	raw := h.Get("Date")
	if raw == "" {
		return DateInfo{Status: DateAbsent}
	}
	t, err := h.Date()
	if err != nil {
		return DateInfo{Status: DateUnparseable, Raw: raw}
	}
	return DateInfo{Status: DateParsed, Time: t, Raw: raw}
}

// Attribution formats the date for "On {date}, {name} wrote:" lines.
// An unparseable header is shown verbatim; an absent one becomes the
// phrase "a day in the past".
func (d DateInfo) Attribution() string {
	switch d.Status {
	case DateParsed:
		return d.Time.Format(attributionLayout)
	case DateUnparseable:
		return d.Raw
	default:
		return "a day in the past"
	}
}
