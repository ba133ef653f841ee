package engine

import (
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

var livePrefixes = []string{"Streamed ", "Premiered "}

// ParseUploadDate resolves the relative publish text of a search result
// ("3 hours ago", "Streamed 2 days ago") against now.
// Missing, unparseable or future dates yield now.
func ParseUploadDate(text string, now time.Time) time.Time {
	text = strings.TrimSpace(text)
	for _, prefix := range livePrefixes {
		text = strings.TrimPrefix(text, prefix)
	}
	if text == "" {
		return now
	}
	d, err := dateparser.Parse(&dateparser.Configuration{CurrentTime: now}, text)
	if err != nil || d.Time.IsZero() || d.Time.After(now) {
		return now
	}
	return d.Time
}
