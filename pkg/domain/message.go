package domain

import (
	"fmt"
	"time"
)

// Message is a single chat line. Messages are never edited; the relay only
// drops them once they are older than the retention window.
type Message struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
	// Timestamp is the server receive time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// CreatedAt returns the message timestamp as a time.Time.
func (m Message) CreatedAt() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Expired reports whether the message has outlived the retention window at now.
func (m Message) Expired(now time.Time, retention time.Duration) bool {
	return now.Sub(m.CreatedAt()) >= retention
}

// RelativeTime renders the age of the message the way the chat view shows it:
// "now", "12s ago" or "3m ago".
func (m Message) RelativeTime(now time.Time) string {
	diff := now.Sub(m.CreatedAt())
	switch {
	case diff >= time.Minute:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff >= time.Second:
		return fmt.Sprintf("%ds ago", int(diff/time.Second))
	default:
		return "now"
	}
}
