package domain

import "time"

// AlertRecord is one dispatched alert, kept for the audit log.
type AlertRecord struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Locations int       `json:"locations"` // number of lines in Body
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}
