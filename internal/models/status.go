package models

import "time"

// Status event constants.
const (
	StatusEventSent   = "sent"
	StatusEventFailed = "failed"
)

// StatusEvent represents the outcome of one recipient of a mailer run.
type StatusEvent struct {
	RunID       string    `json:"run_id"`
	MessageID   string    `json:"message_id"`
	Index       int       `json:"index"`
	Recipient   string    `json:"recipient,omitempty"`
	EventType   string    `json:"event_type"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Code        int       `json:"code,omitempty"`
	Status      string    `json:"status,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
