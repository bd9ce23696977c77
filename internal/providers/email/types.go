package email

import (
	"context"
	"time"
)

// Payload is the canonical description of one outbound plaintext email.
type Payload struct {
	MessageID string
	From      string
	To        string
	Subject   string
	Body      string
}

// RawResponse mirrors the low level relay response for a single send.
type RawResponse struct {
	ID        string
	Code      int
	Body      string
	Timestamp time.Time
}

// Transport is a single relay session shared by every send of a run.
// Connect performs the up-front connectivity check, Send submits one message
// over the established session and Close ends it.
type Transport interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, msg *Message) (*RawResponse, error)
	Close() error
}
