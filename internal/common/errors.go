package common

import (
	"errors"
	"fmt"
)

// Error kinds. Configuration, data format, transport and connection errors are
// fatal for a run; address, message build and send errors are recorded per
// recipient and never abort the batch.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrDataFormat    = errors.New("data format error")
	ErrTransport     = errors.New("transport error")
	ErrConnection    = errors.New("connection error")
	ErrAddress       = errors.New("address error")
	ErrMessageBuild  = errors.New("message build error")
	ErrSend          = errors.New("send error")
)

var kindNames = []struct {
	kind error
	name string
}{
	{ErrConfiguration, "configuration"},
	{ErrDataFormat, "data_format"},
	{ErrTransport, "transport"},
	{ErrConnection, "connection"},
	{ErrAddress, "address"},
	{ErrMessageBuild, "message_build"},
	{ErrSend, "send"},
}

// Wrap annotates err with kind so callers can match either with errors.Is.
func Wrap(kind, err error) error {
	if err == nil {
		return kind
	}
	if kind == nil {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// IsFatal reports whether err belongs to a kind that terminates the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrDataFormat) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrConnection)
}

// KindName returns a short label for the error kind, or "unknown".
func KindName(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "unknown"
}
