package util

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrInvalidEmail is returned when an email address cannot be parsed.
var ErrInvalidEmail = errors.New("invalid email address")

// ParseAddress validates a bare email address such as "user@example.com" and
// returns it trimmed. Display names, angle brackets and address lists are
// rejected so the value can be used directly as an SMTP envelope address.
func ParseAddress(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidEmail, trimmed, err)
	}

	if addr.Name != "" || addr.Address == "" {
		return "", fmt.Errorf("%w: %q must not include display name", ErrInvalidEmail, trimmed)
	}

	if addr.Address != trimmed {
		return "", fmt.Errorf("%w: %q has unexpected formatting", ErrInvalidEmail, trimmed)
	}

	return addr.Address, nil
}

// Domain returns the part after the last "@" of an already validated address.
func Domain(address string) string {
	idx := strings.LastIndex(address, "@")
	if idx < 0 || idx == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[idx+1:])
}
