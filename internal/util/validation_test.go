package util

import (
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("  User@Example.com ")
	if err != nil {
		t.Fatalf("expected valid email: %v", err)
	}
	if addr != "User@Example.com" {
		t.Fatalf("expected trimmed address with case preserved, got %q", addr)
	}
}

func TestParseAddressRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"no at sign":     "not-an-address",
		"display name":   "User <user@example.com>",
		"angle brackets": "<user@example.com>",
		"list":           "a@example.com, b@example.com",
		"missing domain": "user@",
	}

	for name, value := range cases {
		value := value
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAddress(value); !errors.Is(err, ErrInvalidEmail) {
				t.Fatalf("expected ErrInvalidEmail for %q, got %v", value, err)
			}
		})
	}
}

func TestDomain(t *testing.T) {
	if got := Domain("someone@Mail.Example.com"); got != "mail.example.com" {
		t.Fatalf("unexpected domain %q", got)
	}
	if got := Domain("broken"); got != "" {
		t.Fatalf("expected empty domain, got %q", got)
	}
}
