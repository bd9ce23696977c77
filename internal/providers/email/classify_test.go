package email_test

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"testing"

	emailprovider "github.com/example/recipient-mailer/internal/providers/email"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
	}{
		{name: "nil", err: nil, wantCode: 0, wantStatus: ""},
		{name: "auth rejected", err: fmt.Errorf("auth: %w", &textproto.Error{Code: 535, Msg: "bad credentials"}), wantCode: 535, wantStatus: emailprovider.StatusRejected},
		{name: "mailbox unavailable", err: &textproto.Error{Code: 550, Msg: "no such user"}, wantCode: 550, wantStatus: emailprovider.StatusRejected},
		{name: "greylisted", err: &textproto.Error{Code: 451, Msg: "try later"}, wantCode: 451, wantStatus: emailprovider.StatusRateLimited},
		{name: "deadline", err: fmt.Errorf("send: %w", context.DeadlineExceeded), wantCode: 0, wantStatus: emailprovider.StatusRateLimited},
		{name: "other", err: errors.New("boom"), wantCode: 0, wantStatus: emailprovider.StatusUnknown},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			code, status := emailprovider.ClassifyError(tc.err)
			if code != tc.wantCode || status != tc.wantStatus {
				t.Fatalf("expected %s/%d, got %s/%d", tc.wantStatus, tc.wantCode, status, code)
			}
		})
	}
}
