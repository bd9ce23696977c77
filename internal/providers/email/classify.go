package email

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
)

// Relay outcome classifications attached to failed sends.
const (
	StatusRejected    = "rejected"
	StatusRateLimited = "rate_limited"
	StatusUnknown     = "unknown"
)

// ClassifyError extracts the SMTP reply code carried by err, if any, and maps
// it to a coarse status. Permanent authentication and mailbox failures are
// "rejected", other 4xx/5xx replies and timeouts are "rate_limited".
func ClassifyError(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	code, _ := classifySMTPError(err)
	switch {
	case isPermanentCode(code):
		return code, StatusRejected
	case code >= 400:
		return code, StatusRateLimited
	case isTimeout(err):
		return code, StatusRateLimited
	default:
		return code, StatusUnknown
	}
}

func classifySMTPError(err error) (int, string) {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code, strings.TrimSpace(tpErr.Msg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return 0, "smtp: timeout"
	}

	return 0, ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func isPermanentCode(code int) bool {
	switch code {
	case 530, 535, 550, 551, 553:
		return true
	default:
		return false
	}
}
