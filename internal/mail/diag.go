package mail

import (
	"errors"
	"net"
	"strings"
)

const (
	DiagTimeout          = "timeout"
	DiagDial             = "dial"
	DiagTLS              = "tls"
	DiagAuth             = "auth"
	DiagRateLimited      = "rate_limited"
	DiagInvalidRecipient = "invalid_recipient"
	DiagRejected         = "rejected"
	DiagNetwork          = "network"
	DiagUnknown          = "unknown"
)

type SMTPDiag struct {
	Code string
	// Temporary failures may succeed if the caller tries again later.
	Temporary bool
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// DiagnoseSMTP classifies a send error for logs and metrics.
func DiagnoseSMTP(err error) SMTPDiag {
	if err == nil {
		return SMTPDiag{Code: DiagUnknown}
	}
	s := strings.ToLower(err.Error())

	var netErr net.Error
	isNet := errors.As(err, &netErr)
	if isNet && netErr.Timeout() || strings.Contains(s, "timeout") {
		return SMTPDiag{Code: DiagTimeout, Temporary: true}
	}

	switch {
	case containsAny(s, "connection refused", "no such host", "dial tcp"):
		return SMTPDiag{Code: DiagDial, Temporary: true}
	case strings.Contains(s, "x509:") || strings.Contains(s, "tls") && containsAny(s, "handshake", "certificate"):
		return SMTPDiag{Code: DiagTLS}
	case containsAny(s, "5.7.8", "535", "authentication failed", "username and password not accepted"):
		return SMTPDiag{Code: DiagAuth}
	case containsAny(s, "4.7.0", "421", "451", "rate limit", "try again later", "temporarily unavailable"):
		return SMTPDiag{Code: DiagRateLimited, Temporary: true}
	case containsAny(s, "5.1.1", "user unknown", "mailbox not found"):
		return SMTPDiag{Code: DiagInvalidRecipient}
	case containsAny(s, "5.7.1", "message rejected", "policy", "dmarc", "spf"):
		return SMTPDiag{Code: DiagRejected}
	case isNet:
		return SMTPDiag{Code: DiagNetwork, Temporary: true}
	}
	return SMTPDiag{Code: DiagUnknown}
}
