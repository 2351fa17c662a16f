package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"regexp"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// error_kind values of send.fail.
const (
	kindTimeout   = "timeout"
	kindDNS       = "dns"
	kindDial      = "dial"
	kindTLS       = "tls"
	kindFlood     = "flood"
	kindForbidden = "forbidden"
	kind4xx       = "http_4xx"
	kind5xx       = "http_5xx"
	kindUnknown   = "unknown"
)

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return kindTimeout
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return kindFlood
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return classifyAPI(apiErr.Code, apiErr.Description)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return kindTimeout
		}
		return kindDNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return kindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return kindDial
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return kindTLS
	}
	return kindUnknown
}

func classifyAPI(code int, description string) string {
	switch {
	case code == 403, strings.Contains(strings.ToLower(description), "bot was blocked"):
		return kindForbidden
	case code == 429:
		return kindFlood
	case code >= 500:
		return kind5xx
	case code >= 400:
		return kind4xx
	}
	return kindUnknown
}

// sanitizeErrorMessage keeps bot tokens out of logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
