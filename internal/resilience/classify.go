// Package resilience classifies external-call errors and retries the
// recoverable ones. It is the single place where errors are classified;
// it never imports concrete HTTP clients.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Class is the retry classification of an error.
type Class string

const (
	ClassTransient Class = "transient"
	ClassSession   Class = "session"
	ClassPermanent Class = "permanent"
	ClassConfig    Class = "config"
)

// Keyword sets, matched against the lowercased error text. Priority is
// config > session > permanent > transient, so "API key timeout" classifies
// as config and "CAPTCHA not found" as session.
var (
	configPatterns = []string{
		"api key",
		"api_key",
		"credentials",
		"not configured",
		"missing key",
		"unauthorized client",
		"invalid tag",
		"associate tag",
	}
	sessionPatterns = []string{
		"captcha",
		"login required",
		"logged out",
		"session expired",
		"401",
		"bot detection",
		"robot",
		"access denied",
		"cloudflare",
		"verify you are human",
	}
	permanentPatterns = []string{
		"404",
		"not found",
		"out of stock",
		"no longer available",
		"discontinued",
		"410",
		"gone",
		"invalid url",
		"unsupported content type",
	}
	transientPatterns = []string{
		"timeout",
		"timed out",
		"503",
		"502",
		"504",
		"429",
		"too many requests",
		"connection reset",
		"connection refused",
		"broken pipe",
		"temporary failure",
		"no such host",
		"tls handshake",
		"i/o timeout",
		"service unavailable",
		"rate limit",
	}
)

// Classify maps an error to its retry class. Unknown errors are treated as
// transient, the safer default for idempotent GETs.
func Classify(err error) Class {
	if err == nil {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())

	matches := func(patterns []string) bool {
		for _, p := range patterns {
			if strings.Contains(msg, p) {
				return true
			}
		}
		return false
	}

	switch {
	case matches(configPatterns):
		return ClassConfig
	case matches(sessionPatterns):
		return ClassSession
	case matches(permanentPatterns):
		return ClassPermanent
	case matches(transientPatterns):
		return ClassTransient
	}

	// Network-level errors retry.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return ClassTransient
	}

	return ClassTransient
}

// IsTransientHTTPStatus reports whether an HTTP status code is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
