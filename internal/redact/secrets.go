package redact

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	authHeaderRe  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	bearerRe      = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	hfTokenRe     = regexp.MustCompile(`\bhf_[A-Za-z0-9]{16,}\b`)
	apiKeyValueRe = regexp.MustCompile(`(?i)(api[_-]?key(?:s)?\s*[:=]\s*)([A-Za-z0-9._\-+/=]+)`)
	tokenishKeyRe = regexp.MustCompile(`(?i)(key|token|credential)\s*[:=]\s*([A-Za-z0-9._\-+/=]{6,})`)
)

// Secrets scrubs credentials and PII from free-form strings bound for logs.
// It is stricter than Text: bearer values and hf_ tokens are removed too.
func Secrets(s string) string {
	if s == "" {
		return s
	}

	out := s
	out = authHeaderRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = bearerRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = hfTokenRe.ReplaceAllString(out, "[REDACTED]")
	out = apiKeyValueRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = tokenishKeyRe.ReplaceAllStringFunc(out, func(m string) string {
		if strings.Contains(m, "[REDACTED") {
			return m
		}
		matches := tokenishKeyRe.FindStringSubmatch(m)
		if len(matches) < 3 {
			return m
		}
		return matches[1] + "=[REDACTED]"
	})
	out = Text(out)
	for strings.Contains(out, "[REDACTED][REDACTED]") {
		out = strings.ReplaceAll(out, "[REDACTED][REDACTED]", "[REDACTED]")
	}
	return out
}

// Sprintf formats like fmt.Sprintf and scrubs the result with Secrets.
func Sprintf(format string, args ...any) string {
	return Secrets(fmt.Sprintf(format, args...))
}
