package util

import (
	"regexp"
	"strings"
)

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// key=value and header: value shapes that leak through upstream error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|x-rapidapi-key|gemini[_-]?api[_-]?key|openai[_-]?api[_-]?key|access[_-]?token)\b\s*[:=]\s*[^\s"'&]+`)

	openAIKeyRe = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{12,}`)

	// user:pass@ in connection strings
	dsnPasswordRe = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)
)

// RedactSecrets removes secret-bearing substrings from error and log text.
// Safe to call on any string.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = openAIKeyRe.ReplaceAllString(out, "<redacted_key>")
	out = RedactDSN(out)
	return strings.TrimSpace(out)
}

// RedactDSN masks the password part of a connection string.
func RedactDSN(dsn string) string {
	return dsnPasswordRe.ReplaceAllString(dsn, `://$1:****@`)
}
