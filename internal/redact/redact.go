// Package redact scrubs credentials from strings before they are logged
// or returned to callers. Error messages from the generation service are
// shown to users verbatim, so anything that might echo an API key, a
// signed download URL or a bearer token passes through here first.
package redact

import (
	"regexp"
	"sort"
	"strings"
)

// Redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
)

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// rules run in order; more specific patterns come first.
var rules = []rule{
	// Google API keys, wherever they appear
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), RedactedKeyPlaceholder},
	// key= and api_key= query parameters on download URLs
	{regexp.MustCompile(`(?i)([?&](?:api_?)?key=)[^&\s"']+`), "${1}" + RedactedKeyPlaceholder},
	// x-goog-api-key headers echoed in dumps
	{regexp.MustCompile(`(?i)(x-goog-api-key:\s*)\S+`), "${1}" + RedactedKeyPlaceholder},
	// JWTs before the bearer rule so the token type is kept
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), RedactedJWTPlaceholder},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/]{8,}=*`), "${1}" + RedactionPlaceholder},
	// connection strings with inline credentials
	{regexp.MustCompile(`(?i)((?:postgres|postgresql|mysql|sqlite)://)[^@/\s]+@`), "${1}" + RedactedCredentialPlaceholder + "@"},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:]\s*['"]?)[^'"&\s]{3,}`), "${1}${2}" + RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token)(['"]?\s*[:=]\s*['"]?)[A-Za-z0-9_\-.~+/]{8,}`), "${1}${2}" + RedactedKeyPlaceholder},
	// AWS access key IDs
	{regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`), RedactedKeyPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Secrets replaces every occurrence of the given secret values, then
// applies the pattern rules. Longer secrets are replaced first so that a
// secret containing another is not partially revealed.
func Secrets(input string, secrets ...string) string {
	ordered := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			ordered = append(ordered, s)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	for _, s := range ordered {
		input = strings.ReplaceAll(input, s, RedactedKeyPlaceholder)
	}
	return String(input)
}
