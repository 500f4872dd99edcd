// Package redact removes credentials and host details from text before it is
// logged or published in events.
package redact

import (
	"net/url"
	"regexp"
)

// Placeholders substituted for redacted fragments
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
)

// maskedPassword replaces the password of a connection URL. It needs no escaping.
const maskedPassword = "redacted"

var (
	// userinfo of postgres and redis connection strings
	dsnRegex = regexp.MustCompile(`(?i)\b(postgres|postgresql|redis|rediss)://[^@\s/]+@`)

	// key=value credentials, as in libpq keyword DSNs
	passwordRegex = regexp.MustCompile(`(?i)\b(password|passwd|pwd)=[^\s&]+`)

	// absolute file paths with at least two segments
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
)

// String redacts connection credentials, passwords and file paths from input.
func String(input string) string {
	if input == "" {
		return input
	}

	result := dsnRegex.ReplaceAllString(input, "${1}://"+RedactedCredentialPlaceholder+"@")
	result = passwordRegex.ReplaceAllString(result, "${1}="+RedactionPlaceholder)
	return unixPathRegex.ReplaceAllString(result, RedactedPathPlaceholder)
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

// URL masks the password of a database or cache address while keeping the
// user, host and options readable. Inputs that are not URLs, such as SQLite
// file paths, only have key=value passwords removed.
func URL(dsn string) string {
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.Scheme == "" {
		return passwordRegex.ReplaceAllString(dsn, "${1}="+RedactionPlaceholder)
	}

	if _, hasPassword := parsed.User.Password(); hasPassword {
		parsed.User = url.UserPassword(parsed.User.Username(), maskedPassword)
		return parsed.String()
	}
	return dsn
}
