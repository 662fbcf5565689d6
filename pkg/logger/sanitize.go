package logger

import (
	"log/slog"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "m**@e******.com")
func SanitizedEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "[invalid-email]"
	}

	username := []rune(email[:at])
	domain := email[at+1:]

	// Keep the first character of the local part
	masked := string(username[0]) + strings.Repeat("*", len(username)-1)

	// Mask all but the TLD
	domainParts := strings.Split(domain, ".")
	for i := 0; i < len(domainParts)-1; i++ {
		domainParts[i] = strings.Repeat("*", len(domainParts[i]))
	}

	return masked + "@" + strings.Join(domainParts, ".")
}

// RedactedAttr returns "[REDACTED]" in production and the value elsewhere
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// sensitiveParams are query keys whose presence redacts the whole query string
var sensitiveParams = []string{
	"csrf", "token", "email", "user_", "secret", "password", "session",
}

// SanitizeQueryString reports whether rawQuery should be redacted in request logs
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
