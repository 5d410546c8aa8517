package logger

import "strings"

// RedactEmail masks an email address for safe logging:
// "ann.lee@example.com" becomes "an***@example.com". Local parts of two
// characters or fewer are masked entirely, and anything that doesn't look
// like an email collapses to "***@***".
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone masks a phone number, keeping only the last four characters:
// "5551234567" becomes "******4567". Short values are masked entirely.
func RedactPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
