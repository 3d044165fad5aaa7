package pgx

import "strings"

// sanitizeText drops invalid UTF-8 and NUL bytes, which PostgreSQL rejects
// in TEXT columns.
func sanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
