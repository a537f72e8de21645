package pgutils

import "strings"

// PostgreSQL error codes.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
)

// IsUniqueViolation checks if the error is a unique constraint violation (23505).
func IsUniqueViolation(err error) bool {
	return containsErrorCode(err, CodeUniqueViolation)
}

// IsForeignKeyViolation checks if the error is a foreign key violation (23503).
func IsForeignKeyViolation(err error) bool {
	return containsErrorCode(err, CodeForeignKeyViolation)
}

func containsErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, code) || strings.Contains(errStr, "SQLSTATE "+code)
}
