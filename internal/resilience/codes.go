package resilience

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorCode is the stable tag stored on a failed job.
type ErrorCode string

const (
	CodeParseError   ErrorCode = "parse-error"
	CodeAccessDenied ErrorCode = "access-denied"
	CodeTimeout      ErrorCode = "timeout"
	CodeUnknown      ErrorCode = "unknown"
	// CodeLeaseExpired marks a job whose worker stopped renewing its claim.
	CodeLeaseExpired ErrorCode = "lease-expired"
)

// Classify maps err onto an ErrorCode by Postgres SQLSTATE when available,
// then by well-known substrings. Every code is retryable; the code only
// tells operators what went wrong.
func Classify(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501" || strings.HasPrefix(pgErr.Code, "28"):
			return CodeAccessDenied
		case pgErr.Code == "57014":
			return CodeTimeout
		case strings.HasPrefix(pgErr.Code, "42"):
			return CodeParseError
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "permission denied", "access denied", "not authorized", "jwt", "authentication failed"):
		return CodeAccessDenied
	case containsAny(msg, "timeout", "timed out", "deadline exceeded", "canceling statement"):
		return CodeTimeout
	case containsAny(msg, "syntax error", "parse error", "failed to parse", "malformed"):
		return CodeParseError
	}
	return CodeUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
