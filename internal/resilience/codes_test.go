package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"pg syntax", &pgconn.PgError{Code: "42601"}, CodeParseError},
		{"pg undefined column", eris.Wrap(&pgconn.PgError{Code: "42703"}, "store: load tenders"), CodeParseError},
		{"pg insufficient privilege", &pgconn.PgError{Code: "42501"}, CodeAccessDenied},
		{"pg invalid password", &pgconn.PgError{Code: "28P01"}, CodeAccessDenied},
		{"pg statement timeout", &pgconn.PgError{Code: "57014"}, CodeTimeout},
		{"context deadline", eris.Wrap(context.DeadlineExceeded, "store: claim"), CodeTimeout},
		{"timeout text", errors.New("read: connection timed out"), CodeTimeout},
		{"search syntax text", errors.New(`syntax error in tsquery: "IT &"`), CodeParseError},
		{"stale credential text", errors.New("JWT expired"), CodeAccessDenied},
		{"permission text", errors.New("permission denied for table evaluations"), CodeAccessDenied},
		{"other", errors.New("something broke"), CodeUnknown},
		{"pg other class", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
