package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"career-coach-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	bg := context.Background()

	cases := []struct {
		name string
		err  error
		want domain.FailureCause
	}{
		{"deadline", context.DeadlineExceeded, domain.CauseTimeout},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), domain.CauseTimeout},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, domain.CauseTimeout},
		{"idle in tx timeout", &pgconn.PgError{Code: "25P03"}, domain.CauseTimeout},
		{"unique violation", &pgconn.PgError{Code: "23505"}, domain.CauseConstraint},
		{"check violation", &pgconn.PgError{Code: "23514"}, domain.CauseConstraint},
		{"connection failure", &pgconn.PgError{Code: "08006"}, domain.CauseConnectivity},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, domain.CauseConnectivity},
		{"eof", io.ErrUnexpectedEOF, domain.CauseConnectivity},
		{"canceled", context.Canceled, domain.CauseConnectivity},
		{"wrapped canceled", fmt.Errorf("begin: %w", context.Canceled), domain.CauseConnectivity},
		{"syntax error", &pgconn.PgError{Code: "42601"}, domain.CauseUnknown},
		{"plain error", errors.New("boom"), domain.CauseUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(bg, tc.err))
		})
	}
}

func TestClassify_ExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	// The driver may surface a generic error once the deadline has fired
	assert.Equal(t, domain.CauseTimeout, classify(ctx, errors.New("conn closed")))
}

func TestClassify_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, domain.CauseConnectivity, classify(ctx, errors.New("conn closed")))
	assert.Equal(t, domain.CauseConnectivity, domain.CauseOf(storeError(ctx, "begin transaction", ctx.Err())))
}

func TestStoreError(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	err := storeError(context.Background(), "create industry insight", cause)

	var se *domain.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "create industry insight", se.Op)
	assert.Equal(t, domain.CauseConstraint, se.Cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, domain.CauseConstraint, domain.CauseOf(err))
}
