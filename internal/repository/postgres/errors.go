package postgres

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"career-coach-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	pgQueryCanceled          = "57014" // statement_timeout
	pgIdleInTxTimeout        = "25P03"
	pgAdminShutdown          = "57P01"
	pgCannotConnectNow       = "57P03"
	pgClassIntegrity         = "23"
	pgClassConnectionFailure = "08"
)

// storeError wraps a driver error with the structured cause the use cases
// report. ctx is the statement context, consulted for an expired deadline.
func storeError(ctx context.Context, op string, err error) error {
	return &domain.StoreError{Op: op, Cause: classify(ctx, err), Err: err}
}

func classify(ctx context.Context, err error) domain.FailureCause {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return domain.CauseTimeout
	}
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.CauseTimeout
	}
	// A canceled request abandons the connection mid-statement
	if errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return domain.CauseConnectivity
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgQueryCanceled, pgErr.Code == pgIdleInTxTimeout:
			return domain.CauseTimeout
		case strings.HasPrefix(pgErr.Code, pgClassIntegrity):
			return domain.CauseConstraint
		case strings.HasPrefix(pgErr.Code, pgClassConnectionFailure),
			pgErr.Code == pgAdminShutdown, pgErr.Code == pgCannotConnectNow:
			return domain.CauseConnectivity
		}
		return domain.CauseUnknown
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return domain.CauseConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.CauseTimeout
		}
		return domain.CauseConnectivity
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return domain.CauseConnectivity
	}
	return domain.CauseUnknown
}
