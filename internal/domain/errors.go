package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrInvalidProfileUpdate = errors.New("invalid profile update")
)

// FailureCause tells callers why a store interaction failed without exposing
// driver error text.
type FailureCause string

const (
	CauseTimeout      FailureCause = "timeout"
	CauseConstraint   FailureCause = "constraint"
	CauseConnectivity FailureCause = "connectivity"
	CauseUnknown      FailureCause = "unknown"
)

// StoreError is returned by repositories for any failed statement
type StoreError struct {
	Op    string
	Cause FailureCause
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Cause, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ProfileUpdateError is the ProfileUpdateFailed failure of the update workflow
type ProfileUpdateError struct {
	Cause FailureCause
	Err   error
}

func (e *ProfileUpdateError) Error() string {
	return fmt.Sprintf("profile update failed (%s): %v", e.Cause, e.Err)
}

func (e *ProfileUpdateError) Unwrap() error {
	return e.Err
}

// StatusCheckError is the StatusCheckFailed failure of the onboarding query
type StatusCheckError struct {
	Cause FailureCause
	Err   error
}

func (e *StatusCheckError) Error() string {
	return fmt.Sprintf("onboarding status check failed (%s): %v", e.Cause, e.Err)
}

func (e *StatusCheckError) Unwrap() error {
	return e.Err
}

// ProfileReadError is returned when the caller's profile could not be loaded
type ProfileReadError struct {
	Cause FailureCause
	Err   error
}

func (e *ProfileReadError) Error() string {
	return fmt.Sprintf("profile read failed (%s): %v", e.Cause, e.Err)
}

func (e *ProfileReadError) Unwrap() error {
	return e.Err
}

// CauseOf extracts the failure cause from err. A StoreError supplies its own;
// bare context deadlines count as timeouts and cancellations as connectivity.
func CauseOf(err error) FailureCause {
	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.Cause != "" {
		return storeErr.Cause
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, context.Canceled):
		return CauseConnectivity
	}
	return CauseUnknown
}
