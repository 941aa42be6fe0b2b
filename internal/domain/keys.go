package domain

type CtxKey string

const (
	// KeyUserID holds the Clerk user id (token "sub") of the caller
	KeyUserID    CtxKey = "UserID"
	KeySessionID CtxKey = "SessionID"
	KeyRequestID CtxKey = "RequestID"
)
