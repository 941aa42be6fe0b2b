package auth

import (
	"context"

	"career-coach-backend/internal/domain"
)

// ContextResolver reads the caller id that AuthMiddleware attached to the
// request context.
type ContextResolver struct{}

func NewContextResolver() *ContextResolver {
	return &ContextResolver{}
}

func (ContextResolver) ResolveCaller(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(domain.KeyUserID).(string)
	if !ok || userID == "" {
		return "", domain.ErrUnauthenticated
	}
	return userID, nil
}

// WithCaller attaches a caller id to ctx
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, domain.KeyUserID, userID)
}
