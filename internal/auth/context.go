package auth

import (
	"context"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

type callerContextKey struct{}

// WithCaller attaches the verified CallerContext to ctx.
func WithCaller(ctx context.Context, caller models.CallerContext) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the CallerContext attached by WithCaller.
// ok is false if none was attached — callers on an authenticated path
// should treat that as a programming error, not fall back to a zero
// value.
func CallerFromContext(ctx context.Context) (models.CallerContext, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(models.CallerContext)
	return caller, ok
}
