// Package requestctx carries the correlation id of an inbound request through
// service and infrastructure layers without importing transport packages.
package requestctx

import (
	"context"
	"strings"
)

const HeaderRequestID = "X-Request-Id"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}
