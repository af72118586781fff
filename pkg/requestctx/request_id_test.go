package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetRequestID(ctx))

	assert.Equal(t, ctx, WithRequestID(ctx, "   "))

	ctx = WithRequestID(ctx, " req-1 ")
	assert.Equal(t, "req-1", GetRequestID(ctx))
}
